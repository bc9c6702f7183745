package domain

import "fmt"

// ErrorCode is the numeric outcome code shared by every layer and returned on the wire.
// Codes are stable: never renumber an existing value.
type ErrorCode int

const (
	Success ErrorCode = 0

	// General application errors (1-99)
	GeneralError           ErrorCode = 1
	InvalidParameter       ErrorCode = 2
	DatabaseError          ErrorCode = 3
	NetworkError           ErrorCode = 4
	SystemError            ErrorCode = 5
	ConfigurationError     ErrorCode = 6
	ReconciliationRequired ErrorCode = 7
	DuplicateOrder         ErrorCode = 8
	UnsupportedWalletMode  ErrorCode = 9
	UnsupportedCurrency    ErrorCode = 10

	// Authentication and authorization (100-199)
	AuthenticationFailed ErrorCode = 100
	InvalidToken         ErrorCode = 101
	TokenExpired         ErrorCode = 102
	AccessDenied         ErrorCode = 103
	InvalidSignature     ErrorCode = 104
	InvalidNonce         ErrorCode = 105
	IPNotAllowed         ErrorCode = 106

	// Agent domain (200-299)
	AgentNotFound            ErrorCode = 200
	AgentStatusInvalid       ErrorCode = 201
	AgentBalanceInsufficient ErrorCode = 202
	AgentWalletLocked        ErrorCode = 203

	// Player domain (300-399)
	PlayerNotFound            ErrorCode = 300
	PlayerNameInvalid         ErrorCode = 301
	PlayerAlreadyExists       ErrorCode = 302
	PlayerBalanceInsufficient ErrorCode = 303
	PlayerWalletLocked        ErrorCode = 304

	// Wallet store / stored procedure (1000-1099)
	StoreInternalError             ErrorCode = 1000
	StoreAgentNotExists            ErrorCode = 1001
	StoreAgentInsufficientBalance  ErrorCode = 1002
	StorePlayerWalletNotExists     ErrorCode = 1003
	StorePlayerInsufficientBalance ErrorCode = 1004
	StoreDuplicateOrder            ErrorCode = 1005

	// System and infrastructure (9000-9999)
	StoreNoResult           ErrorCode = 9001
	DatabaseConnectionError ErrorCode = 9002
	DatabaseExecutionError  ErrorCode = 9003
)

var messages = map[ErrorCode]string{
	Success: "success",

	GeneralError:           "general error",
	InvalidParameter:       "invalid parameter",
	DatabaseError:          "database error",
	NetworkError:           "network error",
	SystemError:            "system error",
	ConfigurationError:     "configuration error",
	ReconciliationRequired: "inconsistent state, manual reconciliation required",
	DuplicateOrder:         "order already submitted",
	UnsupportedWalletMode:  "operation not supported for single wallet",
	UnsupportedCurrency:    "unsupported currency",

	AuthenticationFailed: "authentication failed",
	InvalidToken:         "invalid token",
	TokenExpired:         "token expired",
	AccessDenied:         "access denied",
	InvalidSignature:     "signature verification failed",
	InvalidNonce:         "nonce verification failed",
	IPNotAllowed:         "ip not in whitelist",

	AgentNotFound:            "agent not found",
	AgentStatusInvalid:       "agent status invalid",
	AgentBalanceInsufficient: "agent balance insufficient",
	AgentWalletLocked:        "agent wallet locked",

	PlayerNotFound:            "player not found",
	PlayerNameInvalid:         "player name invalid",
	PlayerAlreadyExists:       "player already exists",
	PlayerBalanceInsufficient: "player balance insufficient",
	PlayerWalletLocked:        "player wallet locked",

	StoreInternalError:             "wallet store internal error",
	StoreAgentNotExists:            "agent wallet does not exist",
	StoreAgentInsufficientBalance:  "agent wallet balance insufficient",
	StorePlayerWalletNotExists:     "player wallet does not exist",
	StorePlayerInsufficientBalance: "player wallet balance insufficient",
	StoreDuplicateOrder:            "order id already applied to wallet",

	StoreNoResult:           "wallet store returned no result",
	DatabaseConnectionError: "database connection error",
	DatabaseExecutionError:  "database execution error",
}

// Message returns the human readable text for a code.
func Message(code ErrorCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error code: %d", int(code))
}

// String implements fmt.Stringer as "code (message)".
func (c ErrorCode) String() string {
	return fmt.Sprintf("%d (%s)", int(c), Message(c))
}

// OK reports whether the code is the success value.
func (c ErrorCode) OK() bool { return c == Success }

// Category names the range a code belongs to.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryGeneral Category = "general"
	CategoryAuth    Category = "auth"
	CategoryAgent   Category = "agent"
	CategoryPlayer  Category = "player"
	CategoryStore   Category = "store"
	CategorySystem  Category = "system"
	CategoryUnknown Category = "unknown"
)

// Category classifies the code by its numeric range.
func (c ErrorCode) Category() Category {
	switch {
	case c == Success:
		return CategorySuccess
	case c >= 1 && c <= 99:
		return CategoryGeneral
	case c >= 100 && c <= 199:
		return CategoryAuth
	case c >= 200 && c <= 299:
		return CategoryAgent
	case c >= 300 && c <= 399:
		return CategoryPlayer
	case c >= 1000 && c <= 1099:
		return CategoryStore
	case c >= 9000 && c <= 9999:
		return CategorySystem
	default:
		return CategoryUnknown
	}
}

// IsSystem reports whether the code is an infrastructure failure (9000-9999).
func (c ErrorCode) IsSystem() bool { return c.Category() == CategorySystem }
