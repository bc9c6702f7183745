package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type. Code is the wire-level outcome code.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"errorMsg"`
	Status  int       `json:"-"`
	Data    any       `json:"-"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d: %s: %v", int(e.Code), e.Message, e.Cause)
	}
	return fmt.Sprintf("%d: %s", int(e.Code), e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewAppError builds an AppError for code using the taxonomy message when msg is empty.
func NewAppError(code ErrorCode, msg string) *AppError {
	if msg == "" {
		msg = Message(code)
	}
	return &AppError{Code: code, Message: msg, Status: statusFor(code)}
}

// Standard domain error constructors.

func ErrValidation(msg string) *AppError {
	return &AppError{Code: InvalidParameter, Message: msg, Status: 400}
}

func ErrUnauthorized(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Status: 401}
}

func ErrForbidden(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Status: 403}
}

func ErrAgentNotFound(agentID int64) *AppError {
	return &AppError{Code: AgentNotFound, Message: fmt.Sprintf("agent %d not found", agentID), Status: 404}
}

func ErrPlayerNotFound(key string) *AppError {
	return &AppError{Code: PlayerNotFound, Message: fmt.Sprintf("player %s not found", key), Status: 404}
}

func ErrUnsupportedWalletMode(mode WalletMode) *AppError {
	return &AppError{Code: UnsupportedWalletMode, Message: fmt.Sprintf("%s wallet does not support this operation", mode), Status: 400}
}

func ErrDuplicateOrder(orderID string) *AppError {
	return &AppError{Code: DuplicateOrder, Message: fmt.Sprintf("order %s already submitted", orderID), Status: 409}
}

// ErrReconciliationRequired reports a second leg and its compensation both failing.
func ErrReconciliationRequired(detail DualFailureDetail, msg string) *AppError {
	return &AppError{Code: ReconciliationRequired, Message: msg, Status: 500, Data: detail}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: SystemError, Message: msg, Status: 500, Cause: cause}
}

// statusFor maps a code range to an HTTP status for the boundary layer.
func statusFor(code ErrorCode) int {
	switch code.Category() {
	case CategorySuccess:
		return 200
	case CategoryAuth:
		return 401
	case CategorySystem:
		return 500
	default:
		return 400
	}
}
