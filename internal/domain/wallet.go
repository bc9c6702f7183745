package domain

import (
	"fmt"
	"strconv"
)

// EntityKind identifies which balance store owns a wallet.
type EntityKind string

const (
	EntityAgent  EntityKind = "agent"
	EntityPlayer EntityKind = "player"
)

// EntityKey addresses exactly one wallet row.
// Agents are keyed by numeric id, players by "{agentId}_{playerName}".
type EntityKey struct {
	Kind EntityKind
	ID   string
}

// AgentKey returns the wallet key of an agent.
func AgentKey(agentID int64) EntityKey {
	return EntityKey{Kind: EntityAgent, ID: strconv.FormatInt(agentID, 10)}
}

// PlayerKey returns the wallet key of a player scoped under its agent.
func PlayerKey(agentID int64, playerName string) EntityKey {
	return EntityKey{Kind: EntityPlayer, ID: PlayerAccount(agentID, playerName)}
}

// PlayerAccount builds the composite account name stored in the players table.
func PlayerAccount(agentID int64, playerName string) string {
	return fmt.Sprintf("%d_%s", agentID, playerName)
}

func (k EntityKey) String() string { return string(k.Kind) + ":" + k.ID }

// AgentID parses the numeric id of an agent key.
func (k EntityKey) AgentID() (int64, error) {
	if k.Kind != EntityAgent {
		return 0, fmt.Errorf("entity %s is not an agent", k)
	}
	return strconv.ParseInt(k.ID, 10, 64)
}

// WalletMode is the settlement mode of an agent. The set is closed.
type WalletMode int

const (
	WalletTransfer WalletMode = 0
	WalletSingle   WalletMode = 1
)

func (m WalletMode) String() string {
	switch m {
	case WalletTransfer:
		return "transfer"
	case WalletSingle:
		return "single"
	default:
		return fmt.Sprintf("wallet_mode(%d)", int(m))
	}
}

// ParseWalletMode validates a stored wallet mode value.
func ParseWalletMode(v int) (WalletMode, error) {
	switch WalletMode(v) {
	case WalletTransfer, WalletSingle:
		return WalletMode(v), nil
	default:
		return 0, fmt.Errorf("unknown wallet mode: %d", v)
	}
}

// WalletAction is the coarse direction of a wallet mutation.
type WalletAction int

const (
	ActionPlayerDeposit          WalletAction = 1
	ActionPlayerDepositRollback  WalletAction = 2
	ActionPlayerWithdraw         WalletAction = 3
	ActionPlayerWithdrawRollback WalletAction = 4
)

// TransactionType is the fine-grained ledger classification of a mutation.
type TransactionType int

const (
	// Transfer wallet (1-4)
	TxTransferDeposit          TransactionType = 1
	TxTransferDepositRollback  TransactionType = 2
	TxTransferWithdraw         TransactionType = 3
	TxTransferWithdrawRollback TransactionType = 4

	// Game (5-10)
	TxGameBet       TransactionType = 5
	TxGameWin       TransactionType = 6
	TxGameCancelBet TransactionType = 7

	// Single wallet (11-20)
	TxSingleGameBet               TransactionType = 11
	TxSingleGameBetRollback       TransactionType = 12
	TxSingleGameWin               TransactionType = 13
	TxSingleGameWinRollback       TransactionType = 14
	TxSingleGameCancelBet         TransactionType = 15
	TxSingleGameCancelBetRollback TransactionType = 16
)

const (
	rollbackPrefix = "RB_"
	winSuffix      = "_win"
)

// RollbackOrderID derives the order id of a compensating mutation.
func RollbackOrderID(orderID string) string { return rollbackPrefix + orderID }

// WinOrderID derives the order id of the settlement leg of a bet.
func WinOrderID(orderID string) string { return orderID + winSuffix }

// Mutation is one signed balance change against a single wallet.
type Mutation struct {
	Entity   EntityKey
	Delta    int64 // base units; negative debits
	Action   WalletAction
	Type     TransactionType
	Currency string
	OrderID  string
	Memo     string
}

// Outcome is the result of one wallet store call.
// Code is Success only when the mutation was applied; Cause carries the underlying
// error for logging when the store classified a failure.
type Outcome struct {
	Code     ErrorCode
	Balance  int64
	Sequence int64
	Cause    error
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool { return o.Code == Success }

// Failed returns an outcome carrying only a code and its cause.
func Failed(code ErrorCode, cause error) Outcome {
	return Outcome{Code: code, Cause: cause}
}
