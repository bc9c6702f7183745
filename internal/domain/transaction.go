package domain

import "time"

// LedgerEntry represents a wallet_transactions row (append-only, one per applied mutation).
type LedgerEntry struct {
	ID           int64           `json:"id"`
	WalletKind   EntityKind      `json:"wallet_kind"`
	EntityKey    string          `json:"entity_key"`
	OrderID      string          `json:"order_id"`
	Action       WalletAction    `json:"action"`
	Type         TransactionType `json:"transaction_type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	Sequence     int64           `json:"sequence"`
	Currency     string          `json:"currency"`
	Memo         string          `json:"memo,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransferResult is what the orchestrator returns on success or compensated failure.
// Balance is the post-operation balance of the wallet the caller cares about
// (the player for deposit, withdraw and bet).
type TransferResult struct {
	Disposition Disposition `json:"disposition"`
	Balance     int64       `json:"balance"`
	Sequence    int64       `json:"sequence"`
}

// Disposition classifies how a multi-leg operation ended.
type Disposition string

const (
	DispositionCompleted   Disposition = "completed"
	DispositionRejected    Disposition = "rejected"
	DispositionLegFailed   Disposition = "leg_failed"
	DispositionCompensated Disposition = "compensated"
	DispositionDualFailure Disposition = "dual_failure"
	DispositionDeferred    Disposition = "deferred"
)

// DualFailureDetail is attached to a ReconciliationRequired error.
type DualFailureDetail struct {
	OrderID          string    `json:"orderId"`
	FailedLegCode    ErrorCode `json:"failedLegCode"`
	CompensationCode ErrorCode `json:"compensationCode"`
}
