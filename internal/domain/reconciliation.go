package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationKind distinguishes why an item needs out-of-band handling.
type ReconciliationKind string

const (
	// KindDualFailure: a second leg and its compensation both failed.
	KindDualFailure ReconciliationKind = "dual_failure"
	// KindDeferredWin: the win credit of a bet failed and must be retried.
	KindDeferredWin ReconciliationKind = "deferred_win"
)

// ReconciliationStatus is the processing state of an item.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationResolved ReconciliationStatus = "resolved"
)

// ReconciliationItem represents a reconciliation_items row.
type ReconciliationItem struct {
	ID               uuid.UUID            `json:"id"`
	Kind             ReconciliationKind   `json:"kind"`
	Status           ReconciliationStatus `json:"status"`
	Operation        string               `json:"operation"`
	OrderID          string               `json:"order_id"`
	AgentID          int64                `json:"agent_id"`
	PlayerKey        string               `json:"player_key"`
	Currency         string               `json:"currency"`
	Amount           int64                `json:"amount"`
	FailedLegCode    ErrorCode            `json:"failed_leg_code"`
	CompensationCode ErrorCode            `json:"compensation_code,omitempty"`
	Attempts         int                  `json:"attempts"`
	LastError        string               `json:"last_error,omitempty"`
	ResolvedBy       string               `json:"resolved_by,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Wallets returns the agent and player wallets the item's order touched.
func (it *ReconciliationItem) Wallets() (agent, player EntityKey) {
	return AgentKey(it.AgentID), EntityKey{Kind: EntityPlayer, ID: it.PlayerKey}
}

// ReconciliationFilter narrows admin listing.
type ReconciliationFilter struct {
	Kind   ReconciliationKind
	Status ReconciliationStatus
	Limit  int
}
