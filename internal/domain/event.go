package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventPlayerProvisioned      EventType = "center.player.provisioned"
	EventReconciliationRecorded EventType = "center.reconciliation.recorded"
	EventReconciliationResolved EventType = "center.reconciliation.resolved"
	EventDeferredWinSettled     EventType = "center.wallet.deferred_win.settled"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregatePlayer         AggregateType = "player"
	AggregateWallet         AggregateType = "wallet"
	AggregateReconciliation AggregateType = "reconciliation"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	ID            int64           `json:"-"`
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
