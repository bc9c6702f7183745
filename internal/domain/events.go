package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewPlayerProvisionedEvent is emitted when login creates a player and its wallet.
func NewPlayerProvisionedEvent(agentID int64, account, currency string) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"agent_id": agentID,
		"account":  account,
		"currency": currency,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregatePlayer,
		AggregateID:   account,
		EventType:     EventPlayerProvisioned,
		PartitionKey:  strconv.FormatInt(agentID, 10),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewReconciliationRecordedEvent announces a dual failure or a deferred win.
func NewReconciliationRecordedEvent(item *ReconciliationItem) OutboxDraft {
	return reconciliationEvent(item, EventReconciliationRecorded)
}

// NewReconciliationResolvedEvent announces that an item left the pending state.
func NewReconciliationResolvedEvent(item *ReconciliationItem) OutboxDraft {
	return reconciliationEvent(item, EventReconciliationResolved)
}

// NewDeferredWinSettledEvent is emitted by the retrier when a win credit finally lands.
func NewDeferredWinSettledEvent(item *ReconciliationItem, balance int64) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"reconciliation_id": item.ID.String(),
		"order_id":          WinOrderID(item.OrderID),
		"player_key":        item.PlayerKey,
		"amount":            item.Amount,
		"balance":           balance,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   item.PlayerKey,
		EventType:     EventDeferredWinSettled,
		PartitionKey:  item.PlayerKey,
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

func reconciliationEvent(item *ReconciliationItem, evtType EventType) OutboxDraft {
	payload, _ := json.Marshal(item)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateReconciliation,
		AggregateID:   item.ID.String(),
		EventType:     evtType,
		PartitionKey:  item.PlayerKey,
		Headers:       json.RawMessage(`{"kind":"` + string(item.Kind) + `"}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
