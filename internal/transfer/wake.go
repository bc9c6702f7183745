package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the consuming side of the broker. *infra.KafkaConsumer satisfies it.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// WakeOnDeferred reads reconciliation.recorded events and wakes the retrier for each
// deferred win, so a fresh failure is retried without waiting for the next tick.
// It returns nil when the reader is disabled or ctx is done.
func WakeOnDeferred(ctx context.Context, reader MessageReader, retrier *Retrier, logger *slog.Logger) error {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, infra.ErrKafkaDisabled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var evt infra.OutboxMessage
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Warn("skipping undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}
		if domain.ReconciliationKind(evt.Header("kind")) == domain.KindDeferredWin {
			logger.Debug("deferred win recorded, waking retrier", "event_id", evt.EventID)
			retrier.Wake()
		}
	}
}
