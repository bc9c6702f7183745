package transfer

import (
	"context"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
)

// saga is a two-leg transfer whose first leg is reversed by compensate when the
// second leg fails.
type saga struct {
	operation  string
	orderID    string
	agentID    int64
	playerKey  domain.EntityKey
	currency   string
	amount     int64
	first      domain.Mutation
	second     domain.Mutation
	compensate domain.Mutation
}

// run executes the legs strictly in order. Leg 2 is never attempted after a
// leg 1 failure and compensation is only attempted for a leg 2 failure.
func (o *Orchestrator) run(ctx context.Context, s saga) (first, second domain.Outcome, err error) {
	log := o.logger.With("operation", s.operation, "order_id", s.orderID)
	from, to := s.first.Entity.String(), s.second.Entity.String()

	first = o.store.Mutate(ctx, s.first)
	if !first.OK() {
		log.Warn("first leg failed", "entity", from, "code", int(first.Code), "error", first.Cause)
		infra.ObserveTransfer(s.operation, string(domain.DispositionLegFailed))
		return first, second, legError(first, fmt.Sprintf(
			"%s %s: debit of %s failed (%s); credit not attempted, nothing moved",
			s.operation, s.orderID, from, domain.Message(first.Code)))
	}

	second = o.store.Mutate(ctx, s.second)
	if second.OK() {
		log.Info("transfer completed", "from", from, "to", to, "amount", s.amount)
		infra.ObserveTransfer(s.operation, string(domain.DispositionCompleted))
		return first, second, nil
	}

	log.Warn("second leg failed, compensating", "entity", to, "code", int(second.Code), "error", second.Cause)
	comp := o.store.Mutate(ctx, s.compensate)
	if comp.OK() {
		log.Info("first leg compensated", "entity", from, "rollback_order_id", s.compensate.OrderID)
		infra.ObserveTransfer(s.operation, string(domain.DispositionCompensated))
		return first, second, legError(second, fmt.Sprintf(
			"%s %s: debit of %s succeeded, credit of %s failed (%s); debit reversed as %s",
			s.operation, s.orderID, from, to, domain.Message(second.Code), s.compensate.OrderID))
	}

	log.Error("compensation failed, reconciliation required",
		"entity", from,
		"failed_leg_code", int(second.Code),
		"compensation_code", int(comp.Code),
		"error", comp.Cause,
	)
	infra.ObserveTransfer(s.operation, string(domain.DispositionDualFailure))

	o.record(ctx, log, &domain.ReconciliationItem{
		Kind:             domain.KindDualFailure,
		Operation:        s.operation,
		OrderID:          s.orderID,
		AgentID:          s.agentID,
		PlayerKey:        s.playerKey.ID,
		Currency:         s.currency,
		Amount:           s.amount,
		FailedLegCode:    second.Code,
		CompensationCode: comp.Code,
		LastError:        errString(comp.Cause),
	})

	detail := domain.DualFailureDetail{
		OrderID:          s.orderID,
		FailedLegCode:    second.Code,
		CompensationCode: comp.Code,
	}
	return first, second, domain.ErrReconciliationRequired(detail, fmt.Sprintf(
		"%s %s: debit of %s succeeded, credit of %s failed (%s), reversal %s failed (%s); manual reconciliation required",
		s.operation, s.orderID, from, to, domain.Message(second.Code), s.compensate.OrderID, domain.Message(comp.Code)))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
