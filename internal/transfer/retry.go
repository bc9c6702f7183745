package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/guard"
	"github.com/attaboy/walletcenter/internal/repository"
)

const resolvedByRetrier = "settlement-worker"

// Retrier re-issues deferred win credits until they land.
type Retrier struct {
	pool      repository.TxPool
	recon     repository.ReconciliationRepository
	outbox    repository.OutboxRepository
	store     repository.WalletStore
	breaker   *guard.CircuitBreaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	wake      chan struct{}
}

// NewRetrier creates a retrier. The breaker is keyed per player wallet.
func NewRetrier(
	pool repository.TxPool,
	recon repository.ReconciliationRepository,
	outbox repository.OutboxRepository,
	store repository.WalletStore,
	breaker *guard.CircuitBreaker,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Retrier {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Retrier{
		pool:      pool,
		recon:     recon,
		outbox:    outbox,
		store:     store,
		breaker:   breaker,
		logger:    logger.With("component", "retrier"),
		interval:  interval,
		batchSize: batchSize,
		wake:      make(chan struct{}, 1),
	}
}

// Wake asks Run to start a pass now instead of waiting for the next tick.
func (r *Retrier) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (r *Retrier) Run(ctx context.Context) {
	r.logger.Info("retrier started", "interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("retrier stopped")
			return
		case <-ticker.C:
			r.pass(ctx)
		case <-r.wake:
			r.pass(ctx)
		}
	}
}

func (r *Retrier) pass(ctx context.Context) {
	stats, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("retry pass failed", "error", err)
		return
	}
	if stats.Settled+stats.Failed > 0 {
		r.logger.Info("retry pass complete", "settled", stats.Settled, "failed", stats.Failed, "skipped", stats.Skipped)
	}
}

// RetryStats summarizes one pass.
type RetryStats struct {
	Settled int
	Failed  int
	Skipped int
}

// RunOnce claims a batch of pending deferred wins and retries each once.
func (r *Retrier) RunOnce(ctx context.Context) (RetryStats, error) {
	var stats RetryStats

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	items, err := r.recon.LockPending(ctx, tx, domain.KindDeferredWin, r.batchSize)
	if err != nil {
		return stats, err
	}

	for i := range items {
		item := &items[i]
		res := r.settle(ctx, item)
		switch res.state {
		case settleSkipped:
			stats.Skipped++
		case settleFailed:
			stats.Failed++
			if err := r.recon.RecordAttempt(ctx, tx, item.ID, res.reason); err != nil {
				return stats, err
			}
		case settleDone:
			stats.Settled++
			if _, err := r.recon.MarkResolved(ctx, tx, item.ID, resolvedByRetrier); err != nil {
				return stats, err
			}
			item.Status = domain.ReconciliationResolved
			item.ResolvedBy = resolvedByRetrier
			if err := r.outbox.Insert(ctx, tx, domain.NewDeferredWinSettledEvent(item, res.balance)); err != nil {
				return stats, err
			}
			if err := r.outbox.Insert(ctx, tx, domain.NewReconciliationResolvedEvent(item)); err != nil {
				return stats, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit: %w", err)
	}
	return stats, nil
}

type settleState int

const (
	settleDone settleState = iota + 1
	settleFailed
	settleSkipped
)

type settleResult struct {
	state   settleState
	balance int64
	reason  string
}

// settle re-issues the win credit under its original {orderId}_win id. A
// duplicate-order code means an earlier attempt landed.
func (r *Retrier) settle(ctx context.Context, item *domain.ReconciliationItem) settleResult {
	key := domain.EntityKey{Kind: domain.EntityPlayer, ID: item.PlayerKey}
	log := r.logger.With("id", item.ID, "order_id", item.OrderID, "player", item.PlayerKey)

	if res := r.breaker.Check(key.String()); !res.Allowed {
		log.Debug("retry skipped", "reason", res.Reason)
		return settleResult{state: settleSkipped, reason: res.Reason}
	}

	out := r.store.Mutate(ctx, domain.Mutation{
		Entity:   key,
		Delta:    item.Amount,
		Action:   domain.ActionPlayerDeposit,
		Type:     domain.TxGameWin,
		Currency: item.Currency,
		OrderID:  domain.WinOrderID(item.OrderID),
		Memo:     "deferred win retry",
	})

	switch {
	case out.OK():
		r.breaker.RecordSuccess(key.String())
		log.Info("deferred win settled", "amount", item.Amount, "balance", out.Balance)
		return settleResult{state: settleDone, balance: out.Balance}
	case out.Code == domain.StoreDuplicateOrder:
		r.breaker.RecordSuccess(key.String())
		bal := r.store.Balance(ctx, key)
		log.Info("deferred win already applied", "balance", bal.Balance)
		return settleResult{state: settleDone, balance: bal.Balance}
	default:
		r.breaker.RecordFailure(key.String())
		reason := out.Code.String()
		if out.Cause != nil {
			reason += ": " + out.Cause.Error()
		}
		log.Warn("deferred win retry failed", "code", int(out.Code), "attempts", item.Attempts+1)
		return settleResult{state: settleFailed, reason: reason}
	}
}
