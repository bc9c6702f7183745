package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgAccounts implements Accounts on Postgres.
type PgAccounts struct {
	pool    repository.TxPool
	players repository.PlayerRepository
	outbox  repository.OutboxRepository
}

// NewPgAccounts creates a Postgres-backed account store.
func NewPgAccounts(pool repository.TxPool, players repository.PlayerRepository, outbox repository.OutboxRepository) *PgAccounts {
	return &PgAccounts{pool: pool, players: players, outbox: outbox}
}

func (a *PgAccounts) TouchLastLogin(ctx context.Context, account string) (int64, error) {
	return a.players.TouchLastLogin(ctx, a.pool, account)
}

// Create inserts the player, its wallet and a provisioned event atomically.
func (a *PgAccounts) Create(ctx context.Context, player *domain.Player) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := a.players.Create(ctx, tx, player); err != nil {
		if isUniqueViolation(err) {
			return ErrAccountExists
		}
		return err
	}
	if err := a.outbox.Insert(ctx, tx, domain.NewPlayerProvisionedEvent(player.AgentID, player.Account, player.Currency)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PgRecorder implements Recorder on Postgres.
type PgRecorder struct {
	pool   repository.TxPool
	recon  repository.ReconciliationRepository
	outbox repository.OutboxRepository
}

// NewPgRecorder creates a Postgres-backed recorder.
func NewPgRecorder(pool repository.TxPool, recon repository.ReconciliationRepository, outbox repository.OutboxRepository) *PgRecorder {
	return &PgRecorder{pool: pool, recon: recon, outbox: outbox}
}

// Record inserts the item and its recorded event in one transaction.
func (r *PgRecorder) Record(ctx context.Context, item *domain.ReconciliationItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.recon.Insert(ctx, tx, item); err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, domain.NewReconciliationRecordedEvent(item)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
