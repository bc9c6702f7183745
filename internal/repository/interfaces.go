package repository

import (
	"context"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TxPool is a DBTX that can also open transactions. *pgxpool.Pool satisfies it.
type TxPool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletStore applies single-wallet mutations. Every call is atomic with respect
// to the one wallet row it touches and never returns a Go error: failures are
// classified into Outcome.Code.
type WalletStore interface {
	// Mutate applies a signed delta and appends a ledger row.
	Mutate(ctx context.Context, m domain.Mutation) domain.Outcome

	// Balance reads the current balance and sequence of a wallet.
	Balance(ctx context.Context, key domain.EntityKey) domain.Outcome
}

// AgentRepository provides access to agents.
type AgentRepository interface {
	// FindByID returns an agent or nil when it does not exist.
	FindByID(ctx context.Context, db DBTX, agentID int64) (*domain.Agent, error)
}

// PlayerRepository provides access to players and player_wallets.
type PlayerRepository interface {
	// TouchLastLogin updates last_login and returns the number of rows affected.
	TouchLastLogin(ctx context.Context, db DBTX, account string) (int64, error)

	// Create inserts the player and its zero-balance wallet. Must run inside a transaction.
	Create(ctx context.Context, tx pgx.Tx, player *domain.Player) error

	// FindByAccount returns a player joined with its wallet, or nil.
	FindByAccount(ctx context.Context, db DBTX, account string) (*domain.Player, error)
}

// LedgerRepository reads wallet_transactions.
type LedgerRepository interface {
	// ListByOrder returns entries of the agent and player wallets whose order id
	// is orderID or derived from it (RB_ prefix, _win suffix), oldest first.
	// Order ids are only unique per wallet, so the wallets scope the lookup.
	ListByOrder(ctx context.Context, db DBTX, orderID string, agent, player domain.EntityKey) ([]domain.LedgerEntry, error)

	// ListByEntity returns every entry of one wallet in sequence order.
	ListByEntity(ctx context.Context, db DBTX, key domain.EntityKey) ([]domain.LedgerEntry, error)
}

// ReconciliationRepository provides access to reconciliation_items.
type ReconciliationRepository interface {
	// Insert writes a new pending item.
	Insert(ctx context.Context, db DBTX, item *domain.ReconciliationItem) error

	// FindByID returns an item or nil.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.ReconciliationItem, error)

	// List returns items matching filter, newest first.
	List(ctx context.Context, db DBTX, filter domain.ReconciliationFilter) ([]domain.ReconciliationItem, error)

	// LockPending selects pending items of kind with SKIP LOCKED. Must run inside a transaction.
	LockPending(ctx context.Context, tx pgx.Tx, kind domain.ReconciliationKind, limit int) ([]domain.ReconciliationItem, error)

	// MarkResolved moves a pending item to resolved. Returns false if it was not pending.
	MarkResolved(ctx context.Context, db DBTX, id uuid.UUID, resolvedBy string) (bool, error)

	// RecordAttempt increments the attempt counter and stores the last error.
	RecordAttempt(ctx context.Context, db DBTX, id uuid.UUID, lastError string) error
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the state change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished stamps publishedAt on the given rows.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
