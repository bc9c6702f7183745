package repository

import (
	"context"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type ledgerRepo struct{}

// NewLedgerRepository returns a pgx-backed LedgerRepository.
func NewLedgerRepository() LedgerRepository {
	return &ledgerRepo{}
}

func (r *ledgerRepo) ListByOrder(ctx context.Context, db DBTX, orderID string, agent, player domain.EntityKey) ([]domain.LedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT id, wallet_kind, entity_key, order_id, action, transaction_type,
		       amount, balance_after, sequence, currency, COALESCE(memo, ''), created_at
		FROM wallet_transactions
		WHERE order_id IN ($1, $2, $3)
		  AND ((wallet_kind = $4 AND entity_key = $5) OR (wallet_kind = $6 AND entity_key = $7))
		ORDER BY id ASC`,
		orderID, domain.RollbackOrderID(orderID), domain.WinOrderID(orderID),
		string(agent.Kind), agent.ID, string(player.Kind), player.ID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *ledgerRepo) ListByEntity(ctx context.Context, db DBTX, key domain.EntityKey) ([]domain.LedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT id, wallet_kind, entity_key, order_id, action, transaction_type,
		       amount, balance_after, sequence, currency, COALESCE(memo, ''), created_at
		FROM wallet_transactions
		WHERE wallet_kind = $1 AND entity_key = $2
		ORDER BY sequence ASC, id ASC`,
		string(key.Kind), key.ID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries of %s: %w", key, err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var action, txType int16
	var amountNum, balNum pgtype.Numeric
	err := row.Scan(&e.ID, &e.WalletKind, &e.EntityKey, &e.OrderID, &action, &txType,
		&amountNum, &balNum, &e.Sequence, &e.Currency, &e.Memo, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	e.Action = domain.WalletAction(action)
	e.Type = domain.TransactionType(txType)

	if e.Amount, err = infra.NumericToInt64(amountNum); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	if e.BalanceAfter, err = infra.NumericToInt64(balNum); err != nil {
		return nil, fmt.Errorf("convert balance_after: %w", err)
	}
	return &e, nil
}
