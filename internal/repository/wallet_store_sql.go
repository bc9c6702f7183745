package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/jackc/pgx/v5"
)

// sqlStore applies a mutation as UPDATE ... RETURNING plus a ledger insert in one
// pgx transaction. The balance guard lives in the WHERE clause.
type sqlStore struct {
	storeBase
}

func (s *sqlStore) Mutate(ctx context.Context, m domain.Mutation) domain.Outcome {
	return s.finish(m, s.mutate(ctx, m))
}

func (s *sqlStore) mutate(ctx context.Context, m domain.Mutation) domain.Outcome {
	tbl, ok := walletTables[m.Entity.Kind]
	if !ok {
		return domain.Failed(domain.InvalidParameter, fmt.Errorf("unknown entity kind: %q", m.Entity.Kind))
	}
	arg, err := keyArg(m.Entity)
	if err != nil {
		return domain.Failed(domain.InvalidParameter, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Failed(classifyError(err), fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	// Step 1: guarded balance update with server-side arithmetic
	out, err := scanBalance(tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s
		SET balance = balance + $1, sequence = sequence + 1, updated_at = now()
		WHERE %s = $2 AND balance + $1 >= 0
		RETURNING balance, sequence`, tbl.table, tbl.keyColumn),
		infra.Int64ToNumeric(m.Delta), arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return s.missOrShort(ctx, tx, tbl, arg)
	}
	if err != nil {
		return domain.Failed(classifyError(err), fmt.Errorf("update %s: %w", tbl.table, err))
	}

	// Step 2: append-only ledger row; the unique index rejects a replayed order id
	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_transactions
		  (wallet_kind, entity_key, order_id, action, transaction_type, amount, balance_after, sequence, currency, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(m.Entity.Kind),
		m.Entity.ID,
		m.OrderID,
		int32(m.Action),
		int32(m.Type),
		infra.Int64ToNumeric(m.Delta),
		infra.Int64ToNumeric(out.Balance),
		out.Sequence,
		m.Currency,
		nullableMemo(m.Memo),
	)
	if err != nil {
		return domain.Failed(classifyError(err), fmt.Errorf("insert ledger entry: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Failed(classifyError(err), fmt.Errorf("commit: %w", err))
	}
	return out
}

// missOrShort distinguishes an unknown wallet from a balance guard rejection.
func (s *sqlStore) missOrShort(ctx context.Context, tx pgx.Tx, tbl walletTable, arg interface{}) domain.Outcome {
	var exists bool
	err := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`, tbl.table, tbl.keyColumn), arg).Scan(&exists)
	if err != nil {
		return domain.Failed(classifyError(err), fmt.Errorf("check %s: %w", tbl.table, err))
	}
	if !exists {
		return domain.Failed(tbl.notFound, nil)
	}
	return domain.Failed(tbl.insufficient, nil)
}

func (s *sqlStore) Balance(ctx context.Context, key domain.EntityKey) domain.Outcome {
	return s.balance(ctx, key)
}
