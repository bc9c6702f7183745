package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reconciliationColumns = `id, kind, status, operation, order_id, agent_id, player_key, currency, amount,
		       failed_leg_code, compensation_code, attempts, COALESCE(last_error, ''), COALESCE(resolved_by, ''),
		       created_at, updated_at`

type reconciliationRepo struct{}

// NewReconciliationRepository returns a pgx-backed ReconciliationRepository.
func NewReconciliationRepository() ReconciliationRepository {
	return &reconciliationRepo{}
}

func (r *reconciliationRepo) Insert(ctx context.Context, db DBTX, item *domain.ReconciliationItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = domain.ReconciliationPending
	}
	err := db.QueryRow(ctx, `
		INSERT INTO reconciliation_items
		  (id, kind, status, operation, order_id, agent_id, player_key, currency, amount,
		   failed_leg_code, compensation_code, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING created_at, updated_at`,
		item.ID,
		string(item.Kind),
		string(item.Status),
		item.Operation,
		item.OrderID,
		item.AgentID,
		item.PlayerKey,
		item.Currency,
		infra.Int64ToNumeric(item.Amount),
		int32(item.FailedLegCode),
		int32(item.CompensationCode),
		item.LastError,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reconciliation item: %w", err)
	}
	return nil
}

func (r *reconciliationRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.ReconciliationItem, error) {
	row := db.QueryRow(ctx, `SELECT `+reconciliationColumns+` FROM reconciliation_items WHERE id = $1`, id)
	item, err := scanReconciliation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *reconciliationRepo) List(ctx context.Context, db DBTX, filter domain.ReconciliationFilter) ([]domain.ReconciliationItem, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := []string{"TRUE"}
	args := []interface{}{}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM reconciliation_items WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		reconciliationColumns, strings.Join(where, " AND "), len(args))
	return r.query(ctx, db, query, args...)
}

// LockPending claims pending items so concurrent workers never retry the same win twice.
func (r *reconciliationRepo) LockPending(ctx context.Context, tx pgx.Tx, kind domain.ReconciliationKind, limit int) ([]domain.ReconciliationItem, error) {
	return r.query(ctx, tx, `SELECT `+reconciliationColumns+`
		FROM reconciliation_items
		WHERE kind = $1 AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, string(kind), limit)
}

func (r *reconciliationRepo) MarkResolved(ctx context.Context, db DBTX, id uuid.UUID, resolvedBy string) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE reconciliation_items
		SET status = 'resolved', resolved_by = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'`, id, resolvedBy)
	if err != nil {
		return false, fmt.Errorf("mark resolved: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reconciliationRepo) RecordAttempt(ctx context.Context, db DBTX, id uuid.UUID, lastError string) error {
	_, err := db.Exec(ctx, `
		UPDATE reconciliation_items
		SET attempts = attempts + 1, last_error = NULLIF($2, ''), updated_at = now()
		WHERE id = $1`, id, lastError)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

func (r *reconciliationRepo) query(ctx context.Context, db DBTX, sql string, args ...interface{}) ([]domain.ReconciliationItem, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query reconciliation items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReconciliationItem
	for rows.Next() {
		item, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanReconciliation(row pgx.Row) (*domain.ReconciliationItem, error) {
	var it domain.ReconciliationItem
	var kind, status string
	var amountNum pgtype.Numeric
	var failedCode, compCode int32
	err := row.Scan(&it.ID, &kind, &status, &it.Operation, &it.OrderID, &it.AgentID, &it.PlayerKey,
		&it.Currency, &amountNum, &failedCode, &compCode, &it.Attempts, &it.LastError, &it.ResolvedBy,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan reconciliation item: %w", err)
	}
	it.Kind = domain.ReconciliationKind(kind)
	it.Status = domain.ReconciliationStatus(status)
	it.FailedLegCode = domain.ErrorCode(failedCode)
	it.CompensationCode = domain.ErrorCode(compCode)
	if it.Amount, err = infra.NumericToInt64(amountNum); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &it, nil
}
