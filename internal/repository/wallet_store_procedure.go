package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// procedureStore delegates each mutation to a Postgres function returning
// (err_code, balance, seq). The function owns its own rollback.
type procedureStore struct {
	storeBase
}

func (s *procedureStore) Mutate(ctx context.Context, m domain.Mutation) domain.Outcome {
	tbl, ok := walletTables[m.Entity.Kind]
	if !ok {
		return s.finish(m, domain.Failed(domain.InvalidParameter, fmt.Errorf("unknown entity kind: %q", m.Entity.Kind)))
	}
	arg, err := keyArg(m.Entity)
	if err != nil {
		return s.finish(m, domain.Failed(domain.InvalidParameter, err))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		code   *int32
		balNum pgtype.Numeric
		seq    *int64
	)
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT err_code, balance, seq FROM %s($1, $2, $3, $4, $5, $6, $7)`, tbl.procedure),
		arg,
		infra.Int64ToNumeric(m.Delta),
		int32(m.Action),
		int32(m.Type),
		m.Currency,
		m.OrderID,
		nullableMemo(m.Memo),
	).Scan(&code, &balNum, &seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.finish(m, domain.Failed(domain.StoreNoResult, err))
	}
	if err != nil {
		return s.finish(m, domain.Failed(classifyError(err), fmt.Errorf("call %s: %w", tbl.procedure, err)))
	}
	if code == nil {
		return s.finish(m, domain.Failed(domain.StoreNoResult, fmt.Errorf("%s returned a null code", tbl.procedure)))
	}
	if *code != 0 {
		return s.finish(m, domain.Failed(domain.ErrorCode(*code), nil))
	}
	if seq == nil || !balNum.Valid {
		return s.finish(m, domain.Failed(domain.StoreNoResult, fmt.Errorf("%s succeeded without a balance", tbl.procedure)))
	}

	bal, err := infra.NumericToInt64(balNum)
	if err != nil {
		return s.finish(m, domain.Failed(domain.DatabaseExecutionError, fmt.Errorf("convert balance: %w", err)))
	}
	return s.finish(m, domain.Outcome{Code: domain.Success, Balance: bal, Sequence: *seq})
}

func (s *procedureStore) Balance(ctx context.Context, key domain.EntityKey) domain.Outcome {
	return s.balance(ctx, key)
}
