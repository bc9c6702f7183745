package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Wallet store strategies selectable with WALLET_STORE_STRATEGY.
const (
	StrategyProcedure = "procedure"
	StrategySQL       = "sql"
)

const pgUniqueViolation = "23505"

// NewWalletStore returns the strategy named by strategy. Both strategies share the
// same contract; the orchestrator never knows which one it talks to.
func NewWalletStore(strategy string, pool TxPool, timeout time.Duration, logger *slog.Logger) (WalletStore, error) {
	base := storeBase{pool: pool, timeout: timeout, logger: logger.With("component", "wallet_store", "strategy", strategy)}
	switch strategy {
	case StrategyProcedure:
		return &procedureStore{storeBase: base}, nil
	case StrategySQL:
		return &sqlStore{storeBase: base}, nil
	default:
		return nil, fmt.Errorf("unknown wallet store strategy: %q", strategy)
	}
}

// walletTable describes where one entity kind keeps its balance.
type walletTable struct {
	table        string
	keyColumn    string
	procedure    string
	notFound     domain.ErrorCode
	insufficient domain.ErrorCode
}

var walletTables = map[domain.EntityKind]walletTable{
	domain.EntityAgent: {
		table:        "agents",
		keyColumn:    "agent_id",
		procedure:    "update_agent_wallet",
		notFound:     domain.StoreAgentNotExists,
		insufficient: domain.StoreAgentInsufficientBalance,
	},
	domain.EntityPlayer: {
		table:        "player_wallets",
		keyColumn:    "account",
		procedure:    "update_player_wallet",
		notFound:     domain.StorePlayerWalletNotExists,
		insufficient: domain.StorePlayerInsufficientBalance,
	},
}

// keyArg converts the entity key into the column's native type.
func keyArg(key domain.EntityKey) (interface{}, error) {
	switch key.Kind {
	case domain.EntityAgent:
		return key.AgentID()
	case domain.EntityPlayer:
		if key.ID == "" {
			return nil, fmt.Errorf("empty player key")
		}
		return key.ID, nil
	default:
		return nil, fmt.Errorf("unknown entity kind: %q", key.Kind)
	}
}

type storeBase struct {
	pool    TxPool
	timeout time.Duration
	logger  *slog.Logger
}

func (s *storeBase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// finish logs and counts a call before handing the outcome back.
func (s *storeBase) finish(m domain.Mutation, out domain.Outcome) domain.Outcome {
	infra.ObserveMutation(string(m.Entity.Kind), int(out.Code))
	if out.OK() {
		s.logger.Debug("wallet mutated",
			"entity", m.Entity.String(), "order_id", m.OrderID, "delta", m.Delta,
			"balance", out.Balance, "sequence", out.Sequence)
		return out
	}
	level := slog.LevelWarn
	if out.Code.IsSystem() {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "wallet mutation failed",
		"entity", m.Entity.String(), "order_id", m.OrderID, "delta", m.Delta,
		"code", int(out.Code), "error", out.Cause)
	return out
}

// balance reads a wallet row directly; shared by both strategies.
func (s *storeBase) balance(ctx context.Context, key domain.EntityKey) domain.Outcome {
	tbl, ok := walletTables[key.Kind]
	if !ok {
		return domain.Failed(domain.InvalidParameter, fmt.Errorf("unknown entity kind: %q", key.Kind))
	}
	arg, err := keyArg(key)
	if err != nil {
		return domain.Failed(domain.InvalidParameter, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out, err := scanBalance(s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT balance, sequence FROM %s WHERE %s = $1`, tbl.table, tbl.keyColumn), arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Failed(tbl.notFound, err)
	}
	if err != nil {
		return domain.Failed(classifyError(err), err)
	}
	return out
}

// classifyError maps a backend error into the system code range. Connectivity and
// timeouts are 9002, anything the server rejected is 9003.
func classifyError(err error) domain.ErrorCode {
	if err == nil {
		return domain.Success
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.DatabaseConnectionError
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return domain.DatabaseConnectionError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.DatabaseConnectionError
	}
	if pgconn.Timeout(err) {
		return domain.DatabaseConnectionError
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.StoreDuplicateOrder
	}
	return domain.DatabaseExecutionError
}

func scanBalance(row pgx.Row) (domain.Outcome, error) {
	var balNum pgtype.Numeric
	var seq int64
	if err := row.Scan(&balNum, &seq); err != nil {
		return domain.Outcome{}, err
	}
	bal, err := infra.NumericToInt64(balNum)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("convert balance: %w", err)
	}
	return domain.Outcome{Code: domain.Success, Balance: bal, Sequence: seq}, nil
}

func nullableMemo(memo string) *string {
	if memo == "" {
		return nil
	}
	return &memo
}
