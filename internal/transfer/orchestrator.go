package transfer

import (
	"context"
	"log/slog"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/guard"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/attaboy/walletcenter/internal/repository"
)

// Operation names used in logs, metrics and reconciliation records.
const (
	OpDeposit      = "deposit"
	OpWithdraw     = "withdraw"
	OpBetAndSettle = "bet_and_settle"
)

const recordTimeout = 5 * time.Second

// Recorder persists conditions that need out-of-band handling.
type Recorder interface {
	Record(ctx context.Context, item *domain.ReconciliationItem) error
}

// Orchestrator sequences independently atomic wallet mutations into deposits,
// withdrawals and bets. It holds no per-request state.
type Orchestrator struct {
	store    repository.WalletStore
	recorder Recorder
	accounts Accounts
	orders   *guard.IdempotencyGuard
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator over store.
func NewOrchestrator(store repository.WalletStore, recorder Recorder, accounts Accounts, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		recorder: recorder,
		accounts: accounts,
		logger:   logger.With("component", "orchestrator"),
	}
}

// WithIdempotencyGuard rejects duplicate order submissions before any store call.
func (o *Orchestrator) WithIdempotencyGuard(g *guard.IdempotencyGuard) *Orchestrator {
	o.orders = g
	return o
}

// TransferParams describes a deposit or withdrawal. Amount is in base units.
type TransferParams struct {
	AgentID    int64
	WalletMode domain.WalletMode
	PlayerName string
	OrderID    string
	Amount     int64
	Currency   string
	Memo       string
}

// BetParams describes one bet and its settlement. Bet and Win are in base units.
type BetParams struct {
	AgentID    int64
	WalletMode domain.WalletMode
	PlayerName string
	OrderID    string
	GameID     int
	GameNo     string
	Bet        int64
	Win        int64
	Currency   string
}

// requireTransferWallet rejects modes the orchestrator cannot settle.
func requireTransferWallet(mode domain.WalletMode) error {
	switch mode {
	case domain.WalletTransfer:
		return nil
	case domain.WalletSingle:
		return domain.ErrUnsupportedWalletMode(mode)
	default:
		return domain.ErrValidation("unknown wallet mode " + mode.String())
	}
}

func validateCommon(agentID int64, playerName, orderID, currency string) (string, error) {
	if agentID <= 0 {
		return "", domain.ErrValidation("agent id must be positive")
	}
	name, err := domain.NormalizePlayerName(playerName)
	if err != nil {
		return "", domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateOrderID(orderID); err != nil {
		return "", domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateCurrency(currency); err != nil {
		return "", domain.ErrValidation(err.Error())
	}
	return name, nil
}

// claim reserves the order against key. The returned func must be called with
// whether money moved.
func (o *Orchestrator) claim(operation string, key domain.EntityKey, orderID string) (func(moved bool), error) {
	if o.orders == nil {
		return func(bool) {}, nil
	}
	k := guard.OrderKey(key.String(), orderID)
	if res := o.orders.Acquire(k); !res.Allowed {
		infra.ObserveTransfer(operation, string(domain.DispositionRejected))
		o.logger.Warn("duplicate order rejected", "operation", operation, "order_id", orderID, "reason", res.Reason)
		return nil, domain.ErrDuplicateOrder(orderID)
	}
	return func(moved bool) {
		if moved {
			o.orders.Complete(k)
			return
		}
		o.orders.Release(k)
	}, nil
}

func (o *Orchestrator) reject(operation string, err error) error {
	infra.ObserveTransfer(operation, string(domain.DispositionRejected))
	return err
}

// record writes item on a context detached from the request so a cancelled
// caller cannot lose the record.
func (o *Orchestrator) record(ctx context.Context, log *slog.Logger, item *domain.ReconciliationItem) {
	if o.recorder == nil {
		log.Error("no recorder configured, reconciliation item dropped", "kind", item.Kind)
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := o.recorder.Record(rctx, item); err != nil {
		log.Error("failed to record reconciliation item", "kind", item.Kind, "error", err)
		return
	}
	log.Info("reconciliation item recorded", "kind", item.Kind, "id", item.ID)
}

func legError(out domain.Outcome, msg string) *domain.AppError {
	e := domain.NewAppError(out.Code, msg)
	e.Cause = out.Cause
	return e
}
