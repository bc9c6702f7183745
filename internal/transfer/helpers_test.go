package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory WalletStore that records every call and can be told
// to fail a specific (entity, orderId) pair.
type fakeStore struct {
	mu       sync.Mutex
	balances map[string]int64
	seqs     map[string]int64
	applied  map[string]bool
	fail     map[string]domain.ErrorCode
	calls    []domain.Mutation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances: make(map[string]int64),
		seqs:     make(map[string]int64),
		applied:  make(map[string]bool),
		fail:     make(map[string]domain.ErrorCode),
	}
}

func (f *fakeStore) set(key domain.EntityKey, balance int64) *fakeStore {
	f.balances[key.String()] = balance
	return f
}

func (f *fakeStore) failOn(key domain.EntityKey, orderID string, code domain.ErrorCode) *fakeStore {
	f.fail[key.String()+"|"+orderID] = code
	return f
}

func (f *fakeStore) balance(key domain.EntityKey) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[key.String()]
}

func (f *fakeStore) mutations() []domain.Mutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Mutation(nil), f.calls...)
}

func (f *fakeStore) Mutate(_ context.Context, m domain.Mutation) domain.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, m)

	k := m.Entity.String()
	if code, ok := f.fail[k+"|"+m.OrderID]; ok {
		return domain.Failed(code, errInjected)
	}
	bal, ok := f.balances[k]
	if !ok {
		if m.Entity.Kind == domain.EntityAgent {
			return domain.Failed(domain.StoreAgentNotExists, nil)
		}
		return domain.Failed(domain.StorePlayerWalletNotExists, nil)
	}
	if f.applied[k+"|"+m.OrderID] {
		return domain.Failed(domain.StoreDuplicateOrder, nil)
	}
	if bal+m.Delta < 0 {
		if m.Entity.Kind == domain.EntityAgent {
			return domain.Failed(domain.StoreAgentInsufficientBalance, nil)
		}
		return domain.Failed(domain.StorePlayerInsufficientBalance, nil)
	}
	f.balances[k] = bal + m.Delta
	f.seqs[k]++
	f.applied[k+"|"+m.OrderID] = true
	return domain.Outcome{Code: domain.Success, Balance: f.balances[k], Sequence: f.seqs[k]}
}

func (f *fakeStore) Balance(_ context.Context, key domain.EntityKey) domain.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	bal, ok := f.balances[key.String()]
	if !ok {
		return domain.Failed(domain.StorePlayerWalletNotExists, nil)
	}
	return domain.Outcome{Code: domain.Success, Balance: bal, Sequence: f.seqs[key.String()]}
}

type fakeRecorder struct {
	mu       sync.Mutex
	items    []domain.ReconciliationItem
	err      error
	ctxAlive []bool
}

func (r *fakeRecorder) Record(ctx context.Context, item *domain.ReconciliationItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxAlive = append(r.ctxAlive, ctx.Err() == nil)
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, *item)
	return nil
}

type fakeAccounts struct {
	existing  map[string]bool
	touchErr  error
	createErr error
	created   []domain.Player
}

func (a *fakeAccounts) TouchLastLogin(_ context.Context, account string) (int64, error) {
	if a.touchErr != nil {
		return 0, a.touchErr
	}
	if a.existing[account] {
		return 1, nil
	}
	return 0, nil
}

func (a *fakeAccounts) Create(_ context.Context, p *domain.Player) error {
	if a.createErr != nil {
		return a.createErr
	}
	a.created = append(a.created, *p)
	if a.existing == nil {
		a.existing = make(map[string]bool)
	}
	a.existing[p.Account] = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testAgent int64 = 7

var (
	agentKey  = domain.AgentKey(testAgent)
	playerKey = domain.PlayerKey(testAgent, "alice")
)

func newTestOrchestrator(store *fakeStore) (*Orchestrator, *fakeRecorder) {
	rec := &fakeRecorder{}
	return NewOrchestrator(store, rec, &fakeAccounts{}, testLogger()), rec
}

func transferParams(orderID string, amount int64) TransferParams {
	return TransferParams{
		AgentID:    testAgent,
		WalletMode: domain.WalletTransfer,
		PlayerName: "alice",
		OrderID:    orderID,
		Amount:     amount,
		Currency:   "TWD",
	}
}

func betParams(orderID string, bet, win int64) BetParams {
	return BetParams{
		AgentID:    testAgent,
		WalletMode: domain.WalletTransfer,
		PlayerName: "alice",
		OrderID:    orderID,
		GameID:     3,
		GameNo:     "r-1",
		Bet:        bet,
		Win:        win,
		Currency:   "TWD",
	}
}

func requireAppCode(t *testing.T, err error, code domain.ErrorCode) *domain.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected *domain.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}
