package service

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/attaboy/walletcenter/internal/auth"
	"github.com/attaboy/walletcenter/internal/currency"
	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/transfer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGameURL = "https://game.test/play"

type memStore struct {
	mu       sync.Mutex
	balances map[domain.EntityKey]int64
	applied  map[string]bool
	fail     map[string]domain.ErrorCode
}

func newMemStore() *memStore {
	return &memStore{
		balances: make(map[domain.EntityKey]int64),
		applied:  make(map[string]bool),
		fail:     make(map[string]domain.ErrorCode),
	}
}

func (m *memStore) Mutate(_ context.Context, mut domain.Mutation) domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if code, ok := m.fail[mut.OrderID]; ok {
		return domain.Failed(code, nil)
	}
	bal, ok := m.balances[mut.Entity]
	if !ok {
		if mut.Entity.Kind == domain.EntityAgent {
			return domain.Failed(domain.StoreAgentNotExists, nil)
		}
		return domain.Failed(domain.StorePlayerWalletNotExists, nil)
	}
	applied := mut.Entity.String() + "|" + mut.OrderID
	if m.applied[applied] {
		return domain.Failed(domain.StoreDuplicateOrder, nil)
	}
	if bal+mut.Delta < 0 {
		if mut.Entity.Kind == domain.EntityAgent {
			return domain.Failed(domain.StoreAgentInsufficientBalance, nil)
		}
		return domain.Failed(domain.StorePlayerInsufficientBalance, nil)
	}
	m.applied[applied] = true
	m.balances[mut.Entity] = bal + mut.Delta
	return domain.Outcome{Code: domain.Success, Balance: bal + mut.Delta}
}

func (m *memStore) Balance(_ context.Context, key domain.EntityKey) domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[key]
	if !ok {
		return domain.Failed(domain.StorePlayerWalletNotExists, nil)
	}
	return domain.Outcome{Code: domain.Success, Balance: bal}
}

func (m *memStore) get(key domain.EntityKey) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[key]
}

// memAccounts creates the player wallet in the store, like the players insert does.
type memAccounts struct {
	store *memStore
	known map[string]bool
}

func (a *memAccounts) TouchLastLogin(_ context.Context, account string) (int64, error) {
	if a.known[account] {
		return 1, nil
	}
	return 0, nil
}

func (a *memAccounts) Create(_ context.Context, p *domain.Player) error {
	a.known[p.Account] = true
	a.store.mu.Lock()
	a.store.balances[p.Key()] = 0
	a.store.mu.Unlock()
	return nil
}

type memRecorder struct {
	items []*domain.ReconciliationItem
}

func (r *memRecorder) Record(_ context.Context, item *domain.ReconciliationItem) error {
	r.items = append(r.items, item)
	return nil
}

type memAgents map[int64]*domain.Agent

func (m memAgents) FindAgent(_ context.Context, id int64) (*domain.Agent, error) {
	return m[id], nil
}

type fixture struct {
	store    *memStore
	recorder *memRecorder
	tokens   *auth.TokenSigner
	agent    *domain.Agent
	agents   memAgents
	agentSvc *AgentService
	gameSvc  *GameService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	recorder := &memRecorder{}
	accounts := &memAccounts{store: store, known: map[string]bool{}}

	agent := &domain.Agent{ID: 7, WalletMode: domain.WalletTransfer, Currency: "TWD", Status: domain.AgentActive}
	single := &domain.Agent{ID: 8, WalletMode: domain.WalletSingle, Currency: "TWD", Status: domain.AgentActive}
	disabled := &domain.Agent{ID: 9, WalletMode: domain.WalletTransfer, Currency: "TWD", Status: domain.AgentDisabled}
	store.balances[domain.AgentKey(agent.ID)] = 100000

	tokens := auth.NewTokenSigner("service-test-secret-0123", 150*time.Second, time.Now)
	orch := transfer.NewOrchestrator(store, recorder, accounts, logger)
	agents := memAgents{7: agent, 8: single, 9: disabled}

	return &fixture{
		store:    store,
		recorder: recorder,
		tokens:   tokens,
		agent:    agent,
		agents:   agents,
		agentSvc: NewAgentService(orch, store, currency.Default(), tokens, testGameURL, logger),
		gameSvc:  NewGameService(orch, store, agents, currency.Default(), tokens, logger),
	}
}

func requireCode(t *testing.T, err error, code domain.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected *AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func (f *fixture) login(t *testing.T, name string) *LoginResult {
	t.Helper()
	res, err := f.agentSvc.Login(context.Background(), f.agent, LoginInput{
		PlayerName: name, GameID: "5", Currency: "TWD", Lang: "en", BackURL: "https://agent.test/lobby",
	})
	require.NoError(t, err)
	return res
}

func TestAgentLogin(t *testing.T) {
	f := newFixture(t)

	res := f.login(t, " alice ")
	assert.True(t, res.Created)
	assert.Equal(t, "7_alice", res.Account)
	require.True(t, strings.HasPrefix(res.GameURL, testGameURL+"?"))

	u, err := url.Parse(res.GameURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "7_alice", q.Get("user"))
	assert.Equal(t, "en", q.Get("lang"))
	assert.Equal(t, "TWD", q.Get("currency"))
	assert.Equal(t, "5", q.Get("gameId"))
	assert.Equal(t, "https://agent.test/lobby", q.Get("BackUrl"))

	id, err := f.tokens.VerifyIdentity(q.Get("token"))
	require.NoError(t, err)
	assert.Equal(t, domain.TokenIdentity{AgentID: 7, PlayerName: "alice"}, *id)

	again := f.login(t, "alice")
	assert.False(t, again.Created)
}

func TestAgentLogin_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.agentSvc.Login(context.Background(), f.agent, LoginInput{PlayerName: "bad name!", Currency: "TWD"})
	requireCode(t, err, domain.PlayerNameInvalid)

	_, err = f.agentSvc.Login(context.Background(), f.agent, LoginInput{PlayerName: "alice", Currency: "USDT"})
	requireCode(t, err, domain.UnsupportedCurrency)
}

func TestAgentDeposit_ConvertsDisplayAmount(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")

	view, err := f.agentSvc.Deposit(context.Background(), f.agent, TransferInput{
		PlayerName: "alice", OrderID: "d-1", Amount: decimal.RequireFromString("50.00"), Currency: "TWD",
	})
	require.NoError(t, err)
	assert.Equal(t, &BalanceView{Account: "7_alice", Currency: "TWD", Balance: "50.00", Points: 5000}, view)
	assert.Equal(t, int64(95000), f.store.get(domain.AgentKey(7)))

	view, err = f.agentSvc.Withdraw(context.Background(), f.agent, TransferInput{
		PlayerName: "alice", OrderID: "w-1", Amount: decimal.RequireFromString("12.5"), Currency: "TWD",
	})
	require.NoError(t, err)
	assert.Equal(t, "37.50", view.Balance)
	assert.Equal(t, int64(96250), f.store.get(domain.AgentKey(7)))
}

func TestAgentTransfer_Rejections(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")

	tests := []struct {
		name string
		in   TransferInput
		code domain.ErrorCode
	}{
		{"zero amount", TransferInput{PlayerName: "alice", OrderID: "o", Amount: decimal.Zero, Currency: "TWD"}, domain.InvalidParameter},
		{"negative amount", TransferInput{PlayerName: "alice", OrderID: "o", Amount: decimal.NewFromInt(-1), Currency: "TWD"}, domain.InvalidParameter},
		{"currency mismatch", TransferInput{PlayerName: "alice", OrderID: "o", Amount: decimal.NewFromInt(1), Currency: "JPY"}, domain.UnsupportedCurrency},
		{"missing order", TransferInput{PlayerName: "alice", Amount: decimal.NewFromInt(1), Currency: "TWD"}, domain.InvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.agentSvc.Deposit(context.Background(), f.agent, tt.in)
			requireCode(t, err, tt.code)
		})
	}
	assert.Equal(t, int64(100000), f.store.get(domain.AgentKey(7)), "no funds moved")
}

func TestPlayerBalance(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice")

	view, err := f.agentSvc.PlayerBalance(context.Background(), f.agent, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "0.00", view.Balance)
	assert.Equal(t, "TWD", view.Currency)

	_, err = f.agentSvc.PlayerBalance(context.Background(), f.agent, "nobody", "TWD")
	requireCode(t, err, domain.PlayerNotFound)

	_, err = f.agentSvc.PlayerBalance(context.Background(), f.agents[8], "alice", "TWD")
	requireCode(t, err, domain.UnsupportedWalletMode)
}

func TestGameBalance_AgentChecks(t *testing.T) {
	f := newFixture(t)

	_, err := f.gameSvc.Balance(context.Background(), 404, "alice", "TWD")
	requireCode(t, err, domain.AgentNotFound)

	_, err = f.gameSvc.Balance(context.Background(), 9, "alice", "TWD")
	requireCode(t, err, domain.AgentStatusInvalid)

	_, err = f.gameSvc.Balance(context.Background(), 0, "alice", "TWD")
	requireCode(t, err, domain.InvalidParameter)
}

func TestGameBetAndSettle(t *testing.T) {
	bet := func(orderID string) BetInput {
		return BetInput{
			OrderID: orderID, AgentID: 7, PlayerName: "alice", GameID: 5, GameNo: "r-1",
			Bet: decimal.RequireFromString("10"), Win: decimal.RequireFromString("25"), Currency: "TWD",
		}
	}

	t.Run("settled", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "alice")
		f.store.balances[domain.PlayerKey(7, "alice")] = 5000

		view, err := f.gameSvc.BetAndSettle(context.Background(), bet("b-1"))
		require.NoError(t, err)
		assert.False(t, view.Deferred)
		assert.Equal(t, int64(6500), view.Points)
		assert.Equal(t, "65.00", view.Balance)
	})

	t.Run("deferred win", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "alice")
		f.store.balances[domain.PlayerKey(7, "alice")] = 5000
		f.store.fail[domain.WinOrderID("b-2")] = domain.DatabaseConnectionError

		view, err := f.gameSvc.BetAndSettle(context.Background(), bet("b-2"))
		require.NoError(t, err)
		assert.True(t, view.Deferred)
		assert.Equal(t, int64(4000), view.Points, "balance after the bet")
		require.Len(t, f.recorder.items, 1)
		assert.Equal(t, domain.KindDeferredWin, f.recorder.items[0].Kind)
		assert.Equal(t, int64(2500), f.recorder.items[0].Amount)
	})

	t.Run("single wallet agent", func(t *testing.T) {
		f := newFixture(t)
		in := bet("b-3")
		in.AgentID = 8
		_, err := f.gameSvc.BetAndSettle(context.Background(), in)
		requireCode(t, err, domain.UnsupportedWalletMode)
	})
}

func TestGameTokens(t *testing.T) {
	f := newFixture(t)

	token, err := f.gameSvc.IssueTestToken()
	require.NoError(t, err)

	id, err := f.gameSvc.CheckUserToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(TestTokenAgentID), id.AgentID)
	assert.Equal(t, TestTokenPlayerName, id.PlayerName)

	_, err = f.gameSvc.CheckUserToken(token + "x")
	require.Error(t, err)
}
