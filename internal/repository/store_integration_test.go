//go:build integration

package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("center_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{"test": "walletcenter-repository"}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(dsn, quietLogger()))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedAgent(t *testing.T, pool *pgxpool.Pool, balance int64) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO agents (name, hmac_key, wallet_mode, currency, status, balance)
		VALUES ('agent', 'key', 0, 'TWD', 1, $1) RETURNING agent_id`, infra.Int64ToNumeric(balance)).Scan(&id)
	require.NoError(t, err)
	return id
}

func provision(t *testing.T, pool *pgxpool.Pool, agentID int64, name string) *domain.Player {
	t.Helper()
	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	p := &domain.Player{AgentID: agentID, Name: name, Account: domain.PlayerAccount(agentID, name)}
	require.NoError(t, NewPlayerRepository().Create(ctx, tx, p))
	require.NoError(t, tx.Commit(ctx))
	return p
}

func TestWalletStores(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	for _, strategy := range []string{StrategyProcedure, StrategySQL} {
		t.Run(strategy, func(t *testing.T) {
			store, err := NewWalletStore(strategy, pool, 5*time.Second, quietLogger())
			require.NoError(t, err)

			agentID := seedAgent(t, pool, 10_000)
			player := provision(t, pool, agentID, "p_"+strategy)
			assert.Equal(t, "TWD", player.Currency)

			agentKey := domain.AgentKey(agentID)
			playerKey := player.Key()

			t.Run("debit agent", func(t *testing.T) {
				out := store.Mutate(ctx, domain.Mutation{Entity: agentKey, Delta: -5_000, Action: domain.ActionPlayerDeposit,
					Type: domain.TxTransferDeposit, Currency: "TWD", OrderID: "o1"})
				require.True(t, out.OK(), "code %v cause %v", out.Code, out.Cause)
				assert.Equal(t, int64(5_000), out.Balance)
				assert.Equal(t, int64(1), out.Sequence)
			})

			t.Run("credit player", func(t *testing.T) {
				out := store.Mutate(ctx, domain.Mutation{Entity: playerKey, Delta: 5_000, Action: domain.ActionPlayerDeposit,
					Type: domain.TxTransferDeposit, Currency: "TWD", OrderID: "o1", Memo: "deposit"})
				require.True(t, out.OK())
				assert.Equal(t, int64(5_000), out.Balance)
			})

			t.Run("duplicate order rejected without moving money", func(t *testing.T) {
				out := store.Mutate(ctx, domain.Mutation{Entity: playerKey, Delta: 5_000, Action: domain.ActionPlayerDeposit,
					Type: domain.TxTransferDeposit, Currency: "TWD", OrderID: "o1"})
				assert.Equal(t, domain.StoreDuplicateOrder, out.Code)

				bal := store.Balance(ctx, playerKey)
				require.True(t, bal.OK())
				assert.Equal(t, int64(5_000), bal.Balance)
			})

			t.Run("insufficient balance", func(t *testing.T) {
				out := store.Mutate(ctx, domain.Mutation{Entity: agentKey, Delta: -50_000, OrderID: "o2", Currency: "TWD"})
				assert.Equal(t, domain.StoreAgentInsufficientBalance, out.Code)

				out = store.Mutate(ctx, domain.Mutation{Entity: playerKey, Delta: -50_000, OrderID: "o2", Currency: "TWD"})
				assert.Equal(t, domain.StorePlayerInsufficientBalance, out.Code)
			})

			t.Run("unknown wallets", func(t *testing.T) {
				out := store.Mutate(ctx, domain.Mutation{Entity: domain.AgentKey(999_999), Delta: 1, OrderID: "o3", Currency: "TWD"})
				assert.Equal(t, domain.StoreAgentNotExists, out.Code)

				out = store.Mutate(ctx, domain.Mutation{Entity: domain.PlayerKey(agentID, "ghost"), Delta: 1, OrderID: "o3", Currency: "TWD"})
				assert.Equal(t, domain.StorePlayerWalletNotExists, out.Code)

				assert.Equal(t, domain.StorePlayerWalletNotExists, store.Balance(ctx, domain.PlayerKey(agentID, "ghost")).Code)
			})

			t.Run("ledger lists derived orders", func(t *testing.T) {
				out := store.Mutate(ctx, domain.Mutation{Entity: agentKey, Delta: 5_000, Action: domain.ActionPlayerDepositRollback,
					Type: domain.TxTransferDepositRollback, Currency: "TWD", OrderID: domain.RollbackOrderID("o1")})
				require.True(t, out.OK())

				otherAgent := seedAgent(t, pool, 10_000)
				out = store.Mutate(ctx, domain.Mutation{Entity: domain.AgentKey(otherAgent), Delta: -1_000, Action: domain.ActionPlayerDeposit,
					Type: domain.TxTransferDeposit, Currency: "TWD", OrderID: "o1"})
				require.True(t, out.OK())

				entries, err := NewLedgerRepository().ListByOrder(ctx, pool, "o1", agentKey, playerKey)
				require.NoError(t, err)
				require.Len(t, entries, 3)
				for _, e := range entries {
					assert.Contains(t, []string{agentKey.ID, playerKey.ID}, e.EntityKey)
				}
				assert.Equal(t, "RB_o1", entries[2].OrderID)
				assert.Equal(t, domain.TxTransferDepositRollback, entries[2].Type)
				assert.Equal(t, int64(10_000), entries[2].BalanceAfter)
			})
		})
	}
}

func TestWalletStore_Timeout(t *testing.T) {
	pool := setupTestPool(t)
	store, err := NewWalletStore(StrategySQL, pool, time.Nanosecond, quietLogger())
	require.NoError(t, err)

	out := store.Mutate(context.Background(), domain.Mutation{Entity: domain.AgentKey(1), Delta: 1, OrderID: "t1", Currency: "TWD"})
	assert.Equal(t, domain.DatabaseConnectionError, out.Code)
}

func TestPlayerProvisioning(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	repo := NewPlayerRepository()
	agentID := seedAgent(t, pool, 0)
	account := domain.PlayerAccount(agentID, "alice")

	n, err := repo.TouchLastLogin(ctx, pool, account)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	provision(t, pool, agentID, "alice")

	n, err = repo.TouchLastLogin(ctx, pool, account)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, err := repo.FindByAccount(ctx, pool, account)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, int64(0), p.Balance)

	missing, err := repo.FindByAccount(ctx, pool, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	agent, err := NewAgentRepository().FindByID(ctx, pool, agentID)
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, domain.WalletTransfer, agent.WalletMode)
	assert.True(t, agent.Active())
}

func TestReconciliationRepository(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	repo := NewReconciliationRepository()

	item := &domain.ReconciliationItem{
		Kind: domain.KindDeferredWin, Operation: "bet_and_settle", OrderID: "b1",
		AgentID: 7, PlayerKey: "7_alice", Currency: "TWD", Amount: 300,
		FailedLegCode: domain.DatabaseConnectionError,
	}
	require.NoError(t, repo.Insert(ctx, pool, item))

	got, err := repo.FindByID(ctx, pool, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.ReconciliationPending, got.Status)
	assert.Equal(t, int64(300), got.Amount)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	locked, err := repo.LockPending(ctx, tx, domain.KindDeferredWin, 10)
	require.NoError(t, err)
	require.Len(t, locked, 1)
	require.NoError(t, repo.RecordAttempt(ctx, tx, item.ID, "still down"))
	require.NoError(t, tx.Commit(ctx))

	ok, err := repo.MarkResolved(ctx, pool, item.ID, "retrier")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkResolved(ctx, pool, item.ID, "retrier")
	require.NoError(t, err)
	assert.False(t, ok)

	items, err := repo.List(ctx, pool, domain.ReconciliationFilter{Status: domain.ReconciliationResolved})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Attempts)
	assert.Equal(t, "retrier", items[0].ResolvedBy)

	t.Run("order ids are scoped per agent and player", func(t *testing.T) {
		dual := func(agentID int64, player string) *domain.ReconciliationItem {
			return &domain.ReconciliationItem{
				Kind: domain.KindDualFailure, Operation: "deposit", OrderID: "ord-9",
				AgentID: agentID, PlayerKey: domain.PlayerAccount(agentID, player), Currency: "TWD", Amount: 500,
				FailedLegCode: domain.StorePlayerWalletNotExists, CompensationCode: domain.DatabaseConnectionError,
			}
		}
		require.NoError(t, repo.Insert(ctx, pool, dual(1, "alice")))
		require.NoError(t, repo.Insert(ctx, pool, dual(2, "alice")))
		require.NoError(t, repo.Insert(ctx, pool, dual(1, "bob")))

		err := repo.Insert(ctx, pool, dual(1, "alice"))
		require.Error(t, err)

		items, err := repo.List(ctx, pool, domain.ReconciliationFilter{Kind: domain.KindDualFailure})
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	outbox := NewOutboxRepository()
	require.NoError(t, outbox.Insert(ctx, pool, domain.NewReconciliationRecordedEvent(item)))
	events, err := outbox.FetchUnpublished(ctx, pool, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, outbox.MarkPublished(ctx, pool, []int64{events[0].ID}))
	events, err = outbox.FetchUnpublished(ctx, pool, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
