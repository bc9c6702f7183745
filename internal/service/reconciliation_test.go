package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReconciliation struct {
	items map[uuid.UUID]*domain.ReconciliationItem
}

func (m *memReconciliation) Insert(_ context.Context, _ repository.DBTX, item *domain.ReconciliationItem) error {
	m.items[item.ID] = item
	return nil
}

func (m *memReconciliation) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.ReconciliationItem, error) {
	return m.items[id], nil
}

func (m *memReconciliation) List(context.Context, repository.DBTX, domain.ReconciliationFilter) ([]domain.ReconciliationItem, error) {
	return nil, nil
}

func (m *memReconciliation) LockPending(context.Context, pgx.Tx, domain.ReconciliationKind, int) ([]domain.ReconciliationItem, error) {
	return nil, nil
}

func (m *memReconciliation) MarkResolved(context.Context, repository.DBTX, uuid.UUID, string) (bool, error) {
	return false, nil
}

func (m *memReconciliation) RecordAttempt(context.Context, repository.DBTX, uuid.UUID, string) error {
	return nil
}

// memLedger keeps entries of several agents under the same order id.
type memLedger struct {
	entries []domain.LedgerEntry
}

func (m *memLedger) ListByOrder(_ context.Context, _ repository.DBTX, orderID string, agent, player domain.EntityKey) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for _, e := range m.entries {
		if e.OrderID != orderID && e.OrderID != domain.RollbackOrderID(orderID) {
			continue
		}
		owner := domain.EntityKey{Kind: e.WalletKind, ID: e.EntityKey}
		if owner == agent || owner == player {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) ListByEntity(context.Context, repository.DBTX, domain.EntityKey) ([]domain.LedgerEntry, error) {
	return nil, nil
}

func TestReconciliationGet_ScopesLedgerToItemWallets(t *testing.T) {
	item := &domain.ReconciliationItem{
		ID: uuid.New(), Kind: domain.KindDualFailure, OrderID: "ord-9",
		AgentID: 1, PlayerKey: domain.PlayerAccount(1, "alice"),
	}
	recon := &memReconciliation{items: map[uuid.UUID]*domain.ReconciliationItem{item.ID: item}}
	ledger := &memLedger{entries: []domain.LedgerEntry{
		{WalletKind: "agent", EntityKey: "1", OrderID: "ord-9", Amount: -500},
		{WalletKind: "agent", EntityKey: "1", OrderID: "RB_ord-9", Amount: 500},
		{WalletKind: "agent", EntityKey: "2", OrderID: "ord-9", Amount: -900},
		{WalletKind: "player", EntityKey: domain.PlayerAccount(2, "alice"), OrderID: "ord-9", Amount: 900},
	}}
	svc := NewReconciliationService(nil, recon, ledger, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	detail, err := svc.Get(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, detail.Entries, 2)
	for _, e := range detail.Entries {
		assert.Equal(t, "1", e.EntityKey)
	}

	_, err = svc.Get(context.Background(), uuid.New())
	requireCode(t, err, domain.GeneralError)
}
