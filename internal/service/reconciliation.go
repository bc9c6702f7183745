package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/repository"
	"github.com/google/uuid"
)

// ReconciliationService backs the operator endpoints for dual failures and deferred wins.
type ReconciliationService struct {
	pool   repository.TxPool
	recon  repository.ReconciliationRepository
	ledger repository.LedgerRepository
	outbox repository.OutboxRepository
	logger *slog.Logger
}

// NewReconciliationService creates a ReconciliationService.
func NewReconciliationService(
	pool repository.TxPool,
	recon repository.ReconciliationRepository,
	ledger repository.LedgerRepository,
	outbox repository.OutboxRepository,
	logger *slog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		pool:   pool,
		recon:  recon,
		ledger: ledger,
		outbox: outbox,
		logger: logger.With("service", "reconciliation"),
	}
}

// List returns items matching filter.
func (s *ReconciliationService) List(ctx context.Context, filter domain.ReconciliationFilter) ([]domain.ReconciliationItem, error) {
	items, err := s.recon.List(ctx, s.pool, filter)
	if err != nil {
		return nil, domain.ErrInternal("list reconciliation items", err)
	}
	if items == nil {
		items = []domain.ReconciliationItem{}
	}
	return items, nil
}

// ItemDetail is an item with every ledger entry written under its order.
type ItemDetail struct {
	Item    *domain.ReconciliationItem `json:"item"`
	Entries []domain.LedgerEntry       `json:"entries"`
}

// Get returns an item and its ledger trail.
func (s *ReconciliationService) Get(ctx context.Context, id uuid.UUID) (*ItemDetail, error) {
	item, err := s.recon.FindByID(ctx, s.pool, id)
	if err != nil {
		return nil, domain.ErrInternal("find reconciliation item", err)
	}
	if item == nil {
		return nil, &domain.AppError{Code: domain.GeneralError, Message: fmt.Sprintf("reconciliation item %s not found", id), Status: 404}
	}
	agent, player := item.Wallets()
	entries, err := s.ledger.ListByOrder(ctx, s.pool, item.OrderID, agent, player)
	if err != nil {
		return nil, domain.ErrInternal("list ledger entries", err)
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return &ItemDetail{Item: item, Entries: entries}, nil
}

// Resolve marks a pending item resolved by operator and emits the resolved event.
func (s *ReconciliationService) Resolve(ctx context.Context, id uuid.UUID, operator string) (*domain.ReconciliationItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	item, err := s.recon.FindByID(ctx, tx, id)
	if err != nil {
		return nil, domain.ErrInternal("find reconciliation item", err)
	}
	if item == nil {
		return nil, &domain.AppError{Code: domain.GeneralError, Message: fmt.Sprintf("reconciliation item %s not found", id), Status: 404}
	}

	ok, err := s.recon.MarkResolved(ctx, tx, id, operator)
	if err != nil {
		return nil, domain.ErrInternal("mark resolved", err)
	}
	if !ok {
		return nil, &domain.AppError{Code: domain.GeneralError, Message: fmt.Sprintf("reconciliation item %s is already %s", id, item.Status), Status: 409}
	}
	item.Status = domain.ReconciliationResolved
	item.ResolvedBy = operator

	if err := s.outbox.Insert(ctx, tx, domain.NewReconciliationResolvedEvent(item)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit", err)
	}

	s.logger.Info("reconciliation item resolved", "id", id, "kind", item.Kind, "operator", operator)
	return item, nil
}
