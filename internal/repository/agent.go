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

type agentRepo struct{}

// NewAgentRepository returns a pgx-backed AgentRepository.
func NewAgentRepository() AgentRepository {
	return &agentRepo{}
}

func (r *agentRepo) FindByID(ctx context.Context, db DBTX, agentID int64) (*domain.Agent, error) {
	row := db.QueryRow(ctx, `
		SELECT agent_id, name, hmac_key, wallet_mode, currency, status, white_ips, balance, sequence, created_at
		FROM agents WHERE agent_id = $1`, agentID)
	return scanAgent(row)
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var a domain.Agent
	var mode, status int16
	var balNum pgtype.Numeric
	err := row.Scan(&a.ID, &a.Name, &a.HMACKey, &mode, &a.Currency, &status, &a.WhiteIPs, &balNum, &a.Sequence, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan agent: %w", err)
	}

	a.WalletMode, err = domain.ParseWalletMode(int(mode))
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", a.ID, err)
	}
	a.Status = domain.AgentStatus(status)
	a.Balance, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert agent balance: %w", err)
	}
	return &a, nil
}

// AgentLookup adapts AgentRepository to the request authenticator.
type AgentLookup struct {
	repo AgentRepository
	db   DBTX
}

// NewAgentLookup binds repo to db.
func NewAgentLookup(repo AgentRepository, db DBTX) *AgentLookup {
	return &AgentLookup{repo: repo, db: db}
}

// FindAgent implements auth.AgentLookup.
func (l *AgentLookup) FindAgent(ctx context.Context, agentID int64) (*domain.Agent, error) {
	return l.repo.FindByID(ctx, l.db, agentID)
}
