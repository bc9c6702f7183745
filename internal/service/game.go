package service

import (
	"context"
	"log/slog"

	"github.com/attaboy/walletcenter/internal/auth"
	"github.com/attaboy/walletcenter/internal/currency"
	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/repository"
	"github.com/attaboy/walletcenter/internal/transfer"
	"github.com/shopspring/decimal"
)

// Identity of the development token handed out by IssueTestToken.
const (
	TestTokenAgentID    int64 = 11000
	TestTokenPlayerName       = "test_player"
)

// GameService serves calls from the game client and game server.
type GameService struct {
	orch   *transfer.Orchestrator
	store  repository.WalletStore
	agents auth.AgentLookup
	rates  *currency.Converter
	tokens *auth.TokenSigner
	logger *slog.Logger
}

// NewGameService creates a GameService.
func NewGameService(
	orch *transfer.Orchestrator,
	store repository.WalletStore,
	agents auth.AgentLookup,
	rates *currency.Converter,
	tokens *auth.TokenSigner,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		orch:   orch,
		store:  store,
		agents: agents,
		rates:  rates,
		tokens: tokens,
		logger: logger.With("service", "game"),
	}
}

// CheckUserToken verifies a launch token and returns who it was issued to.
func (s *GameService) CheckUserToken(token string) (*domain.TokenIdentity, error) {
	id, err := s.tokens.VerifyIdentity(token)
	if err != nil {
		s.logger.Warn("token rejected", "error", err)
		return nil, err
	}
	return id, nil
}

// IssueTestToken signs a token for the fixed development identity.
func (s *GameService) IssueTestToken() (string, error) {
	token, err := s.tokens.IssueIdentity(domain.TokenIdentity{AgentID: TestTokenAgentID, PlayerName: TestTokenPlayerName})
	if err != nil {
		return "", domain.ErrInternal("issue token", err)
	}
	return token, nil
}

// Balance reads a player balance on behalf of the game server.
func (s *GameService) Balance(ctx context.Context, agentID int64, playerName, code string) (*BalanceView, error) {
	agent, err := s.agent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.WalletMode != domain.WalletTransfer {
		return nil, domain.ErrUnsupportedWalletMode(agent.WalletMode)
	}
	return readBalance(ctx, s.store, s.rates, agent, playerName, code)
}

// BetInput is one bet with its settled win, in display units.
type BetInput struct {
	OrderID    string          `json:"orderId"`
	AgentID    int64           `json:"agentId"`
	PlayerName string          `json:"name"`
	GameID     int             `json:"gameId"`
	GameNo     string          `json:"gameNo"`
	Bet        decimal.Decimal `json:"betAmount"`
	Win        decimal.Decimal `json:"winAmount"`
	Currency   string          `json:"currency"`
}

// BetAndSettle debits the bet and credits the win in one call.
func (s *GameService) BetAndSettle(ctx context.Context, in BetInput) (*BetView, error) {
	agent, err := s.agent(ctx, in.AgentID)
	if err != nil {
		return nil, err
	}
	if err := requireAgentCurrency(agent, in.Currency); err != nil {
		return nil, err
	}
	bet, err := toPoints(s.rates, in.Bet, in.Currency)
	if err != nil {
		return nil, err
	}
	win, err := toPoints(s.rates, in.Win, in.Currency)
	if err != nil {
		return nil, err
	}

	res, err := s.orch.BetAndSettle(ctx, transfer.BetParams{
		AgentID:    agent.ID,
		WalletMode: agent.WalletMode,
		PlayerName: in.PlayerName,
		OrderID:    in.OrderID,
		GameID:     in.GameID,
		GameNo:     in.GameNo,
		Bet:        bet,
		Win:        win,
		Currency:   in.Currency,
	})
	if err != nil {
		return nil, err
	}

	name, _ := domain.NormalizePlayerName(in.PlayerName)
	view, err := balanceView(s.rates, domain.PlayerAccount(agent.ID, name), in.Currency, res.Balance)
	if err != nil {
		return nil, err
	}
	return &BetView{BalanceView: *view, Deferred: res.Disposition == domain.DispositionDeferred}, nil
}

func (s *GameService) agent(ctx context.Context, agentID int64) (*domain.Agent, error) {
	if agentID <= 0 {
		return nil, domain.ErrValidation("agent id must be positive")
	}
	agent, err := s.agents.FindAgent(ctx, agentID)
	if err != nil {
		return nil, domain.ErrInternal("find agent", err)
	}
	if agent == nil {
		return nil, domain.ErrAgentNotFound(agentID)
	}
	if !agent.Active() {
		return nil, domain.ErrForbidden(domain.AgentStatusInvalid, "agent is disabled")
	}
	return agent, nil
}
