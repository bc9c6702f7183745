package service

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/attaboy/walletcenter/internal/auth"
	"github.com/attaboy/walletcenter/internal/currency"
	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/repository"
	"github.com/attaboy/walletcenter/internal/transfer"
	"github.com/shopspring/decimal"
)

// AgentService serves authenticated agent calls: login, transfers and balance.
type AgentService struct {
	orch    *transfer.Orchestrator
	store   repository.WalletStore
	rates   *currency.Converter
	tokens  *auth.TokenSigner
	gameURL string
	logger  *slog.Logger
}

// NewAgentService creates an AgentService.
func NewAgentService(
	orch *transfer.Orchestrator,
	store repository.WalletStore,
	rates *currency.Converter,
	tokens *auth.TokenSigner,
	gameURL string,
	logger *slog.Logger,
) *AgentService {
	return &AgentService{
		orch:    orch,
		store:   store,
		rates:   rates,
		tokens:  tokens,
		gameURL: gameURL,
		logger:  logger.With("service", "agent"),
	}
}

// LoginInput is a player login request.
type LoginInput struct {
	PlayerName string `json:"name"`
	GameID     string `json:"gameId"`
	Currency   string `json:"currency"`
	Lang       string `json:"lang"`
	BackURL    string `json:"backUrl"`
}

// LoginResult carries the launch URL for the game client.
type LoginResult struct {
	Account string `json:"account"`
	GameURL string `json:"gameUrl"`
	Created bool   `json:"created"`
}

// Login provisions the player and returns a game URL carrying a fresh token.
func (s *AgentService) Login(ctx context.Context, agent *domain.Agent, in LoginInput) (*LoginResult, error) {
	s.logger.Info("player login", "agent_id", agent.ID, "player", in.PlayerName, "game_id", in.GameID, "currency", in.Currency, "lang", in.Lang)

	name, err := domain.NormalizePlayerName(in.PlayerName)
	if err != nil {
		return nil, domain.NewAppError(domain.PlayerNameInvalid, err.Error())
	}
	if err := requireAgentCurrency(agent, in.Currency); err != nil {
		return nil, err
	}

	prov, err := s.orch.Provision(ctx, agent, name)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueIdentity(domain.TokenIdentity{AgentID: agent.ID, PlayerName: name})
	if err != nil {
		return nil, domain.ErrInternal("issue token", err)
	}

	return &LoginResult{
		Account: prov.Account,
		GameURL: s.buildGameURL(prov.Account, in, token),
		Created: prov.Created,
	}, nil
}

func (s *AgentService) buildGameURL(account string, in LoginInput, token string) string {
	q := url.Values{}
	q.Set("user", account)
	q.Set("lang", in.Lang)
	q.Set("currency", in.Currency)
	q.Set("gameId", in.GameID)
	q.Set("token", token)
	q.Set("BackUrl", in.BackURL)
	return s.gameURL + "?" + q.Encode()
}

// TransferInput is a deposit or withdrawal in display units.
type TransferInput struct {
	PlayerName string          `json:"name"`
	OrderID    string          `json:"orderId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Memo       string          `json:"memo"`
}

// Deposit moves funds from the agent to the player and returns the player balance.
func (s *AgentService) Deposit(ctx context.Context, agent *domain.Agent, in TransferInput) (*BalanceView, error) {
	return s.transfer(ctx, agent, in, s.orch.Deposit)
}

// Withdraw moves funds from the player back to the agent and returns the player balance.
func (s *AgentService) Withdraw(ctx context.Context, agent *domain.Agent, in TransferInput) (*BalanceView, error) {
	return s.transfer(ctx, agent, in, s.orch.Withdraw)
}

func (s *AgentService) transfer(
	ctx context.Context,
	agent *domain.Agent,
	in TransferInput,
	run func(context.Context, transfer.TransferParams) (*domain.TransferResult, error),
) (*BalanceView, error) {
	if err := domain.ValidateDisplayAmount(in.Amount); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := requireAgentCurrency(agent, in.Currency); err != nil {
		return nil, err
	}
	points, err := toPoints(s.rates, in.Amount, in.Currency)
	if err != nil {
		return nil, err
	}

	res, err := run(ctx, transfer.TransferParams{
		AgentID:    agent.ID,
		WalletMode: agent.WalletMode,
		PlayerName: in.PlayerName,
		OrderID:    in.OrderID,
		Amount:     points,
		Currency:   in.Currency,
		Memo:       in.Memo,
	})
	if err != nil {
		return nil, err
	}

	name, _ := domain.NormalizePlayerName(in.PlayerName)
	return balanceView(s.rates, domain.PlayerAccount(agent.ID, name), in.Currency, res.Balance)
}

// PlayerBalance reads the player wallet of a transfer-wallet agent.
func (s *AgentService) PlayerBalance(ctx context.Context, agent *domain.Agent, playerName, code string) (*BalanceView, error) {
	if agent.WalletMode != domain.WalletTransfer {
		return nil, domain.ErrUnsupportedWalletMode(agent.WalletMode)
	}
	return readBalance(ctx, s.store, s.rates, agent, playerName, code)
}

func readBalance(ctx context.Context, store repository.WalletStore, rates *currency.Converter, agent *domain.Agent, playerName, code string) (*BalanceView, error) {
	name, err := domain.NormalizePlayerName(playerName)
	if err != nil {
		return nil, domain.NewAppError(domain.PlayerNameInvalid, err.Error())
	}
	if code == "" {
		code = agent.Currency
	}
	if err := requireAgentCurrency(agent, code); err != nil {
		return nil, err
	}

	key := domain.PlayerKey(agent.ID, name)
	out := store.Balance(ctx, key)
	if !out.OK() {
		if out.Code == domain.StorePlayerWalletNotExists {
			return nil, domain.ErrPlayerNotFound(key.ID)
		}
		return nil, storeError(out, "read balance of "+key.ID)
	}
	return balanceView(rates, key.ID, code, out.Balance)
}
