package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
)

// ErrAccountExists is returned by Accounts.Create when a concurrent login won the race.
var ErrAccountExists = errors.New("account already exists")

// Accounts stores player accounts.
type Accounts interface {
	// TouchLastLogin returns the number of player rows updated.
	TouchLastLogin(ctx context.Context, account string) (int64, error)

	// Create inserts the player and its zero-balance wallet in one transaction.
	Create(ctx context.Context, player *domain.Player) error
}

// ProvisionResult reports the account used for a login.
type ProvisionResult struct {
	Account string
	Created bool
}

// Provision touches the player's last login and creates the player with an empty
// wallet in the agent's currency when the touch matched nothing.
func (o *Orchestrator) Provision(ctx context.Context, agent *domain.Agent, playerName string) (*ProvisionResult, error) {
	name, err := domain.NormalizePlayerName(playerName)
	if err != nil {
		return nil, domain.NewAppError(domain.PlayerNameInvalid, err.Error())
	}
	account := domain.PlayerAccount(agent.ID, name)
	log := o.logger.With("operation", "provision", "account", account)

	rows, err := o.accounts.TouchLastLogin(ctx, account)
	if err != nil {
		log.Error("touch last login failed", "error", err)
		return nil, provisionError(account, err)
	}
	if rows > 0 {
		return &ProvisionResult{Account: account}, nil
	}

	player := &domain.Player{
		AgentID:  agent.ID,
		Name:     name,
		Account:  account,
		Currency: agent.Currency,
	}
	if err := o.accounts.Create(ctx, player); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return &ProvisionResult{Account: account}, nil
		}
		log.Error("create player failed", "error", err)
		return nil, provisionError(account, err)
	}

	log.Info("player provisioned", "currency", player.Currency)
	return &ProvisionResult{Account: account, Created: true}, nil
}

func provisionError(account string, err error) *domain.AppError {
	e := domain.NewAppError(domain.DatabaseExecutionError, fmt.Sprintf("provision %s failed; login not completed", account))
	e.Cause = err
	return e
}
