package transfer

import (
	"context"

	"github.com/attaboy/walletcenter/internal/domain"
)

// Deposit moves Amount from the agent wallet to the player wallet.
// Pattern: Validate → Claim → debit agent → credit player → (recredit agent)
func (o *Orchestrator) Deposit(ctx context.Context, p TransferParams) (*domain.TransferResult, error) {
	if err := requireTransferWallet(p.WalletMode); err != nil {
		return nil, o.reject(OpDeposit, err)
	}
	if err := domain.ValidatePositiveAmount(p.Amount); err != nil {
		return nil, o.reject(OpDeposit, domain.ErrValidation(err.Error()))
	}
	name, err := validateCommon(p.AgentID, p.PlayerName, p.OrderID, p.Currency)
	if err != nil {
		return nil, o.reject(OpDeposit, err)
	}

	agentKey := domain.AgentKey(p.AgentID)
	playerKey := domain.PlayerKey(p.AgentID, name)

	done, err := o.claim(OpDeposit, agentKey, p.OrderID)
	if err != nil {
		return nil, err
	}

	first, second, err := o.run(ctx, saga{
		operation: OpDeposit,
		orderID:   p.OrderID,
		agentID:   p.AgentID,
		playerKey: playerKey,
		currency:  p.Currency,
		amount:    p.Amount,
		first: domain.Mutation{
			Entity:   agentKey,
			Delta:    -p.Amount,
			Action:   domain.ActionPlayerDeposit,
			Type:     domain.TxTransferDeposit,
			Currency: p.Currency,
			OrderID:  p.OrderID,
			Memo:     p.Memo,
		},
		second: domain.Mutation{
			Entity:   playerKey,
			Delta:    p.Amount,
			Action:   domain.ActionPlayerDeposit,
			Type:     domain.TxTransferDeposit,
			Currency: p.Currency,
			OrderID:  p.OrderID,
			Memo:     p.Memo,
		},
		compensate: domain.Mutation{
			Entity:   agentKey,
			Delta:    p.Amount,
			Action:   domain.ActionPlayerDepositRollback,
			Type:     domain.TxTransferDepositRollback,
			Currency: p.Currency,
			OrderID:  domain.RollbackOrderID(p.OrderID),
			Memo:     p.Memo,
		},
	})
	done(first.OK())
	if err != nil {
		return nil, err
	}

	return &domain.TransferResult{
		Disposition: domain.DispositionCompleted,
		Balance:     second.Balance,
		Sequence:    second.Sequence,
	}, nil
}
