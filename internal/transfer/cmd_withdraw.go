package transfer

import (
	"context"

	"github.com/attaboy/walletcenter/internal/domain"
)

// Withdraw moves Amount from the player wallet back to the agent wallet.
// Pattern: Validate → Claim → debit player → credit agent → (recredit player)
func (o *Orchestrator) Withdraw(ctx context.Context, p TransferParams) (*domain.TransferResult, error) {
	if err := requireTransferWallet(p.WalletMode); err != nil {
		return nil, o.reject(OpWithdraw, err)
	}
	if err := domain.ValidatePositiveAmount(p.Amount); err != nil {
		return nil, o.reject(OpWithdraw, domain.ErrValidation(err.Error()))
	}
	name, err := validateCommon(p.AgentID, p.PlayerName, p.OrderID, p.Currency)
	if err != nil {
		return nil, o.reject(OpWithdraw, err)
	}

	agentKey := domain.AgentKey(p.AgentID)
	playerKey := domain.PlayerKey(p.AgentID, name)

	done, err := o.claim(OpWithdraw, playerKey, p.OrderID)
	if err != nil {
		return nil, err
	}

	first, _, err := o.run(ctx, saga{
		operation: OpWithdraw,
		orderID:   p.OrderID,
		agentID:   p.AgentID,
		playerKey: playerKey,
		currency:  p.Currency,
		amount:    p.Amount,
		first: domain.Mutation{
			Entity:   playerKey,
			Delta:    -p.Amount,
			Action:   domain.ActionPlayerWithdraw,
			Type:     domain.TxTransferWithdraw,
			Currency: p.Currency,
			OrderID:  p.OrderID,
			Memo:     p.Memo,
		},
		second: domain.Mutation{
			Entity:   agentKey,
			Delta:    p.Amount,
			Action:   domain.ActionPlayerWithdraw,
			Type:     domain.TxTransferWithdraw,
			Currency: p.Currency,
			OrderID:  p.OrderID,
			Memo:     p.Memo,
		},
		compensate: domain.Mutation{
			Entity:   playerKey,
			Delta:    p.Amount,
			Action:   domain.ActionPlayerWithdrawRollback,
			Type:     domain.TxTransferWithdrawRollback,
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
		Balance:     first.Balance,
		Sequence:    first.Sequence,
	}, nil
}
