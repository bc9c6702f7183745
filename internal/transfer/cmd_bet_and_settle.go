package transfer

import (
	"context"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
)

// BetAndSettle debits the bet and, when Win > 0, credits the win under {orderId}_win.
// A failed win credit is never compensated: the bet stands, the win is recorded for
// the retrier, and the call succeeds with the post-bet balance.
func (o *Orchestrator) BetAndSettle(ctx context.Context, p BetParams) (*domain.TransferResult, error) {
	if err := requireTransferWallet(p.WalletMode); err != nil {
		return nil, o.reject(OpBetAndSettle, err)
	}
	if err := domain.ValidatePositiveAmount(p.Bet); err != nil {
		return nil, o.reject(OpBetAndSettle, domain.ErrValidation("bet: "+err.Error()))
	}
	if err := domain.ValidateNonNegativeAmount(p.Win); err != nil {
		return nil, o.reject(OpBetAndSettle, domain.ErrValidation("win: "+err.Error()))
	}
	name, err := validateCommon(p.AgentID, p.PlayerName, p.OrderID, p.Currency)
	if err != nil {
		return nil, o.reject(OpBetAndSettle, err)
	}

	playerKey := domain.PlayerKey(p.AgentID, name)
	log := o.logger.With("operation", OpBetAndSettle, "order_id", p.OrderID, "player", playerKey.ID)
	memo := betMemo(p)

	done, err := o.claim(OpBetAndSettle, playerKey, p.OrderID)
	if err != nil {
		return nil, err
	}

	bet := o.store.Mutate(ctx, domain.Mutation{
		Entity:   playerKey,
		Delta:    -p.Bet,
		Action:   domain.ActionPlayerWithdraw,
		Type:     domain.TxGameBet,
		Currency: p.Currency,
		OrderID:  p.OrderID,
		Memo:     memo,
	})
	done(bet.OK())
	if !bet.OK() {
		log.Warn("bet leg failed", "code", int(bet.Code), "error", bet.Cause)
		infra.ObserveTransfer(OpBetAndSettle, string(domain.DispositionLegFailed))
		return nil, legError(bet, fmt.Sprintf(
			"%s %s: bet debit of %s failed (%s); win not attempted, nothing moved",
			OpBetAndSettle, p.OrderID, playerKey, domain.Message(bet.Code)))
	}

	if p.Win == 0 {
		infra.ObserveTransfer(OpBetAndSettle, string(domain.DispositionCompleted))
		return &domain.TransferResult{Disposition: domain.DispositionCompleted, Balance: bet.Balance, Sequence: bet.Sequence}, nil
	}

	win := o.store.Mutate(ctx, domain.Mutation{
		Entity:   playerKey,
		Delta:    p.Win,
		Action:   domain.ActionPlayerDeposit,
		Type:     domain.TxGameWin,
		Currency: p.Currency,
		OrderID:  domain.WinOrderID(p.OrderID),
		Memo:     memo,
	})
	if win.OK() {
		infra.ObserveTransfer(OpBetAndSettle, string(domain.DispositionCompleted))
		return &domain.TransferResult{Disposition: domain.DispositionCompleted, Balance: win.Balance, Sequence: win.Sequence}, nil
	}

	log.Warn("win leg failed, settlement deferred", "code", int(win.Code), "win", p.Win, "error", win.Cause)
	infra.ObserveTransfer(OpBetAndSettle, string(domain.DispositionDeferred))
	o.record(ctx, log, &domain.ReconciliationItem{
		Kind:          domain.KindDeferredWin,
		Operation:     OpBetAndSettle,
		OrderID:       p.OrderID,
		AgentID:       p.AgentID,
		PlayerKey:     playerKey.ID,
		Currency:      p.Currency,
		Amount:        p.Win,
		FailedLegCode: win.Code,
		LastError:     errString(win.Cause),
	})

	return &domain.TransferResult{Disposition: domain.DispositionDeferred, Balance: bet.Balance, Sequence: bet.Sequence}, nil
}

func betMemo(p BetParams) string {
	if p.GameNo == "" {
		return fmt.Sprintf("game %d", p.GameID)
	}
	return fmt.Sprintf("game %d round %s", p.GameID, p.GameNo)
}
