package service

import (
	"errors"

	"github.com/attaboy/walletcenter/internal/currency"
	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/shopspring/decimal"
)

// BalanceView is a player balance in both base and display units.
type BalanceView struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Points   int64  `json:"points"`
}

// BetView is a bet result. Deferred is set when the win credit is waiting for the retrier.
type BetView struct {
	BalanceView
	Deferred bool `json:"deferred,omitempty"`
}

func toPoints(rates *currency.Converter, amount decimal.Decimal, code string) (int64, error) {
	points, err := rates.ToBaseUnits(amount, code)
	if err != nil {
		return 0, currencyError(err)
	}
	return points, nil
}

func balanceView(rates *currency.Converter, account, code string, points int64) (*BalanceView, error) {
	display, err := rates.Format(points, code)
	if err != nil {
		return nil, currencyError(err)
	}
	return &BalanceView{Account: account, Currency: code, Balance: display, Points: points}, nil
}

func currencyError(err error) *domain.AppError {
	switch {
	case errors.Is(err, currency.ErrUnsupportedCurrency):
		return domain.NewAppError(domain.UnsupportedCurrency, err.Error())
	case errors.Is(err, currency.ErrOutOfRange):
		return domain.ErrValidation(err.Error())
	default:
		return domain.ErrInternal("currency conversion", err)
	}
}

// requireAgentCurrency rejects requests whose currency differs from the agent wallet.
func requireAgentCurrency(agent *domain.Agent, code string) error {
	if code != agent.Currency {
		return domain.NewAppError(domain.UnsupportedCurrency,
			"currency "+code+" does not match agent currency "+agent.Currency)
	}
	return nil
}

// storeError converts a failed balance read into an AppError.
func storeError(out domain.Outcome, msg string) *domain.AppError {
	e := domain.NewAppError(out.Code, msg+": "+domain.Message(out.Code))
	e.Cause = out.Cause
	return e
}
