// Package ledger audits wallet rows against their append-only transaction history.
package ledger

import (
	"context"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/repository"
)

// Check records a single invariant validation.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// AuditResult is the outcome of auditing one wallet.
type AuditResult struct {
	Entity    string  `json:"entity"`
	Balance   int64   `json:"balance"`
	Sequence  int64   `json:"sequence"`
	Entries   int     `json:"entries"`
	Checks    []Check `json:"checks"`
	AllPassed bool    `json:"all_passed"`
}

// Auditor replays the ledger of a wallet and compares it to the wallet row.
//
// Invariants:
//  1. Balance non-negativity: the stored balance is >= 0
//  2. Chain continuity: each entry's balance_after is the previous balance_after plus
//     its amount, and sequences increase by exactly one
//  3. Ledger parity: the last entry's balance_after and sequence match the wallet row
type Auditor struct {
	db     repository.DBTX
	ledger repository.LedgerRepository
	store  repository.WalletStore
}

// NewAuditor creates an Auditor.
func NewAuditor(db repository.DBTX, ledger repository.LedgerRepository, store repository.WalletStore) *Auditor {
	return &Auditor{db: db, ledger: ledger, store: store}
}

// Audit reads the wallet and its history and validates the invariants.
// A missing wallet is a store-coded AppError.
func (a *Auditor) Audit(ctx context.Context, key domain.EntityKey) (*AuditResult, error) {
	out := a.store.Balance(ctx, key)
	if !out.OK() {
		e := domain.NewAppError(out.Code, fmt.Sprintf("read wallet %s: %s", key, domain.Message(out.Code)))
		e.Cause = out.Cause
		return nil, e
	}

	entries, err := a.ledger.ListByEntity(ctx, a.db, key)
	if err != nil {
		return nil, domain.ErrInternal("read ledger", err)
	}

	checks := CheckInvariants(out.Balance, out.Sequence, entries)
	allPassed := true
	for _, c := range checks {
		if !c.Passed {
			allPassed = false
		}
	}

	return &AuditResult{
		Entity:    key.String(),
		Balance:   out.Balance,
		Sequence:  out.Sequence,
		Entries:   len(entries),
		Checks:    checks,
		AllPassed: allPassed,
	}, nil
}

// CheckInvariants validates a wallet row against its entries, oldest first.
func CheckInvariants(balance, sequence int64, entries []domain.LedgerEntry) []Check {
	checks := make([]Check, 0, 3)

	checks = append(checks, Check{
		Name:   "balance_non_negative",
		Passed: balance >= 0,
		Detail: fmt.Sprintf("balance=%d", balance),
	})

	chain := Check{Name: "chain_continuity", Passed: true, Detail: fmt.Sprintf("%d entries", len(entries))}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Sequence != prev.Sequence+1 {
			chain = Check{Name: chain.Name, Detail: fmt.Sprintf("entry %d (%s): sequence %d follows %d", cur.ID, cur.OrderID, cur.Sequence, prev.Sequence)}
			break
		}
		if cur.BalanceAfter != prev.BalanceAfter+cur.Amount {
			chain = Check{Name: chain.Name, Detail: fmt.Sprintf("entry %d (%s): balance_after %d, expected %d", cur.ID, cur.OrderID, cur.BalanceAfter, prev.BalanceAfter+cur.Amount)}
			break
		}
	}
	checks = append(checks, chain)

	if len(entries) == 0 {
		checks = append(checks, Check{
			Name:   "ledger_parity",
			Passed: sequence == 0,
			Detail: fmt.Sprintf("no entries, wallet sequence=%d", sequence),
		})
		return checks
	}
	last := entries[len(entries)-1]
	checks = append(checks, Check{
		Name:   "ledger_parity",
		Passed: last.BalanceAfter == balance && last.Sequence == sequence,
		Detail: fmt.Sprintf("wallet=[%d,#%d] last entry=[%d,#%d]", balance, sequence, last.BalanceAfter, last.Sequence),
	})
	return checks
}
