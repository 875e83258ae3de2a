// Package ledger tracks each identity's remaining spending capacity.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/models"
)

// ErrInsufficientFunds is returned by Debit when the requested amount exceeds
// the identity's remaining budget. A balance never goes negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger holds per-identity remaining budgets. Entries are created lazily at
// first lookup with the configured starting budget. Debit is the only mutator
// and is only invoked by the auction engine during resolution.
type Ledger struct {
	mu             sync.RWMutex
	startingBudget decimal.Decimal
	balances       map[string]decimal.Decimal
}

// New creates a ledger where every identity starts with startingBudget.
func New(startingBudget decimal.Decimal) *Ledger {
	return &Ledger{
		startingBudget: startingBudget,
		balances:       make(map[string]decimal.Decimal),
	}
}

// NewFromResolutions creates a ledger seeded with the amounts already
// committed by prior resolved rounds, so a restarted coordinator reports the
// same remaining budgets as before.
func NewFromResolutions(startingBudget decimal.Decimal, resolutions []models.Resolution) *Ledger {
	l := New(startingBudget)
	for _, res := range resolutions {
		if res.Winner == nil || res.Amount == nil {
			continue
		}
		balance := l.lookupLocked(res.Winner.Name)
		l.balances[res.Winner.Name] = balance.Sub(*res.Amount)
	}
	return l
}

// Budget returns the identity's remaining budget, creating the entry at the
// starting budget if it does not exist yet.
func (l *Ledger) Budget(identity models.Identity) decimal.Decimal {
	l.mu.RLock()
	balance, ok := l.balances[identity.Name]
	l.mu.RUnlock()
	if ok {
		return balance
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lookupLocked(identity.Name)
}

// Debit subtracts amount from the identity's remaining budget. It fails with
// ErrInsufficientFunds rather than ever letting a balance go negative.
func (l *Ledger) Debit(identity models.Identity, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.lookupLocked(identity.Name)
	if amount.GreaterThan(balance) {
		return fmt.Errorf("debit %s from %s with balance %s: %w",
			amount, identity.Name, balance, ErrInsufficientFunds)
	}
	l.balances[identity.Name] = balance.Sub(amount)
	return nil
}

func (l *Ledger) lookupLocked(name string) decimal.Decimal {
	balance, ok := l.balances[name]
	if !ok {
		balance = l.startingBudget
		l.balances[name] = balance
	}
	return balance
}
