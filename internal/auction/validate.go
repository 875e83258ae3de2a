package auction

import (
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/models"
)

var (
	halfUnit = decimal.NewFromFloat(0.5)
	oneUnit  = decimal.NewFromInt(1)
	twoUnits = decimal.NewFromInt(2)
)

// Validate decides whether a proposed bid is legal given the current highest
// bid and the bidder's live ledger balance. It is pure and deterministic:
// identical inputs always produce the same verdict, and it never touches
// engine or transport state.
//
// Rules, applied in order:
//  1. proposed must be positive with at most one fractional decimal digit.
//     Opening bids off the half-unit grid (say 10.3) pass this rule; the
//     increment rule is what keeps later raises on the grid.
//  2. With no current bid, any rule-1 amount opens the round.
//  3. Otherwise the increment must be exactly 0.5 or 1, or a larger increment
//     that is itself a whole or half-unit number.
//  4. proposed must not exceed the bidder's remaining balance.
func Validate(proposed decimal.Decimal, current *models.Bid, balance decimal.Decimal) error {
	if !proposed.IsPositive() || !proposed.Equal(proposed.Truncate(1)) {
		return ErrMalformedAmount
	}

	if current != nil {
		increment := proposed.Sub(current.Amount)
		switch {
		case increment.Equal(halfUnit), increment.Equal(oneUnit):
			// minimum raises
		case increment.GreaterThan(oneUnit) && increment.Mul(twoUnits).IsInteger():
			// jump bid on a half-unit boundary
		default:
			return ErrInvalidIncrement
		}
	}

	if proposed.GreaterThan(balance) {
		return ErrBudgetExceeded
	}
	return nil
}
