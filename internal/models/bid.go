package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is a single accepted raise. Bids are immutable once accepted and are
// appended to the round's order-preserving sequence.
type Bid struct {
	Amount   decimal.Decimal `json:"amount"`
	Bidder   Identity        `json:"bidder"`
	PlacedAt time.Time       `json:"placed_at"`
}
