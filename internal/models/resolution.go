package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resolution is the immutable outcome of a stopped round, computed once at
// stop time from the round's bid sequence. Winner and Amount are nil when the
// player received no bids and moved to the bin.
type Resolution struct {
	Player     Player           `json:"player"`
	Winner     *Identity        `json:"winner,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	MovedToBin bool             `json:"moved_to_bin"`
	ResolvedAt time.Time        `json:"resolved_at"`
}
