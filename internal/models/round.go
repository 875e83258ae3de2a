package models

// RoundStatus defines the lifecycle phase of an auction round.
type RoundStatus string

const (
	RoundStatusIdle     RoundStatus = "IDLE"
	RoundStatusActive   RoundStatus = "ACTIVE"
	RoundStatusResolved RoundStatus = "RESOLVED"
)

// Round is one player's auction from start to resolution. Exactly one round
// may be Active at any instant.
type Round struct {
	Player Player      `json:"player"`
	Bids   []Bid       `json:"bids"`
	Status RoundStatus `json:"status"`
}

// CurrentBid returns the highest (last accepted) bid, or nil if none exist.
func (r *Round) CurrentBid() *Bid {
	if len(r.Bids) == 0 {
		return nil
	}
	return &r.Bids[len(r.Bids)-1]
}

// Clone returns a deep copy so callers can hand out rounds without exposing
// the engine's internal bid slice.
func (r *Round) Clone() Round {
	out := Round{
		Player: r.Player,
		Status: r.Status,
	}
	if len(r.Bids) > 0 {
		out.Bids = make([]Bid, len(r.Bids))
		copy(out.Bids, r.Bids)
	}
	return out
}
