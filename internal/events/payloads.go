// Package events holds the wire payload types shared between the gateway and
// Go clients.
package events

import (
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/models"
)

// Type identifies a message on the real-time channel.
type Type string

// Coordinator -> client events.
const (
	TypeAuctionState   Type = "auctionState"
	TypeAuctionStarted Type = "auctionStarted"
	TypeNewBid         Type = "newBid"
	TypeAuctionStopped Type = "auctionStopped"
	TypeError          Type = "error"
)

// Client -> coordinator commands.
const (
	TypePlaceBid     Type = "placeBid"
	TypeStartAuction Type = "startAuction"
	TypeStopAuction  Type = "stopAuction"
)

// AuctionStatePayload is the full snapshot delivered on every (re)connect and
// available on request. A client converges from this one message alone.
type AuctionStatePayload struct {
	CurrentPlayer *models.Player   `json:"currentPlayer,omitempty"`
	CurrentBid    *models.Bid      `json:"currentBid,omitempty"`
	AuctionActive bool             `json:"auctionActive"`
	AllBids       []models.Bid     `json:"allBids"`
	Version       uint64           `json:"version"`
	Budget        *decimal.Decimal `json:"budget,omitempty"` // receiving identity's balance
}

// AuctionStartedPayload announces a newly opened round.
type AuctionStartedPayload struct {
	Player     models.Player `json:"player"`
	CurrentBid *models.Bid   `json:"currentBid,omitempty"`
	AllBids    []models.Bid  `json:"allBids"`
}

// NewBidPayload is the incremental delta for an accepted bid.
type NewBidPayload struct {
	CurrentBid models.Bid   `json:"currentBid"`
	AllBids    []models.Bid `json:"allBids"`
}

// AuctionStoppedPayload announces a resolved round.
type AuctionStoppedPayload struct {
	Winner     *models.Identity `json:"winner,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Player     models.Player    `json:"player"`
	NewBudget  *decimal.Decimal `json:"newBudget,omitempty"` // winner's balance after debit
	AllBids    []models.Bid     `json:"allBids"`
	MovedToBin bool             `json:"movedToBin"`
}

// ErrorPayload reports a rejection to the session that caused it.
type ErrorPayload struct {
	Message string `json:"message"`
}

// PlaceBidCommand is the client request to raise the current bid.
type PlaceBidCommand struct {
	Amount decimal.Decimal `json:"amount"`
}
