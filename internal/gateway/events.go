package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/auction"
	"github.com/draftroom/auctioneer/internal/events"
	"github.com/draftroom/auctioneer/internal/models"
)

// Message is the envelope for every frame on the real-time channel, in both
// directions. Version carries the snapshot version the payload was built from
// so late joiners can discard deltas their snapshot already covers; it is zero
// for client commands and error replies.
type Message struct {
	ID        string          `json:"id"`
	Type      events.Type     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Version   uint64          `json:"version,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func newMessage(t events.Type, version uint64, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Version:   version,
		Data:      data,
	}, nil
}

// eventMessage translates a committed engine event into its wire frame.
// newBudget is the winner's balance after the debit, set only for stops with
// a winner.
func eventMessage(event auction.Event, newBudget *decimal.Decimal) (*Message, error) {
	allBids := []models.Bid{}
	if event.Round != nil {
		allBids = event.Round.Bids
	}

	switch event.Kind {
	case auction.EventStarted:
		return newMessage(events.TypeAuctionStarted, event.Snapshot.Version, events.AuctionStartedPayload{
			Player:     event.Round.Player,
			CurrentBid: event.Round.CurrentBid(),
			AllBids:    allBids,
		})

	case auction.EventNewBid:
		return newMessage(events.TypeNewBid, event.Snapshot.Version, events.NewBidPayload{
			CurrentBid: *event.Round.CurrentBid(),
			AllBids:    allBids,
		})

	case auction.EventStopped:
		return newMessage(events.TypeAuctionStopped, event.Snapshot.Version, events.AuctionStoppedPayload{
			Winner:     event.Resolution.Winner,
			Amount:     event.Resolution.Amount,
			Player:     event.Resolution.Player,
			NewBudget:  newBudget,
			AllBids:    allBids,
			MovedToBin: event.Resolution.MovedToBin,
		})

	default:
		return nil, fmt.Errorf("unknown engine event kind %q", event.Kind)
	}
}

// errorMessage builds the rejection frame sent only to the originating session.
func errorMessage(err error) *Message {
	msg, mErr := newMessage(events.TypeError, 0, events.ErrorPayload{Message: err.Error()})
	if mErr != nil {
		// ErrorPayload marshalling cannot fail; keep the compiler honest.
		return &Message{ID: uuid.New().String(), Type: events.TypeError, Timestamp: time.Now()}
	}
	return msg
}
