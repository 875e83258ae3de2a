package auctionclient

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftroom/auctioneer/internal/events"
	"github.com/draftroom/auctioneer/internal/models"
)

func frame(t *testing.T, typ events.Type, version uint64, payload any) Frame {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Frame{ID: "test", Type: typ, Version: version, Data: data}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplySnapshotReplacesViewAndGoesLive(t *testing.T) {
	c := New(DefaultConfig("ws://localhost:8080/ws/auction", "token"))
	require.Equal(t, StateDisconnected, c.State())

	player := models.Player{ID: "1", Name: "Erling Haaland", Position: "striker"}
	bid := models.Bid{Amount: money("10"), Bidder: models.Identity{Name: "giulia"}}
	budget := money("100")
	c.apply(frame(t, events.TypeAuctionState, 5, events.AuctionStatePayload{
		CurrentPlayer: &player,
		CurrentBid:    &bid,
		AuctionActive: true,
		AllBids:       []models.Bid{bid},
		Version:       5,
		Budget:        &budget,
	}))

	require.Equal(t, StateLive, c.State())
	view := c.View()
	assert.True(t, view.AuctionActive)
	require.NotNil(t, view.CurrentPlayer)
	assert.Equal(t, "1", view.CurrentPlayer.ID)
	require.NotNil(t, view.CurrentBid)
	assert.True(t, view.CurrentBid.Amount.Equal(money("10")))
	assert.Equal(t, uint64(5), view.Version)
	require.NotNil(t, view.Budget)
	assert.True(t, view.Budget.Equal(money("100")))
}

func TestApplyDeltasPatchTheView(t *testing.T) {
	c := New(DefaultConfig("ws://localhost:8080/ws/auction", "token"))

	c.apply(frame(t, events.TypeAuctionState, 1, events.AuctionStatePayload{Version: 1}))

	player := models.Player{ID: "2", Name: "Vinicius Junior"}
	c.apply(frame(t, events.TypeAuctionStarted, 2, events.AuctionStartedPayload{
		Player:  player,
		AllBids: []models.Bid{},
	}))
	view := c.View()
	assert.True(t, view.AuctionActive)
	assert.Equal(t, "2", view.CurrentPlayer.ID)
	assert.Nil(t, view.CurrentBid)
	assert.Equal(t, uint64(2), view.Version)

	first := models.Bid{Amount: money("10"), Bidder: models.Identity{Name: "giulia"}}
	second := models.Bid{Amount: money("11"), Bidder: models.Identity{Name: "sam"}}
	c.apply(frame(t, events.TypeNewBid, 3, events.NewBidPayload{
		CurrentBid: second,
		AllBids:    []models.Bid{first, second},
	}))
	view = c.View()
	require.NotNil(t, view.CurrentBid)
	assert.True(t, view.CurrentBid.Amount.Equal(money("11")))
	assert.Len(t, view.AllBids, 2)

	winner := models.Identity{Name: "sam"}
	amount := money("11")
	c.apply(frame(t, events.TypeAuctionStopped, 4, events.AuctionStoppedPayload{
		Winner: &winner,
		Amount: &amount,
		Player: player,
	}))
	view = c.View()
	assert.False(t, view.AuctionActive)
	assert.Nil(t, view.CurrentBid)
	assert.Empty(t, view.AllBids)
	assert.Equal(t, uint64(4), view.Version)
}

func TestApplyIgnoresStaleFrames(t *testing.T) {
	c := New(DefaultConfig("ws://localhost:8080/ws/auction", "token"))

	c.apply(frame(t, events.TypeAuctionState, 7, events.AuctionStatePayload{
		AuctionActive: true,
		Version:       7,
	}))

	// A delta from before the reconnect snapshot must not regress the view.
	stale := models.Bid{Amount: money("3"), Bidder: models.Identity{Name: "giulia"}}
	c.apply(frame(t, events.TypeNewBid, 4, events.NewBidPayload{
		CurrentBid: stale,
		AllBids:    []models.Bid{stale},
	}))

	view := c.View()
	assert.Nil(t, view.CurrentBid)
	assert.Equal(t, uint64(7), view.Version)
}

func TestCommandsRequireLiveState(t *testing.T) {
	c := New(DefaultConfig("ws://localhost:8080/ws/auction", "token"))

	assert.ErrorIs(t, c.PlaceBid(money("10")), ErrNotLive)
	assert.ErrorIs(t, c.StartAuction(), ErrNotLive)
	assert.ErrorIs(t, c.StopAuction(), ErrNotLive)
}

func TestViewReturnsACopy(t *testing.T) {
	c := New(DefaultConfig("ws://localhost:8080/ws/auction", "token"))

	bid := models.Bid{Amount: money("10"), Bidder: models.Identity{Name: "giulia"}}
	c.apply(frame(t, events.TypeAuctionState, 1, events.AuctionStatePayload{
		AuctionActive: true,
		AllBids:       []models.Bid{bid},
		Version:       1,
	}))

	view := c.View()
	view.AllBids[0].Bidder.Name = "mutated"
	assert.Equal(t, "giulia", c.View().AllBids[0].Bidder.Name)
}

func TestNextBackoffDoublesUpToCap(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(500*time.Millisecond, 15*time.Second))
	assert.Equal(t, 15*time.Second, nextBackoff(10*time.Second, 15*time.Second))
	assert.Equal(t, 15*time.Second, nextBackoff(15*time.Second, 15*time.Second))
}
