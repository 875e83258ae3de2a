package auction

import (
	"fmt"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftroom/auctioneer/internal/ledger"
	"github.com/draftroom/auctioneer/internal/models"
)

var (
	admin   = models.Identity{Name: "marco", Privileged: true}
	alice   = models.Identity{Name: "alice"}
	bob     = models.Identity{Name: "bob"}
	visitor = models.Identity{Name: "visitor"}
)

// recordingSink captures committed events in the order they were delivered.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Committed(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func testCatalog(n int) []models.Player {
	players := make([]models.Player, n)
	for i := range players {
		players[i] = models.Player{
			ID:       fmt.Sprintf("%d", i+1),
			Name:     fmt.Sprintf("player %d", i+1),
			Position: "midfielder",
		}
	}
	return players
}

func newTestEngine(t *testing.T, players int, budget string) (*Engine, *ledger.Ledger, *recordingSink, *clockwork.FakeClock) {
	t.Helper()
	led := ledger.New(dec(budget))
	clock := clockwork.NewFakeClock()
	sink := &recordingSink{}
	engine := NewEngine(testCatalog(players), led, clock, sink)
	return engine, led, sink, clock
}

func TestStartFollowsCatalogOrder(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, 3, "100")

	first, err := engine.Start()
	require.NoError(t, err)
	assert.Equal(t, "1", first.ID)

	_, err = engine.Stop()
	require.NoError(t, err)

	second, err := engine.Start()
	require.NoError(t, err)
	assert.Equal(t, "2", second.ID, "resolved players are skipped")
}

func TestStartTwiceLeavesOneActiveRound(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, 3, "100")

	_, err := engine.Start()
	require.NoError(t, err)

	_, err = engine.Start()
	require.ErrorIs(t, err, ErrWrongPhase)

	snap := engine.Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, "1", snap.Round.Player.ID, "the first round is untouched")
}

func TestStopWhileIdle(t *testing.T) {
	engine, _, sink, _ := newTestEngine(t, 3, "100")

	_, err := engine.Stop()
	require.ErrorIs(t, err, ErrWrongPhase)
	assert.Empty(t, sink.all(), "structural rejections never broadcast")
}

func TestPlaceBidWhileIdle(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, 3, "100")

	_, err := engine.PlaceBid(alice, dec("5"))
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestCatalogExhausted(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, 1, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	_, err = engine.Stop()
	require.NoError(t, err)

	_, err = engine.Start()
	require.ErrorIs(t, err, ErrCatalogExhausted)
}

func TestRejectedBidLeavesStateUntouched(t *testing.T) {
	engine, _, sink, _ := newTestEngine(t, 1, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	_, err = engine.PlaceBid(alice, dec("10"))
	require.NoError(t, err)
	before := engine.Snapshot()

	_, err = engine.PlaceBid(bob, dec("10.3"))
	require.ErrorIs(t, err, ErrInvalidIncrement)
	_, err = engine.PlaceBid(bob, dec("200"))
	require.ErrorIs(t, err, ErrBudgetExceeded)

	after := engine.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, after.Round.Bids, 1)
	assert.Len(t, sink.all(), 2, "only start and the accepted bid were committed")
}

func TestResolutionDebitsWinner(t *testing.T) {
	engine, led, _, _ := newTestEngine(t, 1, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	_, err = engine.PlaceBid(alice, dec("10"))
	require.NoError(t, err)
	_, err = engine.PlaceBid(bob, dec("11"))
	require.NoError(t, err)
	_, err = engine.PlaceBid(alice, dec("12"))
	require.NoError(t, err)

	resolution, err := engine.Stop()
	require.NoError(t, err)

	require.NotNil(t, resolution.Winner)
	assert.Equal(t, "alice", resolution.Winner.Name)
	assert.True(t, resolution.Amount.Equal(dec("12")))
	assert.False(t, resolution.MovedToBin)

	assert.True(t, led.Budget(alice).Equal(dec("88")))
	assert.True(t, led.Budget(bob).Equal(dec("100")), "losing bidders are never debited")

	snap := engine.Snapshot()
	assert.False(t, snap.Active)
	require.Len(t, snap.Resolutions, 1)
}

func TestStopWithoutBidsMovesToBin(t *testing.T) {
	engine, led, _, _ := newTestEngine(t, 1, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	resolution, err := engine.Stop()
	require.NoError(t, err)

	assert.True(t, resolution.MovedToBin)
	assert.Nil(t, resolution.Winner)
	assert.Nil(t, resolution.Amount)
	assert.True(t, led.Budget(alice).Equal(dec("100")))

	bin := engine.BinPlayers()
	require.Len(t, bin, 1)
	assert.Equal(t, "1", bin[0].ID)
}

func TestSnapshotIsIdempotent(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, 1, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	_, err = engine.PlaceBid(alice, dec("5"))
	require.NoError(t, err)

	first := engine.Snapshot()
	second := engine.Snapshot()
	assert.Equal(t, first, second)
}

func TestSnapshotVersionsAreMonotonic(t *testing.T) {
	engine, _, sink, _ := newTestEngine(t, 1, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	_, err = engine.PlaceBid(alice, dec("5"))
	require.NoError(t, err)
	_, err = engine.Stop()
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 3)
	assert.Equal(t, EventStarted, events[0].Kind)
	assert.Equal(t, EventNewBid, events[1].Kind)
	assert.Equal(t, EventStopped, events[2].Kind)
	for i, event := range events {
		assert.Equal(t, uint64(i+1), event.Snapshot.Version)
	}
}

func TestBidTimestampsComeFromClock(t *testing.T) {
	engine, _, _, clock := newTestEngine(t, 1, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	bid, err := engine.PlaceBid(alice, dec("5"))
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), bid.PlacedAt)

	resolution, err := engine.Stop()
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), resolution.ResolvedAt)
}

func TestLedgerInconsistencyHaltsEngine(t *testing.T) {
	engine, led, _, _ := newTestEngine(t, 2, "100")

	_, err := engine.Start()
	require.NoError(t, err)
	_, err = engine.PlaceBid(alice, dec("10"))
	require.NoError(t, err)

	// Drain the winner's balance behind the engine's back so the resolution
	// debit cannot succeed.
	require.NoError(t, led.Debit(alice, dec("95")))

	_, err = engine.Stop()
	require.ErrorIs(t, err, ErrLedgerInconsistency)

	_, err = engine.Start()
	require.ErrorIs(t, err, ErrLedgerInconsistency, "a halted engine refuses all mutation")
	_, err = engine.PlaceBid(bob, dec("11"))
	require.ErrorIs(t, err, ErrLedgerInconsistency)
	_, err = engine.Stop()
	require.ErrorIs(t, err, ErrLedgerInconsistency)
}

func TestUnauctionedPlayersShrink(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, 3, "100")

	assert.Len(t, engine.UnauctionedPlayers(), 3)
	_, err := engine.Start()
	require.NoError(t, err)
	assert.Len(t, engine.UnauctionedPlayers(), 2, "the active player is no longer listed")
}

func TestConcurrentBidsCommitInTotalOrder(t *testing.T) {
	engine, _, sink, _ := newTestEngine(t, 1, "10000")

	_, err := engine.Start()
	require.NoError(t, err)

	// Many bidders race the same amounts; the commit path must serialize them
	// so every accepted bid strictly raises the previous one.
	const bidders = 8
	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		identity := models.Identity{Name: fmt.Sprintf("bidder-%d", i)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for amount := decimal.NewFromInt(1); amount.LessThan(decimal.NewFromInt(40)); amount = amount.Add(dec("0.5")) {
				engine.PlaceBid(identity, amount)
			}
		}()
	}
	wg.Wait()

	snap := engine.Snapshot()
	require.NotEmpty(t, snap.Round.Bids)
	for i := 1; i < len(snap.Round.Bids); i++ {
		assert.True(t, snap.Round.Bids[i].Amount.GreaterThan(snap.Round.Bids[i-1].Amount),
			"bid %d (%s) must raise bid %d (%s)",
			i, snap.Round.Bids[i].Amount, i-1, snap.Round.Bids[i-1].Amount)
	}

	// The sink saw one event per commit, versions strictly increasing.
	events := sink.all()
	require.Equal(t, len(snap.Round.Bids)+1, len(events))
	for i := 1; i < len(events); i++ {
		assert.Equal(t, events[i-1].Snapshot.Version+1, events[i].Snapshot.Version)
	}
}
