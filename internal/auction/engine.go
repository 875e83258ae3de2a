// Package auction owns the authoritative auction state: one round at a time,
// an append-only bid sequence, and the resolution history.
package auction

import (
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/ledger"
	"github.com/draftroom/auctioneer/internal/models"
)

// EventKind identifies a committed mutation.
type EventKind string

const (
	EventStarted EventKind = "auctionStarted"
	EventNewBid  EventKind = "newBid"
	EventStopped EventKind = "auctionStopped"
)

// Event describes one committed mutation together with the snapshot produced
// by it. Events carry everything a synchronizer needs so it never has to read
// engine state out of band.
type Event struct {
	Kind       EventKind
	Snapshot   Snapshot
	Resolution *models.Resolution // set on EventStopped
	Round      *models.Round      // the round the event concerns, including its bids
}

// Sink receives committed events synchronously, in exact commit order. A sink
// must hand off quickly (enqueue, not deliver) because it runs inside the
// engine's serialized commit path.
type Sink interface {
	Committed(Event)
}

// Snapshot is a complete, self-consistent view of auction state. Every commit
// produces a new immutable snapshot with a monotonic version; readers always
// see one whole snapshot, never a partially updated one.
type Snapshot struct {
	Version     uint64              `json:"version"`
	Active      bool                `json:"auction_active"`
	Round       *models.Round       `json:"round,omitempty"`
	Resolutions []models.Resolution `json:"resolutions"`
}

// CurrentBid returns the highest bid of the active round, or nil.
func (s *Snapshot) CurrentBid() *models.Bid {
	if s.Round == nil {
		return nil
	}
	return s.Round.CurrentBid()
}

// Engine is the auction state machine: the single writer of the current round,
// the resolution history, and all ledger entries. Concurrent bid submissions
// from any number of sessions serialize through one mutex, so no two bids can
// both validate against the same "current bid" and both commit.
type Engine struct {
	mu     sync.Mutex
	halted bool

	catalog   []models.Player
	auctioned map[string]bool
	round     *models.Round
	history   []models.Resolution

	ledger *ledger.Ledger
	clock  clockwork.Clock
	sinks  []Sink

	snap atomic.Pointer[Snapshot]
}

// NewEngine creates an engine over the given catalog. Catalog order is the
// deterministic nomination order.
func NewEngine(catalog []models.Player, led *ledger.Ledger, clock clockwork.Clock, sinks ...Sink) *Engine {
	e := &Engine{
		catalog:   catalog,
		auctioned: make(map[string]bool),
		ledger:    led,
		clock:     clock,
		sinks:     sinks,
	}
	e.snap.Store(&Snapshot{})
	return e
}

// AddSink registers an additional committed-event sink. Sinks added after
// mutations have begun only observe subsequent events.
func (e *Engine) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Start opens a round for the next unauctioned player in catalog order.
// Privilege is enforced by the AdminGate in front of this method.
func (e *Engine) Start() (models.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.halted {
		return models.Player{}, ErrLedgerInconsistency
	}
	if e.round != nil {
		return models.Player{}, ErrWrongPhase
	}

	player, ok := e.nextPlayer()
	if !ok {
		return models.Player{}, ErrCatalogExhausted
	}

	e.auctioned[player.ID] = true
	e.round = &models.Round{
		Player: player,
		Status: models.RoundStatusActive,
	}
	e.commit(EventStarted, nil, nil)

	log.Info().
		Str("player_id", player.ID).
		Str("player", player.Name).
		Msg("auction round started")
	return player, nil
}

// PlaceBid validates and, on success, atomically appends a bid to the active
// round. On failure nothing changes and the typed rejection is returned to the
// caller only.
func (e *Engine) PlaceBid(identity models.Identity, amount decimal.Decimal) (models.Bid, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.halted {
		return models.Bid{}, ErrLedgerInconsistency
	}
	if e.round == nil {
		return models.Bid{}, ErrWrongPhase
	}

	balance := e.ledger.Budget(identity)
	if err := Validate(amount, e.round.CurrentBid(), balance); err != nil {
		return models.Bid{}, err
	}

	bid := models.Bid{
		Amount:   amount,
		Bidder:   identity,
		PlacedAt: e.clock.Now(),
	}
	e.round.Bids = append(e.round.Bids, bid)
	e.commit(EventNewBid, nil, nil)

	log.Debug().
		Str("bidder", identity.Name).
		Str("amount", amount.String()).
		Str("player_id", e.round.Player.ID).
		Msg("bid accepted")
	return bid, nil
}

// Stop resolves the active round. With bids, the last (highest) bid wins and
// the winner's ledger is debited; without bids the player moves to the bin.
// A debit failure here means validation let an illegal bid through: the engine
// halts all further mutation instead of clamping the balance.
func (e *Engine) Stop() (models.Resolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.halted {
		return models.Resolution{}, ErrLedgerInconsistency
	}
	if e.round == nil {
		return models.Resolution{}, ErrWrongPhase
	}

	resolution := models.Resolution{
		Player:     e.round.Player,
		ResolvedAt: e.clock.Now(),
	}
	if winning := e.round.CurrentBid(); winning != nil {
		if err := e.ledger.Debit(winning.Bidder, winning.Amount); err != nil {
			e.halted = true
			log.Error().
				Err(err).
				Str("winner", winning.Bidder.Name).
				Str("amount", winning.Amount.String()).
				Str("player_id", e.round.Player.ID).
				Msg("ledger inconsistency at resolution, halting auction mutations")
			return models.Resolution{}, ErrLedgerInconsistency
		}
		winner := winning.Bidder
		amount := winning.Amount
		resolution.Winner = &winner
		resolution.Amount = &amount
	} else {
		resolution.MovedToBin = true
	}

	e.round.Status = models.RoundStatusResolved
	resolved := e.round.Clone()
	e.history = append(e.history, resolution)
	e.round = nil
	e.commit(EventStopped, &resolution, &resolved)

	evt := log.Info().
		Str("player_id", resolution.Player.ID).
		Bool("moved_to_bin", resolution.MovedToBin)
	if resolution.Winner != nil {
		evt = evt.Str("winner", resolution.Winner.Name).Str("amount", resolution.Amount.String())
	}
	evt.Msg("auction round resolved")
	return resolution, nil
}

// Snapshot returns the latest committed snapshot. Reads are lock-free and may
// run concurrently with mutations; two calls without an intervening commit
// return identical data.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// CurrentBudget reports an identity's live remaining budget.
func (e *Engine) CurrentBudget(identity models.Identity) decimal.Decimal {
	return e.ledger.Budget(identity)
}

// Resolutions returns the resolved-round history in resolution order.
func (e *Engine) Resolutions() []models.Resolution {
	return e.Snapshot().Resolutions
}

// UnauctionedPlayers returns the catalog entries not yet put up for auction,
// in catalog order.
func (e *Engine) UnauctionedPlayers() []models.Player {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []models.Player
	for _, p := range e.catalog {
		if !e.auctioned[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// BinPlayers returns players resolved with zero bids.
func (e *Engine) BinPlayers() []models.Player {
	var out []models.Player
	for _, res := range e.Snapshot().Resolutions {
		if res.MovedToBin {
			out = append(out, res.Player)
		}
	}
	return out
}

// commit publishes a new immutable snapshot and hands the event to every sink
// while still inside the serialized commit path, so sinks observe events in
// exact commit order. Callers must hold e.mu.
func (e *Engine) commit(kind EventKind, resolution *models.Resolution, resolved *models.Round) {
	prev := e.snap.Load()
	next := &Snapshot{
		Version:     prev.Version + 1,
		Active:      e.round != nil,
		Resolutions: append([]models.Resolution(nil), e.history...),
	}
	if e.round != nil {
		round := e.round.Clone()
		next.Round = &round
	}
	e.snap.Store(next)

	event := Event{Kind: kind, Snapshot: *next, Resolution: resolution, Round: next.Round}
	if resolved != nil {
		event.Round = resolved
	}
	for _, sink := range e.sinks {
		sink.Committed(event)
	}
}

func (e *Engine) nextPlayer() (models.Player, bool) {
	for _, p := range e.catalog {
		if !e.auctioned[p.ID] {
			return p, true
		}
	}
	return models.Player{}, false
}
