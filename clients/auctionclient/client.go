// Package auctionclient is a Go client for the auction coordinator. It keeps
// an explicit connection state machine with backoff-driven reconnection, and
// treats its local view strictly as a cache: the view is replaced wholesale by
// every snapshot and patched by deltas, never authoritative.
package auctionclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/events"
	"github.com/draftroom/auctioneer/internal/models"
)

// ConnState is the client's connection lifecycle state.
type ConnState string

const (
	StateDisconnected  ConnState = "DISCONNECTED"
	StateConnecting    ConnState = "CONNECTING"
	StateAuthenticated ConnState = "AUTHENTICATED"
	StateSyncing       ConnState = "SYNCING"
	StateLive          ConnState = "LIVE"
)

// ErrNotLive is returned for commands issued before the first snapshot.
var ErrNotLive = errors.New("client is not live")

// Config holds client configuration.
type Config struct {
	URL            string // ws://host:port/ws/auction
	Token          string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int // consecutive failed connects before Run gives up
}

// DefaultConfig returns client defaults for a local coordinator.
func DefaultConfig(url, token string) Config {
	return Config{
		URL:            url,
		Token:          token,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     15 * time.Second,
		MaxRetries:     10,
	}
}

// Frame is one decoded message from the coordinator.
type Frame struct {
	ID        string          `json:"id"`
	Type      events.Type     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Version   uint64          `json:"version,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// View is the client's projection of coordinator state. It is rebuilt from
// every snapshot and patched by deltas in between.
type View struct {
	CurrentPlayer *models.Player
	CurrentBid    *models.Bid
	AuctionActive bool
	AllBids       []models.Bid
	Budget        *decimal.Decimal
	Version       uint64
}

// Client maintains one logical subscription to the coordinator across any
// number of physical connections.
type Client struct {
	config Config

	mu    sync.RWMutex
	state ConnState
	view  View
	conn  *websocket.Conn

	frames chan Frame
}

// New creates a client. Run must be called to connect.
func New(config Config) *Client {
	return &Client{
		config: config,
		state:  StateDisconnected,
		frames: make(chan Frame, 256),
	}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// View returns a copy of the current projection.
func (c *Client) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	view := c.view
	if len(c.view.AllBids) > 0 {
		view.AllBids = append([]models.Bid(nil), c.view.AllBids...)
	}
	return view
}

// Frames exposes every decoded coordinator frame, in arrival order.
func (c *Client) Frames() <-chan Frame {
	return c.frames
}

// Run connects and keeps the subscription alive until the context is
// cancelled or the retry budget is exhausted. Reconnects are driven by a
// backoff timer and are invisible to the coordinator's state machine: each
// new connection converges from its join snapshot.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateDisconnected)
			return err
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			failures++
			if c.config.MaxRetries > 0 && failures >= c.config.MaxRetries {
				c.setState(StateDisconnected)
				return fmt.Errorf("giving up after %d failed connects: %w", failures, err)
			}
			log.Warn().
				Err(err).
				Dur("backoff", backoff).
				Int("failures", failures).
				Msg("connect failed, retrying")
			if !sleep(ctx, backoff) {
				c.setState(StateDisconnected)
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, c.config.MaxBackoff)
			continue
		}

		failures = 0
		backoff = c.config.InitialBackoff
		c.setConn(conn)
		c.setState(StateAuthenticated)

		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("connection lost, reconnecting")
	}
}

// PlaceBid submits a bid for the current round.
func (c *Client) PlaceBid(amount decimal.Decimal) error {
	return c.send(events.TypePlaceBid, events.PlaceBidCommand{Amount: amount})
}

// StartAuction asks the coordinator to open the next round (admin only).
func (c *Client) StartAuction() error {
	return c.send(events.TypeStartAuction, struct{}{})
}

// StopAuction asks the coordinator to resolve the active round (admin only).
func (c *Client) StopAuction() error {
	return c.send(events.TypeStopAuction, struct{}{})
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.config.Token)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.config.URL, err)
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	c.setState(StateSyncing)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Debug().Err(err).Msg("undecodable frame from coordinator")
			continue
		}

		c.apply(frame)
		select {
		case c.frames <- frame:
		default:
			// Consumer is behind; the projection already absorbed the frame.
		}
	}
}

// apply folds one frame into the projection. Frames older than the current
// view version are stale leftovers from before a reconnect and are ignored.
func (c *Client) apply(frame Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame.Version != 0 && frame.Version < c.view.Version {
		return
	}

	switch frame.Type {
	case events.TypeAuctionState:
		var p events.AuctionStatePayload
		if json.Unmarshal(frame.Data, &p) != nil {
			return
		}
		c.view = View{
			CurrentPlayer: p.CurrentPlayer,
			CurrentBid:    p.CurrentBid,
			AuctionActive: p.AuctionActive,
			AllBids:       p.AllBids,
			Budget:        p.Budget,
			Version:       p.Version,
		}
		c.state = StateLive

	case events.TypeAuctionStarted:
		var p events.AuctionStartedPayload
		if json.Unmarshal(frame.Data, &p) != nil {
			return
		}
		c.view.CurrentPlayer = &p.Player
		c.view.CurrentBid = p.CurrentBid
		c.view.AllBids = p.AllBids
		c.view.AuctionActive = true
		c.view.Version = frame.Version

	case events.TypeNewBid:
		var p events.NewBidPayload
		if json.Unmarshal(frame.Data, &p) != nil {
			return
		}
		bid := p.CurrentBid
		c.view.CurrentBid = &bid
		c.view.AllBids = p.AllBids
		c.view.Version = frame.Version

	case events.TypeAuctionStopped:
		var p events.AuctionStoppedPayload
		if json.Unmarshal(frame.Data, &p) != nil {
			return
		}
		c.view.AuctionActive = false
		c.view.CurrentBid = nil
		c.view.AllBids = nil
		c.view.Version = frame.Version
	}
}

func (c *Client) send(t events.Type, payload any) error {
	c.mu.RLock()
	conn := c.conn
	live := c.state == StateLive
	c.mu.RUnlock()
	if conn == nil || !live {
		return ErrNotLive
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", t, err)
	}
	frame := Frame{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
	out, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", t, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotLive
	}
	return c.conn.WriteMessage(websocket.TextMessage, out)
}

func (c *Client) setState(state ConnState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
