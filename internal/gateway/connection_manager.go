package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/auction"
	"github.com/draftroom/auctioneer/internal/events"
	"github.com/draftroom/auctioneer/internal/models"
)

// StateProvider is what the session manager needs from the state machine to
// build a full snapshot for a (re)joining session.
type StateProvider interface {
	Snapshot() auction.Snapshot
	CurrentBudget(models.Identity) decimal.Decimal
}

// CommandHandler processes a raw client frame received on a session.
type CommandHandler interface {
	HandleCommand(sess *Session, raw []byte)
}

// SessionManager maps authenticated identities to live WebSocket sessions and
// fans committed events out to all of them in commit order.
type SessionManager struct {
	sessions map[*Session]bool
	mu       sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	provider StateProvider
	commands CommandHandler

	// Committed events, already ordered by the engine's serialized commit
	// path. A single goroutine drains this channel so every session observes
	// the same sequence.
	broadcastCh chan *Message
}

// Session represents one WebSocket connection for an authenticated identity.
// The same identity may hold several sessions at once (desktop + reconnect);
// all of them receive identical broadcasts.
type Session struct {
	ID       string
	Identity models.Identity
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *SessionManager

	ConnectedAt time.Time
	LastPing    time.Time

	// Highest snapshot version this session has observed. Written at
	// registration and by the broadcast goroutine only.
	lastVersion uint64
}

// ConnectionConfig holds configuration for WebSocket sessions.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewSessionManager creates a session manager. The command handler is attached
// afterwards by the gateway service to break the construction cycle.
func NewSessionManager(config ConnectionConfig, provider StateProvider) *SessionManager {
	return &SessionManager{
		sessions: make(map[*Session]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		provider:    provider,
		broadcastCh: make(chan *Message, 1024),
	}
}

// SetCommandHandler attaches the handler invoked for every client frame.
func (sm *SessionManager) SetCommandHandler(h CommandHandler) {
	sm.commands = h
}

// Run drains the ordered broadcast queue until the context is cancelled.
func (sm *SessionManager) Run(ctx context.Context) {
	log.Info().Msg("session manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session manager shutting down")
			sm.closeAll()
			return
		case message := <-sm.broadcastCh:
			sm.handleBroadcast(message)
		}
	}
}

// Upgrade turns an authenticated HTTP request into a managed session and
// delivers the full state snapshot before any incremental event.
func (sm *SessionManager) Upgrade(w http.ResponseWriter, r *http.Request, identity models.Identity) error {
	conn, err := sm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	sess := &Session{
		ID:          uuid.New().String(),
		Identity:    identity,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     sm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	sm.register(sess)

	go sess.writePump()
	go sess.readPump()

	log.Info().
		Str("session_id", sess.ID).
		Str("user", identity.Name).
		Msg("session established")
	return nil
}

// register adds a session and queues its snapshot. The snapshot is read while
// already holding the write lock: a commit broadcast cannot land between the
// read and the registration, where it would reach neither the snapshot nor
// the session's queue. Deltas the snapshot already covers are filtered by
// version in handleBroadcast.
func (sm *SessionManager) register(sess *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	snap := sm.provider.Snapshot()
	budget := sm.provider.CurrentBudget(sess.Identity)
	msg, err := snapshotMessage(snap, &budget)
	if err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("failed to build join snapshot")
	}

	sm.sessions[sess] = true
	sess.lastVersion = snap.Version
	if msg != nil {
		if data, err := json.Marshal(msg); err == nil {
			sess.Send <- data
		}
	}

	log.Debug().
		Str("session_id", sess.ID).
		Uint64("version", snap.Version).
		Int("total_sessions", len(sm.sessions)).
		Msg("session registered")
}

// unregister removes a session and releases its send queue.
func (sm *SessionManager) unregister(sess *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.unregisterLocked(sess)
}

func (sm *SessionManager) unregisterLocked(sess *Session) {
	if _, exists := sm.sessions[sess]; !exists {
		return
	}
	delete(sm.sessions, sess)
	close(sess.Send)

	log.Info().
		Str("session_id", sess.ID).
		Str("user", sess.Identity.Name).
		Msg("session unregistered")
}

// Broadcast queues a committed event for ordered delivery to every session.
func (sm *SessionManager) Broadcast(message *Message) {
	select {
	case sm.broadcastCh <- message:
	default:
		log.Warn().Str("type", string(message.Type)).Msg("broadcast channel full, dropping message")
	}
}

// SendTo delivers a message to a single session only. Used for rejection
// replies, which never appear in the broadcast stream.
func (sm *SessionManager) SendTo(sess *Session, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal session message")
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.sessions[sess] {
		return
	}
	select {
	case sess.Send <- data:
	default:
		log.Warn().
			Str("session_id", sess.ID).
			Msg("session send buffer full, dropping direct message")
	}
}

// handleBroadcast fans one committed event out to every live session.
func (sm *SessionManager) handleBroadcast(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	sm.mu.RLock()
	var slow []*Session
	delivered := 0
	for sess := range sm.sessions {
		// A session whose join snapshot already covers this commit skips it.
		if message.Version != 0 && message.Version <= sess.lastVersion {
			continue
		}
		select {
		case sess.Send <- data:
			sess.lastVersion = message.Version
			delivered++
		default:
			slow = append(slow, sess)
		}
	}
	sm.mu.RUnlock()

	// Slow or dead sessions must never stall the event stream for the rest.
	for _, sess := range slow {
		log.Warn().
			Str("session_id", sess.ID).
			Str("user", sess.Identity.Name).
			Msg("session send buffer full, closing session")
		sm.unregister(sess)
		sess.Conn.Close()
	}

	log.Debug().
		Str("type", string(message.Type)).
		Uint64("version", message.Version).
		Int("sessions", delivered).
		Msg("event broadcast")
}

// Stats returns counters about live sessions.
func (sm *SessionManager) Stats() map[string]int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	byUser := make(map[string]int)
	for sess := range sm.sessions {
		byUser[sess.Identity.Name]++
	}
	return map[string]int{
		"total_sessions": len(sm.sessions),
		"identities":     len(byUser),
	}
}

func (sm *SessionManager) closeAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for sess := range sm.sessions {
		sess.Conn.Close()
		sm.unregisterLocked(sess)
	}
}

// snapshotMessage builds the full auctionState frame delivered on (re)join.
func snapshotMessage(snap auction.Snapshot, budget *decimal.Decimal) (*Message, error) {
	payload := events.AuctionStatePayload{
		AuctionActive: snap.Active,
		AllBids:       []models.Bid{},
		Version:       snap.Version,
		Budget:        budget,
	}
	if snap.Round != nil {
		payload.CurrentPlayer = &snap.Round.Player
		payload.CurrentBid = snap.Round.CurrentBid()
		payload.AllBids = snap.Round.Bids
	}
	return newMessage(events.TypeAuctionState, snap.Version, payload)
}

// writePump sends queued messages and pings on one session.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.Conn.Close()
		s.Manager.unregister(s)
	}()

	for {
		select {
		case message, ok := <-s.Send:
			s.Conn.SetWriteDeadline(time.Now().Add(s.Manager.config.WriteTimeout))
			if !ok {
				s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("session_id", s.ID).
					Msg("failed to write message to session")
				return
			}

		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(s.Manager.config.WriteTimeout))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("session_id", s.ID).
					Msg("failed to send ping")
				return
			}
			s.LastPing = time.Now()
		}
	}
}

// readPump receives client frames and hands them to the command handler.
// A disconnect tears down only this session's pumps; committed mutations are
// never cancelled.
func (s *Session) readPump() {
	defer func() {
		s.Manager.unregister(s)
		s.Conn.Close()
	}()

	s.Conn.SetReadLimit(s.Manager.config.MaxMessageSize)
	s.Conn.SetReadDeadline(time.Now().Add(s.Manager.config.ReadTimeout))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(s.Manager.config.ReadTimeout))
		s.LastPing = time.Now()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("session_id", s.ID).
					Msg("unexpected session close")
			}
			break
		}

		if s.Manager.commands != nil {
			s.Manager.commands.HandleCommand(s, raw)
		}
		s.Conn.SetReadDeadline(time.Now().Add(s.Manager.config.ReadTimeout))
	}
}
