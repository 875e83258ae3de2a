// Package gateway is the coordinator's real-time edge: it authenticates
// sessions, delivers full snapshots on (re)join, fans committed events out in
// commit order, and exposes the read-only HTTP surface for the display glue.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/auction"
	"github.com/draftroom/auctioneer/internal/auth"
	"github.com/draftroom/auctioneer/internal/events"
)

var (
	errMalformedFrame = errors.New("undecodable message frame")
	errUnknownCommand = errors.New("unknown command type")
)

// Service wires the session manager, the WebSocket handler, and the state
// endpoints around the auction engine. It is the engine's broadcast sink and
// the sessions' command dispatcher.
type Service struct {
	manager      *SessionManager
	wsHandler    *WebSocketHandler
	stateHandler *StateHandler
	engine       *auction.Engine
	admin        *auction.AdminGate
}

// Config holds configuration for the gateway service.
type Config struct {
	Connection ConnectionConfig
}

// DefaultConfig returns default gateway configuration.
func DefaultConfig() Config {
	return Config{Connection: DefaultConnectionConfig()}
}

// NewService creates the gateway around an engine and registers itself as the
// engine's broadcast sink.
func NewService(config Config, engine *auction.Engine, admin *auction.AdminGate, authSvc *auth.Service) *Service {
	manager := NewSessionManager(config.Connection, engine)

	s := &Service{
		manager:      manager,
		wsHandler:    NewWebSocketHandler(manager, authSvc),
		stateHandler: NewStateHandler(engine, authSvc),
		engine:       engine,
		admin:        admin,
	}
	manager.SetCommandHandler(s)
	engine.AddSink(s)
	return s
}

// Start runs the gateway until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting auction gateway")
	s.manager.Run(ctx)
	log.Info().Msg("auction gateway stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and read-API routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// Committed implements auction.Sink. The engine calls it synchronously inside
// its serialized commit path, so enqueueing here preserves commit order.
func (s *Service) Committed(event auction.Event) {
	msg, err := eventMessage(event, winnerBudget(s.engine, event))
	if err != nil {
		log.Error().Err(err).Str("kind", string(event.Kind)).Msg("failed to build broadcast frame")
		return
	}
	s.manager.Broadcast(msg)
}

// HandleCommand implements CommandHandler: it decodes one client frame and
// routes it through the validator/admin gate into the engine. Rejections go
// back to the originating session only.
func (s *Service) HandleCommand(sess *Session, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().
			Err(err).
			Str("session_id", sess.ID).
			Msg("undecodable client frame")
		s.manager.SendTo(sess, errorMessage(errMalformedFrame))
		return
	}

	switch msg.Type {
	case events.TypePlaceBid:
		var cmd events.PlaceBidCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			s.manager.SendTo(sess, errorMessage(auction.ErrMalformedAmount))
			return
		}
		if _, err := s.engine.PlaceBid(sess.Identity, cmd.Amount); err != nil {
			s.manager.SendTo(sess, errorMessage(err))
		}

	case events.TypeStartAuction:
		if _, err := s.admin.Start(sess.Identity); err != nil {
			s.manager.SendTo(sess, errorMessage(err))
		}

	case events.TypeStopAuction:
		if _, err := s.admin.Stop(sess.Identity); err != nil {
			s.manager.SendTo(sess, errorMessage(err))
		}

	default:
		log.Debug().
			Str("session_id", sess.ID).
			Str("type", string(msg.Type)).
			Msg("unknown client command")
		s.manager.SendTo(sess, errorMessage(errUnknownCommand))
	}
}

// Stats reports live session counters.
func (s *Service) Stats() map[string]int {
	return s.manager.Stats()
}

// winnerBudget returns the winner's balance after the debit for stop events.
func winnerBudget(provider StateProvider, event auction.Event) *decimal.Decimal {
	if event.Kind != auction.EventStopped || event.Resolution == nil || event.Resolution.Winner == nil {
		return nil
	}
	budget := provider.CurrentBudget(*event.Resolution.Winner)
	return &budget
}
