package gateway

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/draftroom/auctioneer/internal/auth"
)

// WebSocketHandler handles WebSocket upgrade requests for auction sessions.
// Authentication happens before the upgrade: requests without a valid bearer
// credential are dropped with 401 and never become sessions.
type WebSocketHandler struct {
	manager *SessionManager
	auth    *auth.Service
}

// NewWebSocketHandler creates a WebSocket handler.
func NewWebSocketHandler(manager *SessionManager, authSvc *auth.Service) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		auth:    authSvc,
	}
}

// HandleAuctionConnection authenticates and upgrades one auction session.
func (h *WebSocketHandler) HandleAuctionConnection(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.AuthenticateRequest(r)
	if err != nil {
		log.Warn().
			Str("remote", r.RemoteAddr).
			Msg("rejected unauthenticated connection attempt")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.manager.Upgrade(w, r, identity); err != nil {
		log.Error().
			Err(err).
			Str("user", identity.Name).
			Msg("failed to upgrade connection")
		return
	}
}

// HandleStats returns counters about active sessions.
func (h *WebSocketHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.Stats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/auction", h.HandleAuctionConnection)
	mux.HandleFunc("/ws/stats", h.HandleStats)
}
