package gateway

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/draftroom/auctioneer/internal/auth"
	"github.com/draftroom/auctioneer/internal/events"
	"github.com/draftroom/auctioneer/internal/models"
)

// StateReader is the read-only engine surface consumed by the display glue:
// catalog listings, bin, teams, and budgets.
type StateReader interface {
	StateProvider
	UnauctionedPlayers() []models.Player
	BinPlayers() []models.Player
	Resolutions() []models.Resolution
}

// TeamView is one identity's resolved-round history plus remaining budget.
type TeamView struct {
	Username   string          `json:"username"`
	Budget     decimal.Decimal `json:"budget"`
	WonPlayers []WonPlayer     `json:"wonPlayers"`
}

// WonPlayer is a single won round in a team view.
type WonPlayer struct {
	Player      models.Player   `json:"player"`
	Amount      decimal.Decimal `json:"amount"`
	AuctionDate time.Time       `json:"auctionDate"`
}

// StateHandler serves the read-only JSON endpoints. These sit outside the
// synchronization core: they only read committed snapshots.
type StateHandler struct {
	reader StateReader
	auth   *auth.Service
}

// NewStateHandler creates a state handler.
func NewStateHandler(reader StateReader, authSvc *auth.Service) *StateHandler {
	return &StateHandler{
		reader: reader,
		auth:   authSvc,
	}
}

// HandleGetPlayers handles GET /api/players: the unauctioned catalog in
// nomination order.
func (h *StateHandler) HandleGetPlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	players := h.reader.UnauctionedPlayers()
	if players == nil {
		players = []models.Player{}
	}
	writeJSON(w, players)
}

// HandleGetBin handles GET /api/players/bin: players resolved with zero bids.
func (h *StateHandler) HandleGetBin(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticated(w, r); !ok {
		return
	}
	players := h.reader.BinPlayers()
	if players == nil {
		players = []models.Player{}
	}
	writeJSON(w, players)
}

// HandleGetTeams handles GET /api/teams: resolved rounds grouped by winning
// identity, with remaining budgets.
func (h *StateHandler) HandleGetTeams(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticated(w, r); !ok {
		return
	}

	byWinner := make(map[string][]WonPlayer)
	for _, res := range h.reader.Resolutions() {
		if res.Winner == nil || res.Amount == nil {
			continue
		}
		byWinner[res.Winner.Name] = append(byWinner[res.Winner.Name], WonPlayer{
			Player:      res.Player,
			Amount:      *res.Amount,
			AuctionDate: res.ResolvedAt,
		})
	}

	teams := make([]TeamView, 0, len(h.auth.Identities()))
	for _, identity := range h.auth.Identities() {
		won := byWinner[identity.Name]
		if won == nil {
			won = []WonPlayer{}
		}
		teams = append(teams, TeamView{
			Username:   identity.Name,
			Budget:     h.reader.CurrentBudget(identity),
			WonPlayers: won,
		})
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Username < teams[j].Username })
	writeJSON(w, teams)
}

// HandleGetBudget handles GET /api/budget: the caller's remaining budget.
func (h *StateHandler) HandleGetBudget(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticated(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]decimal.Decimal{"budget": h.reader.CurrentBudget(identity)})
}

// HandleGetState handles GET /api/auction/state: the same full snapshot a
// session receives on (re)join.
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticated(w, r)
	if !ok {
		return
	}

	snap := h.reader.Snapshot()
	budget := h.reader.CurrentBudget(identity)
	payload := events.AuctionStatePayload{
		AuctionActive: snap.Active,
		AllBids:       []models.Bid{},
		Version:       snap.Version,
		Budget:        &budget,
	}
	if snap.Round != nil {
		payload.CurrentPlayer = &snap.Round.Player
		payload.CurrentBid = snap.Round.CurrentBid()
		payload.AllBids = snap.Round.Bids
	}
	writeJSON(w, payload)
}

// RegisterRoutes registers the read-API routes.
func (h *StateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/players", h.HandleGetPlayers)
	mux.HandleFunc("/api/players/bin", h.HandleGetBin)
	mux.HandleFunc("/api/teams", h.HandleGetTeams)
	mux.HandleFunc("/api/budget", h.HandleGetBudget)
	mux.HandleFunc("/api/auction/state", h.HandleGetState)
}

func (h *StateHandler) authenticated(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return models.Identity{}, false
	}
	identity, err := h.auth.AuthenticateRequest(r)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return models.Identity{}, false
	}
	return identity, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
