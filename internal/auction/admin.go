package auction

import (
	"github.com/rs/zerolog/log"

	"github.com/draftroom/auctioneer/internal/models"
)

// AdminGate is the authorization filter in front of the engine's control
// operations. Unauthorized attempts are rejected before the engine is touched:
// no mutation, no broadcast.
type AdminGate struct {
	engine *Engine
}

// NewAdminGate wraps an engine's start/stop operations with a privilege check.
func NewAdminGate(engine *Engine) *AdminGate {
	return &AdminGate{engine: engine}
}

// Start opens the next round on behalf of a privileged identity.
func (g *AdminGate) Start(by models.Identity) (models.Player, error) {
	if !by.Privileged {
		log.Warn().Str("user", by.Name).Msg("unprivileged start attempt rejected")
		return models.Player{}, ErrUnauthorized
	}
	return g.engine.Start()
}

// Stop resolves the active round on behalf of a privileged identity.
func (g *AdminGate) Stop(by models.Identity) (models.Resolution, error) {
	if !by.Privileged {
		log.Warn().Str("user", by.Name).Msg("unprivileged stop attempt rejected")
		return models.Resolution{}, ErrUnauthorized
	}
	return g.engine.Stop()
}
