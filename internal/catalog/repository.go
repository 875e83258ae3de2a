// Package catalog supplies the pre-known, immutable player catalog the
// coordinator auctions from. The catalog is owned by an external collaborator;
// this package only reads it, in a deterministic order.
package catalog

import (
	"context"

	"github.com/draftroom/auctioneer/internal/models"
)

// Repository loads the full player catalog. Implementations must return
// players in a stable order across calls, since catalog order is the
// nomination order.
type Repository interface {
	Players(ctx context.Context) ([]models.Player, error)
}
