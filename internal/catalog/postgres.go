package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/draftroom/auctioneer/internal/models"
)

// PostgresRepository reads the catalog from a players table. Rows are ordered
// by id so the nomination order is deterministic across restarts.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an existing connection.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const playersQuery = `
SELECT id, name, position, COALESCE(club, ''), COALESCE(country, ''), COALESCE(player_image, '')
FROM players
ORDER BY id`

func (r *PostgresRepository) Players(ctx context.Context) ([]models.Player, error) {
	rows, err := r.db.QueryContext(ctx, playersQuery)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Position, &p.Club, &p.Country, &p.Image); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player rows: %w", err)
	}
	return players, nil
}
