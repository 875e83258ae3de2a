package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/draftroom/auctioneer/internal/models"
)

// YAMLRepository reads the catalog from a YAML file. File order is preserved
// as the nomination order.
type YAMLRepository struct {
	path string
}

type catalogFile struct {
	Players []models.Player `yaml:"players"`
}

// NewYAMLRepository creates a repository over a catalog file.
func NewYAMLRepository(path string) *YAMLRepository {
	return &YAMLRepository{path: path}
}

func (r *YAMLRepository) Players(_ context.Context) ([]models.Player, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	for i, p := range file.Players {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalog entry %d: id and name are required", i)
		}
	}
	return file.Players, nil
}
