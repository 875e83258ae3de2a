package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestYAMLRepositoryPreservesFileOrder(t *testing.T) {
	path := writeCatalog(t, `
players:
  - id: "9"
    name: Erling Haaland
    position: striker
    club: Manchester City
    country: Norway
  - id: "7"
    name: Vinicius Junior
    position: winger
  - id: "10"
    name: Lautaro Martinez
    position: striker
`)

	players, err := NewYAMLRepository(path).Players(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "9", players[0].ID)
	assert.Equal(t, "7", players[1].ID)
	assert.Equal(t, "10", players[2].ID)
	assert.Equal(t, "Manchester City", players[0].Club)
}

func TestYAMLRepositoryRejectsIncompleteEntries(t *testing.T) {
	path := writeCatalog(t, `
players:
  - id: "1"
    name: Complete Player
  - id: "2"
`)

	_, err := NewYAMLRepository(path).Players(context.Background())
	assert.ErrorContains(t, err, "id and name are required")
}

func TestYAMLRepositoryMissingFile(t *testing.T) {
	_, err := NewYAMLRepository(filepath.Join(t.TempDir(), "absent.yaml")).Players(context.Background())
	assert.ErrorContains(t, err, "read catalog file")
}

func TestYAMLRepositoryMalformedYAML(t *testing.T) {
	path := writeCatalog(t, "players: [unclosed")
	_, err := NewYAMLRepository(path).Players(context.Background())
	assert.ErrorContains(t, err, "parse catalog file")
}
