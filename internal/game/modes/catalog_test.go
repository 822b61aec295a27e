package modes_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/multiplay/internal/game/modes"
	"github.com/cory-johannsen/multiplay/internal/game/session"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	writeFile(t, path, `
modes:
  - index: 0
    id: platform_jumper
    name: "Platform Jumper"
    lobby_map: /Game/PlatformJumper/Maps/Lobby
  - index: 1
    id: vehicle_race
    name: "Vehicle Race"
`)
	c, err := modes.Load(path)
	require.NoError(t, err)

	m, ok := c.Lookup(session.ModePlatformJumper)
	require.True(t, ok)
	assert.Equal(t, "Platform Jumper", m.Name)
	assert.Equal(t, "/Game/PlatformJumper/Maps/Lobby", c.LobbyURL(session.ModePlatformJumper, "/fallback"))
	assert.Equal(t, "/fallback", c.LobbyURL(session.ModeVehicleRace, "/fallback"))
	assert.Len(t, c.All(), 2)
	assert.Equal(t, 0, c.All()[0].Index)
}

func TestLoad_RejectsUnknownIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	writeFile(t, path, `
modes:
  - index: 9
    id: golf
    name: Golf
`)
	_, err := modes.Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsDuplicateIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.yaml")
	writeFile(t, path, `
modes:
  - {index: 0, id: a, name: A}
  - {index: 0, id: b, name: B}
`)
	_, err := modes.Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := modes.Load("/nonexistent/modes.yaml")
	assert.Error(t, err)
}

func TestLoad_ShippedCatalog(t *testing.T) {
	c, err := modes.Load(filepath.Join("..", "..", "..", "content", "modes.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.All(), 2)
}

func TestBuiltin_DisplayName(t *testing.T) {
	c := modes.Builtin()
	assert.Equal(t, "Vehicle Race", c.DisplayName(session.ModeVehicleRace))
	assert.Equal(t, "mode_7", c.DisplayName(session.GameMode(7)))
}

// Property: LobbyURL is never empty when a fallback is given.
func TestPropertyLobbyURLNonEmpty(t *testing.T) {
	c := modes.Builtin()
	rapid.Check(t, func(t *rapid.T) {
		mode := session.GameMode(rapid.IntRange(-3, 5).Draw(t, "mode"))
		if got := c.LobbyURL(mode, "/Game/Maps/Lobby"); got == "" {
			t.Fatalf("empty lobby url for mode %d", mode)
		}
	})
}
