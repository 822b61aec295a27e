// Package modes loads the catalog of hostable game modes: their display
// names and the lobby map each one is hosted on.
package modes

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// Mode describes one hostable game mode.
//
// Precondition: ID and Name must be non-empty after loading.
type Mode struct {
	Index       int    `yaml:"index"`
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// LobbyMap is the map the host travels to; empty means the configured default lobby.
	LobbyMap string `yaml:"lobby_map"`
}

// GameMode returns the session game mode this entry describes.
func (m *Mode) GameMode() session.GameMode {
	return session.GameMode(m.Index)
}

type catalogFile struct {
	Modes []*Mode `yaml:"modes"`
}

// Catalog indexes game modes by their session.GameMode value.
type Catalog struct {
	byMode map[session.GameMode]*Mode
}

// NewCatalog builds a Catalog from the given modes.
//
// Precondition: every mode has a valid index, a non-empty ID and Name, and indexes are unique.
// Postcondition: Returns a Catalog or a non-nil error naming the first violation.
func NewCatalog(modes []*Mode) (*Catalog, error) {
	c := &Catalog{byMode: make(map[session.GameMode]*Mode, len(modes))}
	for _, m := range modes {
		if m == nil {
			continue
		}
		if !m.GameMode().Valid() {
			return nil, fmt.Errorf("mode %q: index %d is not a known game mode", m.ID, m.Index)
		}
		if m.ID == "" || m.Name == "" {
			return nil, fmt.Errorf("mode at index %d: id and name must not be empty", m.Index)
		}
		if _, dup := c.byMode[m.GameMode()]; dup {
			return nil, fmt.Errorf("mode %q: duplicate index %d", m.ID, m.Index)
		}
		c.byMode[m.GameMode()] = m
	}
	return c, nil
}

// Builtin returns the catalog used when no catalog file is configured.
func Builtin() *Catalog {
	c, _ := NewCatalog([]*Mode{
		{Index: int(session.ModePlatformJumper), ID: session.ModePlatformJumper.String(), Name: "Platform Jumper"},
		{Index: int(session.ModeVehicleRace), ID: session.ModeVehicleRace.String(), Name: "Vehicle Race"},
	})
	return c
}

// Load reads a catalog YAML file.
//
// Precondition: path must name a readable YAML file with a top-level "modes" list.
// Postcondition: Returns a Catalog or a non-nil error.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing mode catalog %s: %w", path, err)
	}
	c, err := NewCatalog(f.Modes)
	if err != nil {
		return nil, fmt.Errorf("mode catalog %s: %w", path, err)
	}
	return c, nil
}

// Lookup returns the entry for mode.
//
// Postcondition: Returns (mode, true) if catalogued, or (nil, false).
func (c *Catalog) Lookup(mode session.GameMode) (*Mode, bool) {
	m, ok := c.byMode[mode]
	return m, ok
}

// DisplayName returns the mode's display name, falling back to its identifier.
func (c *Catalog) DisplayName(mode session.GameMode) string {
	if m, ok := c.byMode[mode]; ok {
		return m.Name
	}
	return mode.String()
}

// LobbyURL returns the lobby map to host mode on, or fallback when the mode
// has none.
//
// Postcondition: Returns a non-empty string when fallback is non-empty.
func (c *Catalog) LobbyURL(mode session.GameMode, fallback string) string {
	if m, ok := c.byMode[mode]; ok && m.LobbyMap != "" {
		return m.LobbyMap
	}
	return fallback
}

// All returns every catalogued mode ordered by index.
func (c *Catalog) All() []*Mode {
	out := make([]*Mode, 0, len(c.byMode))
	for _, m := range c.byMode {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
