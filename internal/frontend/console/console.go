package console

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/multiplay/internal/game/lobby"
	"github.com/cory-johannsen/multiplay/internal/game/modes"
	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// ErrEmptyTravelTarget is returned when a travel request names no target.
var ErrEmptyTravelTarget = errors.New("travel target is empty")

// Console draws the client's menus on a terminal and simulates map travel.
// It implements orchestrator.Presentation and orchestrator.Traveler.
//
// A client travel to the main menu map is queued on Arrivals; the owner of
// the orchestrator loop must answer it with ShowMainMenu and MainMenuLoaded.
type Console struct {
	out         io.Writer
	catalog     *modes.Catalog
	mainMenuURL string
	logger      *zap.Logger

	mu       sync.Mutex
	mode     session.GameMode
	entries  []session.ServerEntry
	refresh  bool
	location string
	inMenu   bool

	arrivals chan string
	done     chan struct{}
	quitOnce sync.Once
}

// New creates a Console writing to out.
//
// Precondition: out, catalog and logger must be non-nil.
// Postcondition: Returns a Console with the default game mode selected and
// refresh enabled.
func New(out io.Writer, catalog *modes.Catalog, mainMenuURL string, logger *zap.Logger) *Console {
	return &Console{
		out:         out,
		catalog:     catalog,
		mainMenuURL: mainMenuURL,
		logger:      logger,
		mode:        session.DefaultGameMode,
		refresh:     true,
		arrivals:    make(chan string, 1),
		done:        make(chan struct{}),
	}
}

func (c *Console) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.logger.Debug("console write failed", zap.Error(err))
	}
}

// OnServerListUpdated implements orchestrator.Presentation.
func (c *Console) OnServerListUpdated(entries []session.ServerEntry) {
	c.mu.Lock()
	c.entries = append([]session.ServerEntry(nil), entries...)
	c.mu.Unlock()
	c.printf("%s", RenderServerList(entries, c.catalog))
}

// OnRefreshEnabled implements orchestrator.Presentation.
func (c *Console) OnRefreshEnabled(enabled bool) {
	c.mu.Lock()
	c.refresh = enabled
	c.mu.Unlock()
	if !enabled {
		c.printf("%s\n", Colorize(Dim, "Searching..."))
	}
}

// OnErrorAlert implements orchestrator.Presentation.
func (c *Console) OnErrorAlert(message string) {
	c.printf("%s %s\n", Colorize(Bold+Red, "[!]"), Colorize(Red, message))
}

// OnReadinessChanged implements orchestrator.Presentation.
func (c *Console) OnReadinessChanged(status lobby.Status) {
	c.printf("%s\n", RenderReadiness(status))
}

// SelectedGameMode implements orchestrator.Presentation.
func (c *Console) SelectedGameMode() session.GameMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SelectMode changes the game mode used by the next host request.
//
// Postcondition: Returns an error and keeps the selection when mode is not catalogued.
func (c *Console) SelectMode(mode session.GameMode) error {
	m, ok := c.catalog.Lookup(mode)
	if !ok {
		return fmt.Errorf("game mode %s is not available", mode)
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	c.printf("Selected %s\n", Colorize(BrightYellow, m.Name))
	return nil
}

// ShowMainMenu implements orchestrator.Presentation.
func (c *Console) ShowMainMenu() {
	c.mu.Lock()
	c.inMenu = true
	c.entries = nil
	c.refresh = true
	mode := c.mode
	c.mu.Unlock()
	c.printf("\n%s\n", Colorize(Bold+BrightYellow, "== Main Menu =="))
	c.printf("Hosting mode: %s. Type %s for commands.\n",
		Colorize(BrightYellow, c.catalog.DisplayName(mode)), Colorize(BrightCyan, "help"))
}

// TeardownMenu implements orchestrator.Presentation.
func (c *Console) TeardownMenu() {
	c.mu.Lock()
	c.inMenu = false
	c.mu.Unlock()
}

// ShowNotice implements orchestrator.Presentation.
func (c *Console) ShowNotice(message string) {
	c.printf("%s\n", Colorize(Green, message))
}

// Print writes a plain line.
func (c *Console) Print(message string) {
	c.printf("%s\n", message)
}

// ServerTravel implements orchestrator.Traveler.
func (c *Console) ServerTravel(url string) error {
	if url == "" {
		return fmt.Errorf("server travel: %w", ErrEmptyTravelTarget)
	}
	c.setLocation(url)
	c.printf("%s %s\n", Colorize(Dim, "Hosting on"), url)
	return nil
}

// ClientTravel implements orchestrator.Traveler. Travel to the main menu map
// queues an arrival.
func (c *Console) ClientTravel(url string) error {
	if url == "" {
		return fmt.Errorf("client travel: %w", ErrEmptyTravelTarget)
	}
	c.setLocation(url)
	if url != c.mainMenuURL {
		c.printf("%s %s\n", Colorize(Dim, "Travelling to"), url)
		return nil
	}
	select {
	case c.arrivals <- url:
	default:
		c.logger.Debug("main menu arrival already queued")
	}
	return nil
}

// Quit implements orchestrator.Traveler.
func (c *Console) Quit() {
	c.quitOnce.Do(func() { close(c.done) })
}

// Arrivals delivers main menu arrivals.
func (c *Console) Arrivals() <-chan string { return c.arrivals }

// Done is closed once Quit is called.
func (c *Console) Done() <-chan struct{} { return c.done }

// Entries returns the rows last shown in the server browser.
func (c *Console) Entries() []session.ServerEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]session.ServerEntry(nil), c.entries...)
}

// RefreshEnabled reports whether the refresh control is enabled.
func (c *Console) RefreshEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh
}

// Location returns the last travel target.
func (c *Console) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// InMenu reports whether the main menu is on screen.
func (c *Console) InMenu() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inMenu
}

func (c *Console) setLocation(url string) {
	c.mu.Lock()
	c.location = url
	c.mu.Unlock()
}
