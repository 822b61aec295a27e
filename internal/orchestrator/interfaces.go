package orchestrator

import (
	"github.com/cory-johannsen/multiplay/internal/game/lobby"
	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// Presentation is the menu and HUD layer. The orchestrator calls it from its
// own control flow only.
type Presentation interface {
	// OnServerListUpdated replaces the server browser rows.
	OnServerListUpdated(entries []session.ServerEntry)
	// OnRefreshEnabled enables or disables the refresh control.
	OnRefreshEnabled(enabled bool)
	// OnErrorAlert shows a failure message in an alert box.
	OnErrorAlert(message string)
	// OnReadinessChanged redraws the local player's readiness.
	OnReadinessChanged(status lobby.Status)
	// SelectedGameMode returns the game mode picked in the host menu.
	SelectedGameMode() session.GameMode
	// ShowMainMenu builds the main menu.
	ShowMainMenu()
	// TeardownMenu removes whichever menu is on screen.
	TeardownMenu()
	// ShowNotice shows a transient confirmation.
	ShowNotice(message string)
}

// Traveler moves the local process between maps and addresses. A returned
// error is a travel failure.
type Traveler interface {
	// ServerTravel moves the hosting process and everyone connected to url.
	ServerTravel(url string) error
	// ClientTravel moves the local client to url, a map path or a connect address.
	ClientTravel(url string) error
	// Quit terminates the process.
	Quit()
}
