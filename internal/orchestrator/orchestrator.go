// Package orchestrator drives the local client's session lifecycle: hosting,
// searching, joining and leaving sessions, and routing every failure back to
// the main menu.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/multiplay/internal/config"
	"github.com/cory-johannsen/multiplay/internal/game/lobby"
	"github.com/cory-johannsen/multiplay/internal/game/modes"
	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// DefaultFailureMessage is shown when a transport failure carries no text.
const DefaultFailureMessage = "Error: Connection Lost"

// UnspecifiedHostName is advertised when the host submits an empty name.
const UnspecifiedHostName = "Unspecified Host"

// Notices shown after session transitions.
const (
	NoticeHosted    = "Hosted the session"
	NoticeDestroyed = "Session is destroyed"
	NoticeAllReady  = "All players are ready"
)

// lobbyUpdateBuffer bounds the readiness pushes awaiting the presentation.
// Pushes beyond it are dropped by the roster.
const lobbyUpdateBuffer = 64

// listenOption makes the server-travel target accept connections.
const listenOption = "?listen"

// ErrWrongState is returned when a request does not fit the current state,
// for example hosting while a search is in flight.
var ErrWrongState = fmt.Errorf("%w: not allowed in the current state", session.ErrRequestRejected)

// Orchestrator owns the session state machine and the pending-error mailbox.
//
// Not safe for concurrent use: every method, including Handle, Next and Run,
// must be called from one goroutine.
type Orchestrator struct {
	cfg     config.Config
	client  *session.Client
	ui      Presentation
	travel  Traveler
	catalog *modes.Catalog
	logger  *zap.Logger

	mailbox Mailbox
	state   State

	// abandon is set when the player leaves while a create or join is in
	// flight; the session is destroyed as soon as its completion arrives.
	abandon bool
	// menuShown tracks whether the main menu is on screen to receive alerts.
	menuShown bool
	hostMode  session.GameMode

	roster     *lobby.Roster
	updates    chan lobby.Update
	lastStatus lobby.Status
	hasStatus  bool
	allReady   bool
}

// New creates an Orchestrator in the Idle state.
//
// Precondition: client must be initialized; ui, travel, catalog and logger must be non-nil.
// Postcondition: Returns an Idle Orchestrator with an empty mailbox.
func New(cfg config.Config, client *session.Client, ui Presentation, travel Traveler, catalog *modes.Catalog, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		ui:      ui,
		travel:  travel,
		catalog: catalog,
		logger:  logger,
		state:   StateIdle,
		updates: make(chan lobby.Update, lobbyUpdateBuffer),
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Roster returns the lobby roster of the current session, or nil outside one.
func (o *Orchestrator) Roster() *lobby.Roster {
	return o.roster
}

// LobbyUpdates delivers every displayed status change in the current lobby,
// the local player's included. Updates from a lobby that was left are
// discarded.
func (o *Orchestrator) LobbyUpdates() <-chan lobby.Update {
	return o.updates
}

// LocalPlayer returns the player ID the local client occupies in a lobby.
func (o *Orchestrator) LocalPlayer() string {
	return o.cfg.Session.OwnerName
}

// Host submits a create request advertising name and the selected game mode.
//
// Precondition: State is Idle.
// Postcondition: Returns a rejection error, or nil with State Hosting.
func (o *Orchestrator) Host(ctx context.Context, name string) error {
	if o.state != StateIdle {
		return fmt.Errorf("hosting while %s: %w", o.state, ErrWrongState)
	}
	if name == "" {
		name = UnspecifiedHostName
	}
	sc := session.SessionConfig{
		IsLocalOnly:     o.client.IsLAN(),
		MaxPublicSlots:  o.cfg.Session.MaxPublicSlots,
		Advertise:       true,
		UsesPresence:    true,
		GameMode:        o.ui.SelectedGameMode(),
		HostDisplayName: name,
	}
	if err := o.client.HostSession(ctx, sc); err != nil {
		return err
	}
	o.hostMode = sc.GameMode
	o.setState(StateHosting)
	return nil
}

// Join submits a join for the search result at index. The menu is torn down
// as soon as the request is accepted.
//
// Precondition: State is Idle and index addresses the last search results.
// Postcondition: Returns session.ErrInvalidIndex without any network request
// when index is out of range; otherwise a rejection error or nil with State Joining.
func (o *Orchestrator) Join(ctx context.Context, index int) error {
	if err := o.client.CheckJoinIndex(index); err != nil {
		return err
	}
	if o.state != StateIdle {
		return fmt.Errorf("joining while %s: %w", o.state, ErrWrongState)
	}
	if err := o.client.JoinSession(ctx, index); err != nil {
		return err
	}
	o.teardownMenu()
	o.setState(StateJoining)
	return nil
}

// Refresh disables the refresh control and submits a search.
//
// Precondition: State is Idle.
// Postcondition: Returns a rejection error with the control left enabled, or
// nil with State Searching; OnRefreshEnabled(true) follows exactly once.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	if o.state != StateIdle {
		return fmt.Errorf("refreshing while %s: %w", o.state, ErrWrongState)
	}
	o.ui.OnRefreshEnabled(false)
	if err := o.client.SearchSessions(ctx); err != nil {
		o.ui.OnRefreshEnabled(true)
		return err
	}
	o.setState(StateSearching)
	return nil
}

// ReturnToMainMenu destroys the active session, best effort, and travels the
// local client to the main menu. It is valid with no session.
func (o *Orchestrator) ReturnToMainMenu(ctx context.Context) {
	switch o.state {
	case StateHosting, StateJoining:
		o.abandon = true
		o.logger.Info("leaving before session request completed", zap.Stringer("state", o.state))
	case StateInSession:
		o.destroyActive(ctx)
	}
	o.leaveLobby()
	o.menuShown = false
	if err := o.travel.ClientTravel(o.cfg.Travel.MainMenuURL); err != nil {
		o.logger.Error("travel to main menu failed", zap.String("url", o.cfg.Travel.MainMenuURL), zap.Error(err))
	}
}

// QuitApplication ends the process without touching the session.
func (o *Orchestrator) QuitApplication() {
	o.logger.Info("quitting")
	o.travel.Quit()
}

// ReportTransportFailure stores msg for the main menu and forces a return to it.
//
// Postcondition: DrainPendingError returns msg (or DefaultFailureMessage when
// msg is empty) exactly once.
func (o *Orchestrator) ReportTransportFailure(ctx context.Context, msg string) {
	if msg == "" {
		msg = DefaultFailureMessage
	}
	o.logger.Warn("transport failure", zap.String("message", msg), zap.Stringer("state", o.state))
	o.storeFailure(msg)
	o.ReturnToMainMenu(ctx)
}

// DrainPendingError takes the pending failure message.
//
// Postcondition: Returns (msg, true) once per stored failure, then ("", false).
func (o *Orchestrator) DrainPendingError() (string, bool) {
	return o.mailbox.Take()
}

// MainMenuLoaded is called by the presentation once the main menu is on
// screen. A freshly built menu lists no servers, so earlier search results
// stop being joinable. A pending failure is shown as an alert.
func (o *Orchestrator) MainMenuLoaded() {
	o.menuShown = true
	o.client.ClearResults()
	if msg, ok := o.mailbox.Take(); ok {
		o.ui.OnErrorAlert(msg)
	}
}

// ToggleReady flips the local player's readiness in the current lobby.
//
// Precondition: State is InSession.
// Postcondition: Returns the displayed status, or ErrWrongState outside a session.
func (o *Orchestrator) ToggleReady() (lobby.Status, error) {
	if o.state != StateInSession || o.roster == nil {
		return lobby.NotEnoughPlayers, fmt.Errorf("toggling readiness while %s: %w", o.state, ErrWrongState)
	}
	status, err := o.roster.Toggle(o.cfg.Session.OwnerName)
	if err != nil {
		return lobby.NotEnoughPlayers, fmt.Errorf("toggling readiness: %w", err)
	}
	o.reportReadiness()
	return status, nil
}

// PlayerToggledReady records another player flipping their readiness.
//
// Postcondition: Returns ErrWrongState outside a session, or an error when
// the player is not in the lobby.
func (o *Orchestrator) PlayerToggledReady(playerID string) error {
	if o.roster == nil {
		return fmt.Errorf("player %q toggled readiness while %s: %w", playerID, o.state, ErrWrongState)
	}
	if _, err := o.roster.Toggle(playerID); err != nil {
		return fmt.Errorf("toggling readiness of %q: %w", playerID, err)
	}
	o.reportReadiness()
	return nil
}

// PlayerJoined records another player connecting to the current lobby.
//
// Postcondition: Returns ErrWrongState outside a session.
func (o *Orchestrator) PlayerJoined(playerID string) error {
	if o.roster == nil {
		return fmt.Errorf("player %q joined while %s: %w", playerID, o.state, ErrWrongState)
	}
	if err := o.roster.Join(playerID); err != nil {
		return err
	}
	o.reportReadiness()
	return nil
}

// PlayerLeft records a player disconnecting from the current lobby.
//
// Postcondition: Returns ErrWrongState outside a session.
func (o *Orchestrator) PlayerLeft(playerID string) error {
	if o.roster == nil {
		return fmt.Errorf("player %q left while %s: %w", playerID, o.state, ErrWrongState)
	}
	if err := o.roster.Leave(playerID); err != nil {
		return err
	}
	o.reportReadiness()
	return nil
}

// Shutdown destroys the active session and waits for the destroy to
// complete. A create or join still in flight is awaited first.
//
// Postcondition: Returns nil once no session remains, or ctx's error.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	switch o.state {
	case StateHosting, StateJoining:
		o.abandon = true
	case StateInSession:
		o.destroyActive(ctx)
	}
	o.leaveLobby()
	for o.state != StateIdle && o.state != StateSearching {
		if err := o.Next(ctx); err != nil {
			return fmt.Errorf("waiting for session teardown: %w", err)
		}
	}
	o.client.Close()
	return nil
}

// Next waits for one completion and handles it.
//
// Postcondition: Returns nil after handling one event, or ctx's error.
func (o *Orchestrator) Next(ctx context.Context) error {
	select {
	case ev := <-o.client.Completions():
		o.Handle(ctx, ev)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles completions until ctx is done.
//
// Postcondition: Returns nil when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if err := o.Next(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// Handle applies one completion to the state machine.
func (o *Orchestrator) Handle(ctx context.Context, ev session.Event) {
	switch ev.Kind {
	case session.EventCreateComplete:
		o.onCreateComplete(ctx, ev)
	case session.EventFindComplete:
		o.onFindComplete(ev)
	case session.EventJoinComplete:
		o.onJoinComplete(ctx, ev)
	case session.EventDestroyComplete:
		o.onDestroyComplete(ev)
	case session.EventTransportFailure:
		o.ReportTransportFailure(ctx, ev.Message)
	default:
		o.logger.Warn("unknown completion", zap.Stringer("kind", ev.Kind))
	}
}

func (o *Orchestrator) onCreateComplete(ctx context.Context, ev session.Event) {
	if o.state != StateHosting {
		o.logger.Warn("create completion outside hosting", zap.Stringer("state", o.state))
		return
	}
	if o.abandon {
		o.abandon = false
		if ev.Succeeded() {
			o.destroyActive(ctx)
		} else {
			o.setState(StateIdle)
		}
		return
	}
	if !ev.Succeeded() {
		o.setState(StateIdle)
		o.storeFailure(ev.Err.Error())
		o.surfaceErrors()
		return
	}

	active, _ := o.client.Active()
	url := o.catalog.LobbyURL(o.hostMode, o.cfg.Travel.LobbyURL) + listenOption
	o.teardownMenu()
	o.enterSession(active)
	if err := o.travel.ServerTravel(url); err != nil {
		o.ReportTransportFailure(ctx, err.Error())
		return
	}
	o.ui.ShowNotice(NoticeHosted)
}

func (o *Orchestrator) onFindComplete(ev session.Event) {
	if o.state == StateSearching {
		o.setState(StateIdle)
	}
	if ev.Succeeded() {
		// The client keeps only mappable results, so row i is join index i.
		entries := session.ToServerEntries(o.client.Results(), o.cfg.Session.HostNameKey, func(r session.SearchResult, err error) {
			o.logger.Error("stored search result did not map to a row", zap.String("session_id", r.SessionID), zap.Error(err))
		})
		o.ui.OnServerListUpdated(entries)
	} else {
		o.storeFailure(ev.Err.Error())
		o.surfaceErrors()
	}
	o.ui.OnRefreshEnabled(true)
}

func (o *Orchestrator) onJoinComplete(ctx context.Context, ev session.Event) {
	if o.state != StateJoining {
		o.logger.Warn("join completion outside joining", zap.Stringer("state", o.state))
		return
	}
	if o.abandon {
		o.abandon = false
		if ev.Succeeded() {
			o.destroyActive(ctx)
		} else {
			o.setState(StateIdle)
		}
		return
	}
	if !ev.Succeeded() {
		o.failJoin(ev.Result.Message())
		o.setState(StateIdle)
		return
	}

	addr, err := o.client.ResolveConnectAddress(ev.SessionName)
	if err != nil {
		o.logger.Warn("joined session has no address", zap.String("session", ev.SessionName), zap.Error(err))
		o.destroyActive(ctx)
		o.failJoin(session.JoinAddressUnresolvable.Message())
		return
	}
	active, _ := o.client.Active()
	o.enterSession(active)
	if err := o.travel.ClientTravel(addr); err != nil {
		o.ReportTransportFailure(ctx, err.Error())
	}
}

func (o *Orchestrator) onDestroyComplete(ev session.Event) {
	if o.state == StateTearingDown {
		o.setState(StateIdle)
	}
	if !ev.Succeeded() {
		o.logger.Warn("destroy failed", zap.String("session", ev.SessionName), zap.Error(ev.Err))
		return
	}
	o.ui.ShowNotice(NoticeDestroyed)
}

// failJoin stores msg and rebuilds the main menu so it is shown once.
func (o *Orchestrator) failJoin(msg string) {
	o.storeFailure(msg)
	o.ui.ShowMainMenu()
	o.MainMenuLoaded()
}

// storeFailure puts msg in the mailbox. Only the latest failure is shown.
func (o *Orchestrator) storeFailure(msg string) {
	if o.mailbox.Pending() {
		o.logger.Info("replacing undisplayed failure", zap.String("message", msg))
	}
	o.mailbox.Put(msg)
}

// surfaceErrors alerts a pending failure when the main menu is up; otherwise
// it waits for MainMenuLoaded.
func (o *Orchestrator) surfaceErrors() {
	if o.menuShown {
		o.MainMenuLoaded()
	}
}

func (o *Orchestrator) destroyActive(ctx context.Context) {
	started, err := o.client.DestroySession(ctx)
	if err != nil {
		o.logger.Warn("destroy rejected", zap.Error(err))
	}
	if started {
		o.setState(StateTearingDown)
	} else {
		o.setState(StateIdle)
	}
}

func (o *Orchestrator) teardownMenu() {
	o.menuShown = false
	o.ui.TeardownMenu()
}

func (o *Orchestrator) enterSession(active session.ActiveSession) {
	o.setState(StateInSession)
	o.roster = lobby.NewRoster(o.cfg.Lobby.MinPlayers)
	o.roster.Subscribe(o.updates)
	o.hasStatus = false
	o.allReady = false
	if err := o.roster.Join(o.cfg.Session.OwnerName); err != nil {
		o.logger.Error("seeding lobby", zap.Error(err))
	}
	o.logger.Info("entered session",
		zap.String("session", active.Name),
		zap.String("handle", active.Handle),
		zap.Bool("host", active.IsHost),
	)
	o.reportReadiness()
}

func (o *Orchestrator) leaveLobby() {
	if o.roster != nil {
		o.roster.Unsubscribe(o.updates)
	}
	o.roster = nil
	o.hasStatus = false
	o.allReady = false
	for {
		select {
		case <-o.updates:
		default:
			return
		}
	}
}

// reportReadiness redraws the local player's status when it changed and
// announces the lobby becoming all ready.
func (o *Orchestrator) reportReadiness() {
	if o.roster == nil {
		return
	}
	status, ok := o.roster.Status(o.cfg.Session.OwnerName)
	if ok && !(o.hasStatus && status == o.lastStatus) {
		o.lastStatus = status
		o.hasStatus = true
		o.ui.OnReadinessChanged(status)
	}
	if all := o.roster.AllReady(); all != o.allReady {
		o.allReady = all
		if all {
			o.ui.ShowNotice(NoticeAllReady)
		}
	}
}

func (o *Orchestrator) setState(s State) {
	if s == o.state {
		return
	}
	o.logger.Debug("state transition", zap.Stringer("from", o.state), zap.Stringer("to", s))
	o.state = s
}
