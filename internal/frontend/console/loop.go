package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cory-johannsen/multiplay/internal/game/command"
	"github.com/cory-johannsen/multiplay/internal/game/lobby"
	"github.com/cory-johannsen/multiplay/internal/game/session"
	"github.com/cory-johannsen/multiplay/internal/orchestrator"
)

// Loop is the client's single control goroutine. Typed commands, session
// completions and main menu arrivals are all handled on it, so the
// orchestrator is never touched concurrently.
type Loop struct {
	console     *Console
	orch        *orchestrator.Orchestrator
	commands    *command.Registry
	completions <-chan session.Event
	logger      *zap.Logger
}

// NewLoop creates a Loop.
//
// Precondition: every argument must be non-nil; completions is the session
// client's completion channel.
func NewLoop(c *Console, o *orchestrator.Orchestrator, commands *command.Registry, completions <-chan session.Event, logger *zap.Logger) *Loop {
	return &Loop{
		console:     c,
		orch:        o,
		commands:    commands,
		completions: completions,
		logger:      logger,
	}
}

// Run shows the main menu, then serves input lines, completions and
// arrivals until input ends, the player quits or ctx is done.
//
// Postcondition: Returns nil; the orchestrator is left for the caller to
// shut down.
func (l *Loop) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go scanLines(ctx, in, lines)

	l.console.ShowMainMenu()
	l.orch.MainMenuLoaded()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.console.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				l.logger.Info("input closed")
				return nil
			}
			l.Execute(ctx, line)
		case ev := <-l.completions:
			l.orch.Handle(ctx, ev)
			l.flushLobbyUpdates()
		case u := <-l.orch.LobbyUpdates():
			l.showLobbyUpdate(u)
		case <-l.console.Arrivals():
			l.console.ShowMainMenu()
			l.orch.MainMenuLoaded()
		}
	}
}

func scanLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

// Execute runs one typed command line. Failures are printed, never returned.
func (l *Loop) Execute(ctx context.Context, line string) {
	p := command.Parse(line)
	if p.Command == "" {
		return
	}
	cmd, ok := l.commands.Resolve(p.Command)
	if !ok {
		l.console.Print(fmt.Sprintf("Unknown command %q. Type %s for commands.", p.Command, Colorize(BrightCyan, "help")))
		return
	}
	if len(p.Args) < cmd.MinArgs {
		l.console.Print("Usage: " + cmd.Synopsis())
		return
	}
	if err := l.dispatch(ctx, cmd, p); err != nil {
		l.logger.Debug("command failed", zap.String("command", cmd.Name), zap.Error(err))
		l.console.Print(Colorize(Red, describe(err)))
	}
	l.flushLobbyUpdates()
}

// flushLobbyUpdates prints every queued lobby update.
func (l *Loop) flushLobbyUpdates() {
	for {
		select {
		case u := <-l.orch.LobbyUpdates():
			l.showLobbyUpdate(u)
		default:
			return
		}
	}
}

// showLobbyUpdate prints another player's status. The local player's own
// status is drawn by OnReadinessChanged.
func (l *Loop) showLobbyUpdate(u lobby.Update) {
	if u.PlayerID == l.orch.LocalPlayer() {
		return
	}
	l.console.Print(RenderPeerStatus(u.PlayerID, u.Status))
}

func (l *Loop) dispatch(ctx context.Context, cmd *command.Command, p command.ParseResult) error {
	switch cmd.Handler {
	case command.HandlerHost:
		return l.orch.Host(ctx, p.RawArgs)
	case command.HandlerMode:
		mode, err := session.ParseGameMode(p.Args[0])
		if err != nil {
			return err
		}
		return l.console.SelectMode(mode)
	case command.HandlerModes:
		l.console.Print(RenderModes(l.console.catalog, l.console.SelectedGameMode()))
	case command.HandlerRefresh:
		return l.orch.Refresh(ctx)
	case command.HandlerServers:
		l.console.Print(RenderServerList(l.console.Entries(), l.console.catalog))
	case command.HandlerJoin:
		index, err := p.IntArg(0)
		if err != nil {
			return err
		}
		return l.orch.Join(ctx, index)
	case command.HandlerReady:
		if len(p.Args) > 0 {
			return l.orch.PlayerToggledReady(p.Args[0])
		}
		status, err := l.orch.ToggleReady()
		if err != nil {
			return err
		}
		if status == lobby.NotEnoughPlayers {
			l.console.Print(Colorize(Gray, "Waiting for more players."))
		}
	case command.HandlerConnect:
		return l.orch.PlayerJoined(p.Args[0])
	case command.HandlerDisconnect:
		return l.orch.PlayerLeft(p.Args[0])
	case command.HandlerMenu:
		l.orch.ReturnToMainMenu(ctx)
	case command.HandlerStatus:
		l.console.Print(fmt.Sprintf("State: %s  Location: %s", l.orch.State(), l.console.Location()))
		if r := l.orch.Roster(); r != nil {
			l.console.Print(RenderLobbySummary(r.Count(), r.MinPlayers(), r.AllReady()))
		}
	case command.HandlerQuit:
		l.orch.QuitApplication()
	case command.HandlerHelp:
		l.console.Print(RenderHelp(l.commands))
	default:
		return fmt.Errorf("command %q has no handler", cmd.Name)
	}
	return nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrWrongState):
		return "Not available right now: " + err.Error()
	case errors.Is(err, session.ErrInvalidIndex):
		return "No such server. Refresh and pick a listed number."
	default:
		return err.Error()
	}
}
