package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/multiplay/internal/config"
	"github.com/cory-johannsen/multiplay/internal/game/command"
	"github.com/cory-johannsen/multiplay/internal/game/lobby"
	"github.com/cory-johannsen/multiplay/internal/game/modes"
	"github.com/cory-johannsen/multiplay/internal/game/session"
	"github.com/cory-johannsen/multiplay/internal/game/session/sessiontest"
	"github.com/cory-johannsen/multiplay/internal/orchestrator"
)

var (
	_ orchestrator.Presentation = (*Console)(nil)
	_ orchestrator.Traveler     = (*Console)(nil)
)

// syncBuffer is a bytes.Buffer safe to read while the loop writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StripANSI(s.buf.String())
}

type fixture struct {
	cfg      config.Config
	out      *syncBuffer
	console  *Console
	provider *sessiontest.Provider
	client   *session.Client
	orch     *orchestrator.Orchestrator
	loop     *Loop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.Default()
	f := &fixture{cfg: cfg, out: &syncBuffer{}, provider: sessiontest.NewProvider("DIRECTORY")}
	f.client = session.NewClient(cfg.Session, logger)
	require.NoError(t, f.client.Initialize(f.provider))
	t.Cleanup(f.client.Close)

	catalog := modes.Builtin()
	f.console = New(f.out, catalog, cfg.Travel.MainMenuURL, logger)
	f.orch = orchestrator.New(cfg, f.client, f.console, f.console, catalog, logger)
	f.loop = NewLoop(f.console, f.orch, command.DefaultRegistry(), f.client.Completions(), logger)
	f.orch.MainMenuLoaded()
	return f
}

// pump handles exactly one session completion.
func (f *fixture) pump(t *testing.T) {
	t.Helper()
	select {
	case ev := <-f.client.Completions():
		f.orch.Handle(context.Background(), ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no completion arrived")
	}
}

func (f *fixture) exec(line string) {
	f.loop.Execute(context.Background(), line)
}

func (f *fixture) host(t *testing.T) {
	t.Helper()
	f.exec("host Friday Night")
	f.provider.CompleteCreate("handle-1", nil)
	f.pump(t)
	require.Equal(t, orchestrator.StateInSession, f.orch.State())
}

func TestConsole_ClientTravelToMenuQueuesOneArrival(t *testing.T) {
	c := New(io.Discard, modes.Builtin(), "/menu", zaptest.NewLogger(t))
	require.NoError(t, c.ClientTravel("/menu"))
	require.NoError(t, c.ClientTravel("/menu"))
	assert.Equal(t, "/menu", <-c.Arrivals())
	select {
	case <-c.Arrivals():
		t.Fatal("second arrival queued")
	default:
	}

	require.NoError(t, c.ClientTravel("10.0.0.1:7777"))
	assert.Equal(t, "10.0.0.1:7777", c.Location())
	select {
	case <-c.Arrivals():
		t.Fatal("address travel queued an arrival")
	default:
	}
}

func TestConsole_EmptyTravelTargetFails(t *testing.T) {
	c := New(io.Discard, modes.Builtin(), "/menu", zaptest.NewLogger(t))
	assert.ErrorIs(t, c.ServerTravel(""), ErrEmptyTravelTarget)
	assert.ErrorIs(t, c.ClientTravel(""), ErrEmptyTravelTarget)
}

func TestConsole_QuitIsIdempotent(t *testing.T) {
	c := New(io.Discard, modes.Builtin(), "/menu", zaptest.NewLogger(t))
	c.Quit()
	c.Quit()
	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed after Quit")
	}
}

func TestConsole_SelectMode(t *testing.T) {
	c := New(io.Discard, modes.Builtin(), "/menu", zaptest.NewLogger(t))
	assert.Equal(t, session.DefaultGameMode, c.SelectedGameMode())
	require.NoError(t, c.SelectMode(session.ModeVehicleRace))
	assert.Equal(t, session.ModeVehicleRace, c.SelectedGameMode())
	assert.Error(t, c.SelectMode(session.GameMode(9)))
	assert.Equal(t, session.ModeVehicleRace, c.SelectedGameMode())
}

func TestConsole_ReadinessUsesStatusColor(t *testing.T) {
	var out bytes.Buffer
	c := New(&out, modes.Builtin(), "/menu", zaptest.NewLogger(t))
	c.OnReadinessChanged(lobby.Ready)
	assert.Contains(t, out.String(), Green+"Ready"+Reset)
}

func TestLoop_HostAdvertisesNameAndTravelsToLobby(t *testing.T) {
	f := newFixture(t)
	f.exec("mode vehicle_race")
	f.host(t)

	require.Len(t, f.provider.Created, 1)
	assert.Equal(t, "Friday Night", f.provider.Created[0].Settings[session.SettingHostName])
	assert.Equal(t, "1", f.provider.Created[0].Settings[session.SettingGameMode])
	assert.Equal(t, f.cfg.Travel.LobbyURL+"?listen", f.console.Location())
	assert.False(t, f.console.InMenu())
	assert.Contains(t, f.out.String(), orchestrator.NoticeHosted)
}

func TestLoop_RefreshAndServers(t *testing.T) {
	f := newFixture(t)
	f.exec("refresh")
	assert.False(t, f.console.RefreshEnabled())
	f.provider.CompleteFind(sessiontest.Results(2), nil)
	f.pump(t)

	assert.True(t, f.console.RefreshEnabled())
	require.Len(t, f.console.Entries(), 2)
	f.exec("servers")
	out := f.out.String()
	assert.Contains(t, out, "Host")
	assert.Contains(t, out, "Vehicle Race")
	assert.Contains(t, out, "1/5")
}

func TestLoop_JoinTravelsToResolvedAddress(t *testing.T) {
	f := newFixture(t)
	f.exec("find")
	f.provider.CompleteFind(sessiontest.Results(1), nil)
	f.pump(t)

	f.provider.SetAddress(f.cfg.Session.Name, "10.0.0.9:7777")
	f.exec("join 0")
	f.provider.CompleteJoin(session.JoinSuccess)
	f.pump(t)

	assert.Equal(t, orchestrator.StateInSession, f.orch.State())
	assert.Equal(t, "10.0.0.9:7777", f.console.Location())
}

func TestLoop_JoinRejections(t *testing.T) {
	f := newFixture(t)
	f.exec("join 0")
	assert.Contains(t, f.out.String(), "No such server")

	f.exec("join first")
	assert.Contains(t, f.out.String(), `"first" is not a number`)
	assert.Zero(t, f.provider.Calls())
}

func TestLoop_ReadinessFlow(t *testing.T) {
	f := newFixture(t)
	f.host(t)

	f.exec("ready")
	assert.Contains(t, f.out.String(), "Waiting for more players.")

	f.exec("connect bob")
	assert.Contains(t, f.out.String(), "Lobby: Not Ready")
	f.exec("rdy")
	assert.Contains(t, f.out.String(), "Lobby: Ready")

	f.exec("disconnect bob")
	assert.Equal(t, 2, strings.Count(f.out.String(), "Lobby: Not Enough Players"))
}

func TestLoop_PeerReadinessAndLobbySummary(t *testing.T) {
	f := newFixture(t)
	f.host(t)

	f.exec("connect bob")
	assert.Contains(t, f.out.String(), "bob: Not Ready")
	assert.NotContains(t, f.out.String(), f.orch.LocalPlayer()+": ")

	f.exec("ready bob")
	assert.Contains(t, f.out.String(), "bob: Ready")
	assert.NotContains(t, f.out.String(), orchestrator.NoticeAllReady)

	f.exec("rdy")
	assert.Contains(t, f.out.String(), orchestrator.NoticeAllReady)

	f.exec("status")
	assert.Contains(t, f.out.String(), "Players: 2 (min 2)  All ready")

	f.exec("ready carol")
	assert.Contains(t, f.out.String(), `"carol"`)
}

func TestLoop_JoinAfterFailedJoinNeedsRefresh(t *testing.T) {
	f := newFixture(t)
	f.exec("refresh")
	f.provider.CompleteFind(sessiontest.Results(2), nil)
	f.pump(t)

	f.exec("join 0")
	f.provider.CompleteJoin(session.JoinSessionFull)
	f.pump(t)
	assert.Contains(t, f.out.String(), session.JoinSessionFull.Message())
	assert.Empty(t, f.console.Entries())

	f.exec("join 1")
	assert.Contains(t, f.out.String(), "No such server")
	assert.Len(t, f.provider.Joined, 1)
}

func TestLoop_ReadyOutsideSessionIsRejected(t *testing.T) {
	f := newFixture(t)
	f.exec("ready")
	assert.Contains(t, f.out.String(), "Not available right now")
}

func TestLoop_MenuDestroysAndQueuesArrival(t *testing.T) {
	f := newFixture(t)
	f.host(t)

	f.exec("leave")
	assert.Equal(t, orchestrator.StateTearingDown, f.orch.State())
	assert.Equal(t, f.cfg.Travel.MainMenuURL, <-f.console.Arrivals())

	f.provider.CompleteDestroy(nil)
	f.pump(t)
	assert.Equal(t, orchestrator.StateIdle, f.orch.State())
	assert.Contains(t, f.out.String(), orchestrator.NoticeDestroyed)
}

func TestLoop_UnknownAndUsage(t *testing.T) {
	f := newFixture(t)
	f.exec("teleport")
	f.exec("mode")
	f.exec("   ")
	out := f.out.String()
	assert.Contains(t, out, `Unknown command "teleport"`)
	assert.Contains(t, out, "Usage: mode <id|index>")
}

func TestLoop_HelpAndModes(t *testing.T) {
	f := newFixture(t)
	f.exec("help")
	f.exec("modes")
	out := f.out.String()
	assert.Contains(t, out, "join <index>")
	assert.Contains(t, out, "Platform Jumper")
	assert.Contains(t, out, "Vehicle Race")
}

func TestLoop_RunQuits(t *testing.T) {
	f := newFixture(t)
	err := f.loop.Run(context.Background(), strings.NewReader("status\nquit\n"))
	require.NoError(t, err)
	out := f.out.String()
	assert.Contains(t, out, "== Main Menu ==")
	assert.Contains(t, out, "State: idle")
}

func TestLoop_RunEndsAtEOF(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.loop.Run(context.Background(), strings.NewReader("")))
}

func TestLoop_RunSurfacesTransportFailureOnMenu(t *testing.T) {
	f := newFixture(t)
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx, in) }()

	f.provider.Fail("Error: Connection Lost")
	require.Eventually(t, func() bool {
		return strings.Contains(f.out.String(), "[!] Error: Connection Lost")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 1, strings.Count(f.out.String(), "Error: Connection Lost"))
}
