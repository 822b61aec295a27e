// Package session provides the session model, the server-list mapping, and
// the session client that wraps a backend session provider.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/multiplay/internal/config"
)

// EventKind identifies which request an Event completes.
type EventKind int

const (
	// EventCreateComplete finishes HostSession.
	EventCreateComplete EventKind = iota + 1
	// EventFindComplete finishes SearchSessions; results are stored first.
	EventFindComplete
	// EventJoinComplete finishes JoinSession.
	EventJoinComplete
	// EventDestroyComplete finishes DestroySession.
	EventDestroyComplete
	// EventTransportFailure carries a network-level failure reported by the provider.
	EventTransportFailure
)

// String returns the event name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventCreateComplete:
		return "create_complete"
	case EventFindComplete:
		return "find_complete"
	case EventJoinComplete:
		return "join_complete"
	case EventDestroyComplete:
		return "destroy_complete"
	case EventTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Event is one completion delivered on Client.Completions.
type Event struct {
	Kind        EventKind
	SessionName string
	// Err is set for failed create, find, and destroy completions.
	Err error
	// Result is set for join completions.
	Result JoinResult
	// Message is set for transport failures.
	Message string
}

// Succeeded reports whether the completed request succeeded.
func (e Event) Succeeded() bool {
	switch e.Kind {
	case EventJoinComplete:
		return e.Result == JoinSuccess
	case EventTransportFailure:
		return false
	default:
		return e.Err == nil
	}
}

type pendingOp int

const (
	opNone pendingOp = iota
	opCreate
	opJoin
	opDestroy
)

func (p pendingOp) String() string {
	switch p {
	case opCreate:
		return "create"
	case opJoin:
		return "join"
	case opDestroy:
		return "destroy"
	default:
		return "none"
	}
}

var errCompletionDropped = errors.New("provider closed completion without a result")

// Client wraps a Provider and owns the single active session.
//
// Requests return synchronously with ErrRequestRejected-family errors when a
// precondition fails; otherwise exactly one Event for the request is later
// delivered on Completions. Client state is updated before the Event is
// delivered, so results and the active session are readable once the Event
// is received.
//
// All methods are safe for concurrent use.
type Client struct {
	cfg    config.SessionConfig
	logger *zap.Logger
	events chan Event
	done   chan struct{}

	mu        sync.Mutex
	provider  Provider
	active    *ActiveSession
	pending   pendingOp
	searching bool
	results   []SearchResult
	closeOnce sync.Once
}

// NewClient creates an uninitialized Client.
//
// Precondition: cfg must pass config validation; logger must be non-nil.
// Postcondition: Returns a Client that rejects requests until Initialize succeeds.
func NewClient(cfg config.SessionConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// Initialize binds the provider and starts forwarding its transport failures.
//
// Precondition: Called once at startup.
// Postcondition: Returns ErrNoActiveProvider when p is nil, ErrAlreadyInitialized
// on a second call, or nil.
func (c *Client) Initialize(p Provider) error {
	if p == nil {
		return ErrNoActiveProvider
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return ErrAlreadyInitialized
	}
	c.provider = p

	if failures := p.Failures(); failures != nil {
		go c.forwardFailures(failures)
	}
	c.logger.Info("session client initialized",
		zap.String("subsystem", p.SubsystemName()),
		zap.String("session", c.cfg.Name),
	)
	return nil
}

// Completions returns the stream every request completion is delivered on.
func (c *Client) Completions() <-chan Event {
	return c.events
}

// Close stops forwarding transport failures. Outstanding completions are
// still delivered.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// IsLAN reports whether the bound provider is the LAN subsystem.
func (c *Client) IsLAN() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider != nil && c.provider.SubsystemName() == LANSubsystem
}

// SessionName returns the well-known name every session is filed under.
func (c *Client) SessionName() string {
	return c.cfg.Name
}

// Active returns a copy of the active session.
//
// Postcondition: Returns (session, true) while a session exists, or (zero, false).
func (c *Client) Active() (ActiveSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ActiveSession{}, false
	}
	return *c.active, true
}

// Results returns a copy of the last successful search results. Only results
// that map to a server browser row are kept, so index i here is row i of the
// browser and the index JoinSession takes.
func (c *Client) Results() []SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SearchResult, len(c.results))
	copy(out, c.results)
	return out
}

// ClearResults forgets the last search results. Joins are rejected with
// ErrInvalidIndex until the next search completes.
func (c *Client) ClearResults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = nil
}

// Pending reports whether a host, join, or destroy awaits its completion.
func (c *Client) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != opNone
}

// HostSession submits a create request under the well-known session name.
//
// Precondition: No session is active and no host, join, or destroy is pending.
// Postcondition: Returns a rejection error, or nil and exactly one
// EventCreateComplete is delivered later.
func (c *Client) HostSession(ctx context.Context, cfg SessionConfig) error {
	c.mu.Lock()
	if err := c.checkExclusiveLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending = opCreate
	p := c.provider
	c.mu.Unlock()

	settings := map[string]string{
		c.cfg.HostNameKey: cfg.HostDisplayName,
		SettingGameMode:   fmt.Sprintf("%d", int(cfg.GameMode)),
	}
	c.logger.Info("hosting session",
		zap.String("session", c.cfg.Name),
		zap.String("host", cfg.HostDisplayName),
		zap.Stringer("mode", cfg.GameMode),
		zap.Int("slots", cfg.MaxPublicSlots),
		zap.Bool("lan", cfg.IsLocalOnly),
	)

	ch := p.CreateSession(ctx, c.cfg.Name, cfg, settings)
	go func() {
		comp, ok := <-ch
		if !ok {
			comp = CreateCompletion{SessionName: c.cfg.Name, Err: errCompletionDropped}
		}
		c.mu.Lock()
		c.pending = opNone
		if comp.Err == nil {
			c.active = &ActiveSession{Name: c.cfg.Name, Handle: comp.Handle, IsHost: true}
		}
		c.mu.Unlock()

		ev := Event{Kind: EventCreateComplete, SessionName: c.cfg.Name}
		if comp.Err != nil {
			ev.Err = fmt.Errorf("%w: creating session: %w", ErrBackendFailure, comp.Err)
		}
		c.logCompletion(ev)
		c.events <- ev
	}()
	return nil
}

// SearchSessions submits a find request bounded by the configured result
// limit and filtered to presence sessions.
//
// Precondition: No other search is in flight.
// Postcondition: Returns a rejection error, or nil and exactly one
// EventFindComplete is delivered later.
func (c *Client) SearchSessions(ctx context.Context) error {
	c.mu.Lock()
	if c.provider == nil {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if c.searching {
		c.mu.Unlock()
		return ErrSearchInFlight
	}
	c.searching = true
	p := c.provider
	c.mu.Unlock()

	q := Query{
		MaxResults: c.cfg.MaxSearchResults,
		Presence:   true,
		LAN:        p.SubsystemName() == LANSubsystem,
	}
	c.logger.Debug("searching sessions", zap.Int("max_results", q.MaxResults), zap.Bool("lan", q.LAN))

	ch := p.FindSessions(ctx, q)
	go func() {
		comp, ok := <-ch
		if !ok {
			comp = FindCompletion{Err: errCompletionDropped}
		}
		if len(comp.Results) > q.MaxResults {
			comp.Results = comp.Results[:q.MaxResults]
		}
		var kept []SearchResult
		if comp.Err == nil {
			kept = MappableResults(comp.Results, c.cfg.HostNameKey, func(r SearchResult, err error) {
				c.logger.Warn("dropping malformed search result", zap.String("session_id", r.SessionID), zap.Error(err))
			})
		}
		c.mu.Lock()
		c.searching = false
		if comp.Err == nil {
			c.results = kept
		}
		c.mu.Unlock()

		ev := Event{Kind: EventFindComplete}
		if comp.Err != nil {
			ev.Err = fmt.Errorf("%w: finding sessions: %w", ErrBackendFailure, comp.Err)
		}
		c.logger.Debug("search complete",
			zap.Int("results", len(comp.Results)),
			zap.Int("kept", len(kept)),
			zap.Error(ev.Err),
		)
		c.events <- ev
	}()
	return nil
}

// CheckJoinIndex reports whether index addresses the last search results.
//
// Postcondition: Returns nil or ErrInvalidIndex.
func (c *Client) CheckJoinIndex(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.results) {
		return ErrInvalidIndex
	}
	return nil
}

// JoinSession joins the search result at index under the well-known name.
//
// Precondition: index is within the last search results; no session is
// active; no host, join, or destroy is pending.
// Postcondition: Returns a rejection error, or nil and exactly one
// EventJoinComplete is delivered later.
func (c *Client) JoinSession(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.provider == nil {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if index < 0 || index >= len(c.results) {
		c.mu.Unlock()
		return ErrInvalidIndex
	}
	if err := c.checkExclusiveLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending = opJoin
	target := c.results[index]
	p := c.provider
	c.mu.Unlock()

	c.logger.Info("joining session",
		zap.String("session", c.cfg.Name),
		zap.String("handle", target.SessionID),
		zap.Int("index", index),
	)

	ch := p.JoinSession(ctx, c.cfg.Name, target)
	go func() {
		comp, ok := <-ch
		if !ok {
			comp = JoinCompletion{SessionName: c.cfg.Name, Result: JoinUnknown}
		}
		c.mu.Lock()
		c.pending = opNone
		if comp.Result == JoinSuccess {
			addr, _ := p.ResolvedConnectAddress(c.cfg.Name)
			handle := comp.Handle
			if handle == "" {
				handle = target.SessionID
			}
			c.active = &ActiveSession{Name: c.cfg.Name, Handle: handle, ConnectAddress: addr}
		}
		c.mu.Unlock()

		ev := Event{Kind: EventJoinComplete, SessionName: c.cfg.Name, Result: comp.Result}
		c.logCompletion(ev)
		c.events <- ev
	}()
	return nil
}

// DestroySession tears down the active session.
//
// Precondition: No host, join, or destroy is pending.
// Postcondition: Returns (false, nil) when no session exists and nothing is
// sent; (true, nil) when a destroy was submitted and exactly one
// EventDestroyComplete will follow; or a rejection error.
func (c *Client) DestroySession(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.provider == nil {
		c.mu.Unlock()
		return false, ErrNotInitialized
	}
	if c.pending != opNone {
		c.mu.Unlock()
		return false, ErrRequestPending
	}
	if c.active == nil {
		c.mu.Unlock()
		return false, nil
	}
	c.pending = opDestroy
	name := c.active.Name
	p := c.provider
	c.mu.Unlock()

	c.logger.Info("destroying session", zap.String("session", name))

	ch := p.DestroySession(ctx, name)
	go func() {
		comp, ok := <-ch
		if !ok {
			comp = DestroyCompletion{SessionName: name, Err: errCompletionDropped}
		}
		c.mu.Lock()
		c.pending = opNone
		// The local handle is released even when the backend reports failure;
		// keeping it would block every later host or join.
		c.active = nil
		c.mu.Unlock()

		ev := Event{Kind: EventDestroyComplete, SessionName: name}
		if comp.Err != nil {
			ev.Err = fmt.Errorf("%w: destroying session: %w", ErrBackendFailure, comp.Err)
		}
		c.logCompletion(ev)
		c.events <- ev
	}()
	return true, nil
}

// ResolveConnectAddress returns the address to connect to for a joined session.
//
// Precondition: A join for name completed successfully.
// Postcondition: Returns a non-empty address, or ErrNotJoined / a resolution error.
func (c *Client) ResolveConnectAddress(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.IsHost || c.active.Name != name {
		return "", ErrNotJoined
	}
	if c.active.ConnectAddress == "" {
		addr, ok := c.provider.ResolvedConnectAddress(name)
		if !ok || addr == "" {
			return "", fmt.Errorf("resolving connect address for %q: no address advertised", name)
		}
		c.active.ConnectAddress = addr
	}
	return c.active.ConnectAddress, nil
}

func (c *Client) checkExclusiveLocked() error {
	if c.provider == nil {
		return ErrNotInitialized
	}
	if c.pending != opNone {
		return ErrRequestPending
	}
	if c.active != nil {
		return ErrSessionActive
	}
	return nil
}

func (c *Client) forwardFailures(failures <-chan string) {
	for {
		select {
		case msg, ok := <-failures:
			if !ok {
				return
			}
			c.logger.Warn("transport failure", zap.String("message", msg))
			select {
			case c.events <- Event{Kind: EventTransportFailure, Message: msg}:
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) logCompletion(ev Event) {
	if ev.Succeeded() {
		c.logger.Info("session request complete",
			zap.Stringer("event", ev.Kind),
			zap.String("session", ev.SessionName),
		)
		return
	}
	fields := []zap.Field{
		zap.Stringer("event", ev.Kind),
		zap.String("session", ev.SessionName),
	}
	if ev.Kind == EventJoinComplete {
		fields = append(fields, zap.Stringer("result", ev.Result))
	} else {
		fields = append(fields, zap.Error(ev.Err))
	}
	c.logger.Warn("session request failed", fields...)
}
