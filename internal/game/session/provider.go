package session

import "context"

// CreateCompletion reports the outcome of a create request.
type CreateCompletion struct {
	SessionName string
	// Handle is the provider's id for the created session.
	Handle string
	// Err is nil on success.
	Err error
}

// FindCompletion reports the outcome of a find request.
type FindCompletion struct {
	Results []SearchResult
	// Err is nil on success.
	Err error
}

// JoinCompletion reports the outcome of a join request.
type JoinCompletion struct {
	SessionName string
	Handle      string
	Result      JoinResult
}

// DestroyCompletion reports the outcome of a destroy request.
type DestroyCompletion struct {
	SessionName string
	// Err is nil on success.
	Err error
}

// Provider is the backend session service. Every request returns a channel
// that receives exactly one completion and is then closed. Providers perform
// their I/O on their own goroutines; ctx bounds that I/O.
type Provider interface {
	// SubsystemName names the backend. "NULL" denotes the LAN subsystem.
	SubsystemName() string
	// CreateSession creates and advertises a session under name.
	CreateSession(ctx context.Context, name string, cfg SessionConfig, settings map[string]string) <-chan CreateCompletion
	// FindSessions searches for advertised sessions.
	FindSessions(ctx context.Context, q Query) <-chan FindCompletion
	// JoinSession joins the session described by r under the local name.
	JoinSession(ctx context.Context, name string, r SearchResult) <-chan JoinCompletion
	// DestroySession leaves or delists the session filed under name.
	DestroySession(ctx context.Context, name string) <-chan DestroyCompletion
	// ResolvedConnectAddress returns the address to travel to after a successful join.
	ResolvedConnectAddress(name string) (string, bool)
	// Failures delivers network-level failure messages. A nil channel means none are reported.
	Failures() <-chan string
}

// LANSubsystem is the subsystem name of the in-process LAN provider.
const LANSubsystem = "NULL"
