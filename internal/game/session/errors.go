package session

import (
	"errors"
	"fmt"
)

// ErrRequestRejected is the root of every precondition failure. Rejected
// requests are returned to the caller synchronously and never reach the
// provider.
var ErrRequestRejected = errors.New("request rejected")

var (
	// ErrInvalidIndex is returned when a join index is outside the last search results.
	ErrInvalidIndex = fmt.Errorf("%w: server index out of range", ErrRequestRejected)
	// ErrSessionActive is returned when hosting or joining while a session exists.
	ErrSessionActive = fmt.Errorf("%w: a session is already active", ErrRequestRejected)
	// ErrRequestPending is returned while a host, join, or destroy awaits its completion.
	ErrRequestPending = fmt.Errorf("%w: another session request is pending", ErrRequestRejected)
	// ErrSearchInFlight is returned when a search is requested before the previous one completed.
	ErrSearchInFlight = fmt.Errorf("%w: a search is already in flight", ErrRequestRejected)
	// ErrNotInitialized is returned when a request is made before Initialize.
	ErrNotInitialized = fmt.Errorf("%w: session client not initialized", ErrRequestRejected)
)

// ErrBackendFailure wraps a failure reported by a provider completion.
var ErrBackendFailure = errors.New("backend failure")

// ErrNoActiveProvider is returned by Initialize when no provider is available.
// The process cannot proceed without one.
var ErrNoActiveProvider = errors.New("no active session provider")

// ErrAlreadyInitialized is returned by a second call to Initialize.
var ErrAlreadyInitialized = errors.New("session client already initialized")

// ErrNotJoined is returned by ResolveConnectAddress before a successful join.
var ErrNotJoined = errors.New("session not joined")
