package backend

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/multiplay/internal/config"
	"github.com/cory-johannsen/multiplay/internal/directory"
	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// registryDirectory adapts an in-process Registry to Directory.
type registryDirectory struct {
	registry *directory.Registry
}

func (d registryDirectory) CreateSession(ctx context.Context, a directory.Advert) (directory.Listing, string, error) {
	return d.registry.Create(ctx, a)
}

func (d registryDirectory) FindSessions(ctx context.Context, q directory.Query) ([]directory.Listing, error) {
	return d.registry.Find(ctx, q)
}

func (d registryDirectory) JoinSession(ctx context.Context, sessionID, playerName string) (directory.Listing, error) {
	return d.registry.Join(ctx, sessionID, playerName)
}

func (d registryDirectory) LeaveSession(ctx context.Context, sessionID string) error {
	return d.registry.Leave(ctx, sessionID)
}

func (d registryDirectory) DestroySession(ctx context.Context, sessionID, token string) error {
	return d.registry.Destroy(ctx, sessionID, token)
}

// Local is the LAN provider. It reports the NULL subsystem, so hosted
// sessions are local-only and searches look for LAN listings.
type Local struct {
	*directoryProvider
}

// NewLocal creates a Local provider over registry.
//
// Precondition: registry and logger must be non-nil.
func NewLocal(registry *directory.Registry, cfg config.SessionConfig, logger *zap.Logger) *Local {
	return &Local{
		directoryProvider: newDirectoryProvider(registryDirectory{registry: registry}, session.LANSubsystem, cfg, 0, logger),
	}
}

// Failures implements session.Provider. An in-process directory never drops.
func (l *Local) Failures() <-chan string { return nil }
