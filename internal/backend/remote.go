package backend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/multiplay/internal/config"
	"github.com/cory-johannsen/multiplay/internal/directory/directoryv1"
)

// RemoteSubsystem is the subsystem name reported by Remote.
const RemoteSubsystem = "DIRECTORY"

// ConnectionLostMessage is reported when the directory connection drops.
const ConnectionLostMessage = "Error: Connection Lost"

// Remote is the provider backed by a directory server over gRPC. It watches
// the connection and reports a transport failure whenever a ready
// connection is lost.
type Remote struct {
	*directoryProvider
	conn     *grpc.ClientConn
	failures chan string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	ready    atomic.Bool
}

// DialRemote connects to the directory at cfg.Directory.Addr().
//
// Postcondition: Returns a Remote whose connection is established lazily, or
// a non-nil error when the target is invalid.
func DialRemote(cfg config.Config, logger *zap.Logger) (*Remote, error) {
	conn, err := grpc.NewClient(cfg.Directory.Addr(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		// A ready connection only goes idle when it is lost.
		grpc.WithIdleTimeout(0),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing directory at %s: %w", cfg.Directory.Addr(), err)
	}
	return NewRemote(conn, cfg, logger), nil
}

// NewRemote creates a Remote over conn and starts watching it.
//
// Precondition: conn and logger must be non-nil.
// Postcondition: Close must be called to stop the watcher and close conn.
func NewRemote(conn *grpc.ClientConn, cfg config.Config, logger *zap.Logger) *Remote {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Remote{
		directoryProvider: newDirectoryProvider(directoryv1.NewClient(conn), RemoteSubsystem, cfg.Session, cfg.Directory.RequestTimeout, logger),
		conn:              conn,
		failures:          make(chan string, 1),
		cancel:            cancel,
	}
	r.wg.Add(1)
	go r.watch(ctx)
	return r
}

// Failures implements session.Provider.
func (r *Remote) Failures() <-chan string { return r.failures }

// Connected reports whether the watcher last saw the connection ready.
func (r *Remote) Connected() bool { return r.ready.Load() }

// Close stops the watcher and closes the connection.
func (r *Remote) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.conn.Close()
}

func (r *Remote) watch(ctx context.Context) {
	defer r.wg.Done()
	r.conn.Connect()
	wasReady := false
	for {
		state := r.conn.GetState()
		switch state {
		case connectivity.Ready:
			if !wasReady {
				r.logger.Info("directory connected", zap.String("target", r.conn.Target()))
			}
			wasReady = true
			r.ready.Store(true)
		case connectivity.Idle, connectivity.TransientFailure:
			if wasReady {
				wasReady = false
				r.ready.Store(false)
				r.logger.Warn("directory connection lost", zap.Stringer("state", state))
				select {
				case r.failures <- ConnectionLostMessage:
				default:
				}
				r.conn.Connect()
			}
		case connectivity.Shutdown:
			return
		}
		if !r.conn.WaitForStateChange(ctx, state) {
			return
		}
	}
}
