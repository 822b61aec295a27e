package testutil

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cory-johannsen/multiplay/internal/directory"
	"github.com/cory-johannsen/multiplay/internal/directory/directoryv1"
)

const bufSize = 1 << 20

// DirectoryServer is an in-process directory gRPC server on a bufconn listener.
type DirectoryServer struct {
	Registry *directory.Registry
	Server   *grpc.Server
	listener *bufconn.Listener
}

// NewDirectoryServer serves registry over an in-memory listener until the
// test ends.
//
// Precondition: registry and logger must be non-nil.
// Postcondition: Returns a serving DirectoryServer; Dial connects to it.
func NewDirectoryServer(t *testing.T, registry *directory.Registry, logger *zap.Logger) *DirectoryServer {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	directoryv1.RegisterDirectoryServer(srv, directoryv1.NewServer(registry, logger))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)
	return &DirectoryServer{Registry: registry, Server: srv, listener: lis}
}

// Dial opens a client connection to the server.
//
// Postcondition: Returns a connection closed when the test ends, or fails the test.
func (d *DirectoryServer) Dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return d.listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dialing directory: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
