// Package main provides the session directory binary: a gRPC service that
// lists, joins and destroys hosted sessions for remote session clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/multiplay/internal/config"
	"github.com/cory-johannsen/multiplay/internal/directory"
	"github.com/cory-johannsen/multiplay/internal/directory/directoryv1"
	"github.com/cory-johannsen/multiplay/internal/observability"
	"github.com/cory-johannsen/multiplay/internal/server"
	"github.com/cory-johannsen/multiplay/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthInterval := flag.Duration("health-interval", 30*time.Second, "database health check interval")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting session directory",
		zap.String("grpc_addr", cfg.Directory.Addr()),
		zap.String("store", cfg.Directory.Store),
	)

	lifecycle := server.NewLifecycle(logger)

	var store directory.Store
	switch cfg.Directory.Store {
	case config.StorePostgres:
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewListingRepository(pool.DB())

		health := &server.TickService{
			Interval: *healthInterval,
			Fn: func(ctx context.Context) {
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			},
		}
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: health.Start,
			StopFn: func() {
				health.Stop()
				pool.Close()
			},
		})
	default:
		store = directory.NewMemoryStore()
	}

	registry := directory.NewRegistry(store, observability.Component(logger, "registry"))

	grpcServer := grpc.NewServer()
	directoryv1.RegisterDirectoryServer(grpcServer, directoryv1.NewServer(registry, observability.Component(logger, "directory")))

	// Registered last so it is stopped first, before the store closes.
	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.Directory.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Directory.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			grpcServer.GracefulStop()
		},
	})

	logger.Info("session directory initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
