// Package main provides the session client: a terminal main menu that hosts,
// finds and joins sessions through the configured session provider.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/multiplay/internal/backend"
	"github.com/cory-johannsen/multiplay/internal/config"
	"github.com/cory-johannsen/multiplay/internal/directory"
	"github.com/cory-johannsen/multiplay/internal/frontend/console"
	"github.com/cory-johannsen/multiplay/internal/game/command"
	"github.com/cory-johannsen/multiplay/internal/game/modes"
	"github.com/cory-johannsen/multiplay/internal/game/session"
	"github.com/cory-johannsen/multiplay/internal/observability"
	"github.com/cory-johannsen/multiplay/internal/orchestrator"
	"github.com/cory-johannsen/multiplay/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "how long to wait for the active session to be destroyed on exit")
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

	catalog, err := modes.Load(cfg.Content.ModesFile)
	if err != nil {
		logger.Warn("using built-in game modes", zap.String("path", cfg.Content.ModesFile), zap.Error(err))
		catalog = modes.Builtin()
	}

	var provider session.Provider
	switch cfg.Session.Provider {
	case config.ProviderNull:
		registry := directory.NewRegistry(directory.NewMemoryStore(), observability.Component(logger, "registry"))
		provider = backend.NewLocal(registry, cfg.Session, observability.Component(logger, "provider"))
	case config.ProviderDirectory:
		remote, err := backend.DialRemote(cfg, observability.Component(logger, "provider"))
		if err != nil {
			logger.Fatal("connecting to session directory", zap.Error(err))
		}
		defer func() {
			if err := remote.Close(); err != nil {
				logger.Warn("closing directory connection", zap.Error(err))
			}
		}()
		provider = remote
	}

	client := session.NewClient(cfg.Session, observability.Component(logger, "session"))
	if err := client.Initialize(provider); err != nil {
		if errors.Is(err, session.ErrNoActiveProvider) {
			logger.Fatal("no session provider", zap.String("provider", cfg.Session.Provider))
		}
		logger.Fatal("initializing session client", zap.Error(err))
	}

	term := console.New(os.Stdout, catalog, cfg.Travel.MainMenuURL, observability.Component(logger, "console"))
	orch := orchestrator.New(cfg, client, term, term, catalog, observability.Component(logger, "orchestrator"))
	loop := console.NewLoop(term, orch, command.DefaultRegistry(), client.Completions(), logger)

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	lifecycle := server.NewLifecycle(logger)
	lifecycle.AddEssential("console", &server.FuncService{
		StartFn: func() error {
			defer close(loopDone)
			return loop.Run(loopCtx, os.Stdin)
		},
		StopFn: stopLoop,
	})

	logger.Info("session client initialized",
		zap.String("subsystem", provider.SubsystemName()),
		zap.Duration("startup", time.Since(start)),
	)

	runErr := lifecycle.Run(ctx)
	<-loopDone

	// The orchestrator is only touched again once the loop has returned.
	shutdownCtx, cancel := context.WithTimeout(ctx, *shutdownTimeout)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Warn("session not destroyed before exit", zap.Error(err))
	}
	if runErr != nil {
		logger.Error("client error", zap.Error(runErr))
	}
}
