// Package server runs the long-lived parts of a binary, the directory's gRPC
// listener or the client's orchestrator loop, under one start/stop lifecycle
// with signal handling.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component.
type Service interface {
	// Start runs the service and blocks until it stops or fails.
	Start() error
	// Stop asks a running service to return from Start.
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

// ContextService runs Fn with a context that Stop cancels.
//
// Precondition: Fn must return once its context is done.
type ContextService struct {
	Fn func(ctx context.Context) error

	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *ContextService) init() {
	c.once.Do(func() {
		c.ctx, c.cancel = context.WithCancel(context.Background())
	})
}

// Start runs Fn until Stop is called.
func (c *ContextService) Start() error {
	c.init()
	return c.Fn(c.ctx)
}

// Stop cancels Fn's context.
func (c *ContextService) Stop() {
	c.init()
	c.cancel()
}

// TickService calls Fn every Interval until stopped.
//
// Precondition: Interval > 0.
type TickService struct {
	Interval time.Duration
	Fn       func(ctx context.Context)

	ContextService
}

// Start ticks until Stop is called.
func (s *TickService) Start() error {
	s.ContextService.Fn = func(ctx context.Context) error {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.Fn(ctx)
			}
		}
	}
	return s.ContextService.Start()
}

// Lifecycle starts services in order and stops them in reverse order.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name      string
	service   Service
	essential bool
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger: logger,
	}
}

// Add registers a service. Services start in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.add(namedService{name: name, service: svc})
}

// AddEssential registers a service whose return, with or without an error,
// shuts the whole lifecycle down.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) AddEssential(name string, svc Service) {
	l.add(namedService{name: name, service: svc, essential: true})
}

func (l *Lifecycle) add(ns namedService) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, ns)
}

// Run starts every service and blocks until SIGINT/SIGTERM, ctx
// cancellation, a service failure, or an essential service returning.
// Services are then stopped in reverse order.
//
// Postcondition: All services are stopped. Returns the first service
// failure, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := make([]namedService, len(l.services))
	copy(services, l.services)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	doneCh := make(chan string, len(services))
	for _, ns := range services {
		ns := ns
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			err := ns.service.Start()
			if err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
				return
			}
			l.logger.Info("service exited", zap.String("service", ns.name), zap.Duration("uptime", time.Since(svcStart)))
			if ns.essential {
				doneCh <- ns.name
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case name := <-doneCh:
		l.logger.Info("essential service exited, shutting down", zap.String("service", name))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services)

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
