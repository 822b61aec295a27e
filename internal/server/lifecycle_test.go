package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type blockingService struct {
	started atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	once    sync.Once
	order   *[]string
	mu      *sync.Mutex
	name    string
}

func newBlockingService(name string, order *[]string, mu *sync.Mutex) *blockingService {
	return &blockingService{stopCh: make(chan struct{}), order: order, mu: mu, name: name}
}

func (b *blockingService) Start() error {
	b.started.Store(true)
	<-b.stopCh
	return nil
}

func (b *blockingService) Stop() {
	b.once.Do(func() {
		b.stopped.Store(true)
		if b.order != nil {
			b.mu.Lock()
			*b.order = append(*b.order, b.name)
			b.mu.Unlock()
		}
		close(b.stopCh)
	})
}

func runAsync(lc *Lifecycle, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
		return nil
	}
}

func TestLifecycle_StopsInReverseOrderOnCancel(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	var (
		mu    sync.Mutex
		order []string
	)
	svc1 := newBlockingService("grpc", &order, &mu)
	svc2 := newBlockingService("health", &order, &mu)
	lc.Add("grpc", svc1)
	lc.Add("health", svc2)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(lc, ctx)

	require.Eventually(t, func() bool {
		return svc1.started.Load() && svc2.started.Load()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, waitDone(t, done))
	assert.True(t, svc1.stopped.Load())
	assert.True(t, svc2.stopped.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"health", "grpc"}, order)
}

func TestLifecycle_ServiceFailureIsReturned(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	other := newBlockingService("other", nil, nil)
	boom := errors.New("listen failed")
	lc.Add("other", other)
	lc.Add("grpc", &FuncService{
		StartFn: func() error { return boom },
		StopFn:  func() {},
	})

	err := waitDone(t, runAsync(lc, context.Background()))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "grpc")
	assert.True(t, other.stopped.Load())
}

func TestLifecycle_EssentialExitShutsDown(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	other := newBlockingService("directory", nil, nil)
	lc.Add("directory", other)
	lc.AddEssential("console", &FuncService{
		StartFn: func() error { return nil },
		StopFn:  func() {},
	})

	assert.NoError(t, waitDone(t, runAsync(lc, context.Background())))
	assert.True(t, other.stopped.Load())
}

func TestLifecycle_NonEssentialExitKeepsRunning(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	var exited atomic.Bool
	lc.Add("oneshot", &FuncService{
		StartFn: func() error { exited.Store(true); return nil },
		StopFn:  func() {},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(lc, ctx)
	require.Eventually(t, exited.Load, 2*time.Second, 10*time.Millisecond)

	select {
	case <-done:
		t.Fatal("lifecycle stopped after a non-essential service exited")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	assert.NoError(t, waitDone(t, done))
}

func TestContextService_StopCancels(t *testing.T) {
	svc := &ContextService{Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}}
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start() }()

	svc.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("context service did not return after Stop")
	}
}

func TestContextService_StopBeforeStart(t *testing.T) {
	svc := &ContextService{Fn: func(ctx context.Context) error { return ctx.Err() }}
	svc.Stop()
	assert.ErrorIs(t, svc.Start(), context.Canceled)
}

func TestTickService_TicksUntilStopped(t *testing.T) {
	var ticks atomic.Int32
	svc := &TickService{
		Interval: 5 * time.Millisecond,
		Fn:       func(context.Context) { ticks.Add(1) },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start() }()

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	svc.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tick service did not return after Stop")
	}
}

func TestFuncService(t *testing.T) {
	started := false
	stopped := false

	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() {
			stopped = true
		},
	}

	require.NoError(t, svc.Start())
	assert.True(t, started)

	svc.Stop()
	assert.True(t, stopped)
}
