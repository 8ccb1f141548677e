package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
	"github.com/rovshanmuradov/aave-liquidator/internal/events"
)

// scriptedSource returns errs[i] for the i-th call, then succeeds.
type scriptedSource struct {
	mu    sync.Mutex
	errs  []error
	calls int
	ch    chan int
}

func newScriptedSource(errs ...error) *scriptedSource {
	return &scriptedSource{errs: errs, ch: make(chan int, 32)}
}

func (s *scriptedSource) GetCandidates(context.Context) ([]domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ch <- s.calls
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return nil, nil
}

func (s *scriptedSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func waitCall(t *testing.T, s *scriptedSource, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-s.ch:
			if n >= want {
				return
			}
		case <-deadline:
			t.Fatalf("expected call %d, got %d", want, s.count())
		}
	}
}

func newTestWatcher(t *testing.T, source CandidateSource, bus *events.Bus, retries int) *Watcher {
	w := NewWatcher(source, bus, retries, zaptest.NewLogger(t))
	w.retryInterval = 5 * time.Millisecond
	return w
}

func newTestBus(t *testing.T) *events.Bus {
	bus := events.NewBus(zaptest.NewLogger(t), 16)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })
	return bus
}

func TestWatcherRetriesInitialStart(t *testing.T) {
	source := newScriptedSource(errors.New("feed down"), errors.New("feed down"))
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWatcher(t, source, bus, 3).Run(ctx) }()

	waitCall(t, source, 3)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 3, source.count())
}

func TestWatcherGivesUp(t *testing.T) {
	boom := errors.New("feed down")
	source := newScriptedSource(boom, boom, boom, boom)
	bus := newTestBus(t)

	err := newTestWatcher(t, source, bus, 1).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, source.count())
}

func TestWatcherRestartsAfterFailedFollowUp(t *testing.T) {
	source := newScriptedSource()
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWatcher(t, source, bus, 2).Run(ctx) }()
	waitCall(t, source, 1)

	// a failed direct get is the caller's business, not a broken chain
	require.NoError(t, bus.Publish(events.NewErrorEvent("c1", events.TriggerGet, errors.New("x"))))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, source.count())

	require.NoError(t, bus.Publish(events.NewErrorEvent("c2", events.TriggerFollowUp, errors.New("x"))))
	waitCall(t, source, 2)

	cancel()
	require.NoError(t, <-done)
}
