package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCycleSkipsOverlappingRun(t *testing.T) {
	s := &Scheduler{}
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.runCycle(ctx, "test", &s.discoveryMu, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := s.runCycle(ctx, "test", &s.discoveryMu, func(context.Context) error {
		t.Error("overlapping cycle must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(release)
	require.NoError(t, <-done)

	// The guard is released once the first run finishes.
	ran := false
	require.NoError(t, s.runCycle(ctx, "test", &s.discoveryMu, func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestRunCyclePropagatesFailure(t *testing.T) {
	s := &Scheduler{}
	boom := errors.New("cycle blew up")

	err := s.runCycle(context.Background(), "test", &s.ingestMu, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunCyclesUseIndependentGuards(t *testing.T) {
	s := &Scheduler{}
	ctx := context.Background()

	s.discoveryMu.Lock()
	defer s.discoveryMu.Unlock()

	// A held discovery guard does not block the ingest cycle.
	ran := false
	require.NoError(t, s.runCycle(ctx, "ingest", &s.ingestMu, func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, Intervals{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
