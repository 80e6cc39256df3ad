// Package scheduler runs the catalog maintenance cycles on their
// intervals. Each cycle kind is guarded against overlapping runs: a tick
// that arrives while the previous run is still going is skipped, not
// queued.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vsonglab/vtuber-catalog/client"
	"github.com/vsonglab/vtuber-catalog/discovery"
	"github.com/vsonglab/vtuber-catalog/ingest"
	"github.com/vsonglab/vtuber-catalog/reconcile"
)

// ErrCycleInProgress is returned when a cycle is triggered while the
// previous run of the same cycle has not finished.
var ErrCycleInProgress = errors.New("cycle already in progress")

// Intervals configures the ticker period per cycle. A zero interval
// disables that cycle's loop.
type Intervals struct {
	Discovery time.Duration
	Ingest    time.Duration
	Reconcile time.Duration
	Views     time.Duration
	Promote   time.Duration
}

// Scheduler owns the periodic execution of all maintenance cycles.
type Scheduler struct {
	pool       *client.Pool
	discovery  *discovery.Orchestrator
	ingestor   *ingest.Ingestor
	reconciler *reconcile.Reconciler
	views      *reconcile.ViewTracker
	intervals  Intervals

	discoveryMu sync.Mutex
	ingestMu    sync.Mutex
	reconcileMu sync.Mutex
	viewsMu     sync.Mutex
	promoteMu   sync.Mutex
}

// New wires a scheduler over the maintenance components. pool may be nil
// when the caller manages credential resets itself.
func New(pool *client.Pool, d *discovery.Orchestrator, i *ingest.Ingestor, r *reconcile.Reconciler, v *reconcile.ViewTracker, intervals Intervals) *Scheduler {
	return &Scheduler{
		pool:       pool,
		discovery:  d,
		ingestor:   i,
		reconciler: r,
		views:      v,
		intervals:  intervals,
	}
}

// RunDiscovery executes one discovery cycle.
func (s *Scheduler) RunDiscovery(ctx context.Context) error {
	return s.runCycle(ctx, "discovery", &s.discoveryMu, func(ctx context.Context) error {
		_, err := s.discovery.Run(ctx)
		return err
	})
}

// RunIngestion walks new channels, then sweeps existing ones.
func (s *Scheduler) RunIngestion(ctx context.Context) error {
	return s.runCycle(ctx, "ingest", &s.ingestMu, func(ctx context.Context) error {
		if _, err := s.ingestor.RunNewChannels(ctx); err != nil {
			return err
		}
		_, err := s.ingestor.RunExistingChannels(ctx)
		return err
	})
}

// RunReconciliation executes one channel reconciliation pass.
func (s *Scheduler) RunReconciliation(ctx context.Context) error {
	return s.runCycle(ctx, "reconcile", &s.reconcileMu, func(ctx context.Context) error {
		_, err := s.reconciler.Run(ctx)
		return err
	})
}

// RunViewCountUpdate executes one view-count pass.
func (s *Scheduler) RunViewCountUpdate(ctx context.Context) error {
	return s.runCycle(ctx, "views", &s.viewsMu, func(ctx context.Context) error {
		_, err := s.views.RunViewCounts(ctx)
		return err
	})
}

// RunStatusPromotion flips surviving new songs to existing.
func (s *Scheduler) RunStatusPromotion(ctx context.Context) error {
	return s.runCycle(ctx, "promote", &s.promoteMu, func(ctx context.Context) error {
		_, err := s.views.RunStatusPromotion(ctx)
		return err
	})
}

// runCycle serializes runs of one cycle kind, resets the credential ring
// and tags all cycle logging with a run ID.
func (s *Scheduler) runCycle(ctx context.Context, name string, mu *sync.Mutex, fn func(context.Context) error) error {
	if !mu.TryLock() {
		log.Warn().Str("cycle", name).Msg("Previous cycle still running, skipping")
		return ErrCycleInProgress
	}
	defer mu.Unlock()

	runID := uuid.NewString()
	logger := log.With().Str("cycle", name).Str("run_id", runID).Logger()

	if s.pool != nil {
		s.pool.Reset()
	}

	start := time.Now()
	logger.Info().Msg("Cycle started")
	if err := fn(ctx); err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Cycle failed")
		return err
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("Cycle finished")
	return nil
}

// Start launches a ticker loop per enabled cycle and blocks until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	loops := []struct {
		name     string
		interval time.Duration
		run      func(context.Context) error
	}{
		{"discovery", s.intervals.Discovery, s.RunDiscovery},
		{"ingest", s.intervals.Ingest, s.RunIngestion},
		{"reconcile", s.intervals.Reconcile, s.RunReconciliation},
		{"views", s.intervals.Views, s.RunViewCountUpdate},
		{"promote", s.intervals.Promote, s.RunStatusPromotion},
	}

	enabled := 0
	for _, loop := range loops {
		if loop.interval <= 0 {
			continue
		}
		enabled++
		g.Go(func() error {
			ticker := time.NewTicker(loop.interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := loop.run(gctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
						log.Error().Err(err).Str("cycle", loop.name).Msg("Scheduled cycle failed, will retry next tick")
					}
				}
			}
		})
	}

	if enabled == 0 {
		log.Warn().Msg("No cycles enabled, waiting for shutdown")
		<-ctx.Done()
		return nil
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
