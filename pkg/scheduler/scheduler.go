// Package scheduler runs the recurring telemetry sweep: every interval
// it syncs all registered repositories from the provider and records
// test-count growth snapshots.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/featurepulse/featurepulse/pkg/telemetry"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Scheduler is the background sweep service.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Scheduler = (*scheduler)(nil)

type scheduler struct {
	log         logrus.FieldLogger
	svc         telemetry.Service
	interval    time.Duration
	syncLimit   int
	concurrency int

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Scheduler over the telemetry service.
func New(
	log logrus.FieldLogger, cfg *config.Config, svc telemetry.Service,
) (Scheduler, error) {
	interval, err := cfg.SyncInterval()
	if err != nil {
		return nil, err
	}

	return &scheduler{
		log:         log.WithField("component", "scheduler"),
		svc:         svc,
		interval:    interval,
		syncLimit:   cfg.Scheduler.SyncLimit,
		concurrency: cfg.Scheduler.Concurrency,
		done:        make(chan struct{}),
	}, nil
}

// Start launches the sweep goroutine. The first sweep runs immediately.
func (s *scheduler) Start(ctx context.Context) error {
	s.log.WithField("interval", s.interval).Info("Scheduler started")

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the sweep goroutine to stop and waits for it.
func (s *scheduler) Stop() error {
	close(s.done)
	s.wg.Wait()

	s.log.Info("Scheduler stopped")

	return nil
}

// sweep syncs every registered repository with bounded parallelism. One
// repository's failure never blocks the others.
func (s *scheduler) sweep(ctx context.Context) {
	start := time.Now()

	repos, err := s.svc.Repositories(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to list repositories for sweep")

		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range repos {
		repo := repos[i]

		g.Go(func() error {
			s.syncOne(gctx, &repo)

			return nil
		})
	}

	//nolint:errcheck // workers report failures via logs only.
	_ = g.Wait()

	s.log.WithFields(logrus.Fields{
		"repositories": len(repos),
		"duration":     time.Since(start).Round(time.Millisecond),
	}).Info("Sweep completed")
}

func (s *scheduler) syncOne(ctx context.Context, repo *store.Repository) {
	inserted, err := s.svc.SyncRepository(ctx, repo.RepoID, s.syncLimit)
	if err != nil {
		s.log.WithError(err).WithField("repo", repo.RepoID).
			Warn("Repository sync failed")

		return
	}

	if inserted > 0 {
		s.log.WithFields(logrus.Fields{
			"repo":     repo.RepoID,
			"inserted": inserted,
		}).Info("Repository synced")
	}

	if err := s.svc.RecordTrendSnapshot(ctx, repo); err != nil {
		s.log.WithError(err).WithField("repo", repo.RepoID).
			Warn("Trend snapshot failed")
	}
}
