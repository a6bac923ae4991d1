// Package telemetry is the orchestration facade over ingestion, the
// feature inventory and the metric calculators. Expensive read paths
// are served through a bounded TTL cache keyed by repository and
// branch.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/featurepulse/featurepulse/pkg/gherkin"
	"github.com/featurepulse/featurepulse/pkg/telemetry/ingest"
	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
	"github.com/featurepulse/featurepulse/pkg/workspace"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// Service exposes the telemetry operations consumed by the HTTP API and
// the scheduler.
type Service interface {
	Start(ctx context.Context) error
	Stop() error

	Repositories(ctx context.Context) ([]store.Repository, error)
	SyncRepository(ctx context.Context, repoID string, limit int) (int, error)

	StabilityStats(ctx context.Context, repoID, branch string) (*metrics.StabilityStats, error)
	PaginatedStability(
		ctx context.Context,
		repoID, branch, search string,
		page, size int,
		flakyOnly bool,
	) (*metrics.PagedStability, error)
	AdvancedAnalytics(ctx context.Context, repoID, branch string) (*AdvancedAnalytics, error)
	TestStats(ctx context.Context, repoID, branch string) (*TestStats, error)

	Trends(ctx context.Context, repoID, branch string) ([]store.TestCaseTrend, error)
	RecordTrendSnapshot(ctx context.Context, repo *store.Repository) error

	UpsertScenarioConfig(ctx context.Context, cfg *store.ScenarioConfig) error
}

// Compile-time interface check.
var _ Service = (*service)(nil)

type service struct {
	log       logrus.FieldLogger
	cfg       *config.Config
	store     store.Store
	ingester  ingest.Ingester
	extractor gherkin.Extractor
	ws        workspace.Workspace
	cache     *lru.LRU[string, any]
}

// NewService creates the telemetry facade.
func NewService(
	log logrus.FieldLogger,
	cfg *config.Config,
	st store.Store,
	ing ingest.Ingester,
	ext gherkin.Extractor,
	ws workspace.Workspace,
) (Service, error) {
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}

	return &service{
		log:       log.WithField("component", "telemetry"),
		cfg:       cfg,
		store:     st,
		ingester:  ing,
		extractor: ext,
		ws:        ws,
		cache:     lru.NewLRU[string, any](cfg.Cache.MaxEntries, nil, ttl),
	}, nil
}

// Start connects the store and registers configured repositories.
func (s *service) Start(ctx context.Context) error {
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	if err := s.store.SeedRepositories(ctx, s.cfg.Repositories); err != nil {
		return fmt.Errorf("seeding repositories: %w", err)
	}

	return nil
}

// Stop closes the store.
func (s *service) Stop() error {
	return s.store.Stop()
}

// Repositories lists registered repositories.
func (s *service) Repositories(ctx context.Context) ([]store.Repository, error) {
	return s.store.ListRepositories(ctx)
}

// SyncRepository ingests new completed runs for one repository and
// invalidates its cached read models.
func (s *service) SyncRepository(
	ctx context.Context, repoID string, limit int,
) (int, error) {
	repo, err := s.store.GetRepository(ctx, config.NormalizeRepoID(repoID))
	if err != nil {
		return 0, err
	}

	inserted, err := s.ingester.SyncRepository(ctx, repo, config.ClampSyncLimit(limit))
	if err != nil {
		return inserted, err
	}

	if inserted > 0 {
		s.cache.Purge()
	}

	return inserted, nil
}

// StabilityStats computes the stability rollup for a repository branch.
// Branch "" spans all branches.
func (s *service) StabilityStats(
	ctx context.Context, repoID, branch string,
) (*metrics.StabilityStats, error) {
	results, err := s.results(ctx, repoID, branch)
	if err != nil {
		return nil, err
	}

	return metrics.Stability(results, branch), nil
}

// PaginatedStability computes the filtered scenario listing.
func (s *service) PaginatedStability(
	ctx context.Context,
	repoID, branch, search string,
	page, size int,
	flakyOnly bool,
) (*metrics.PagedStability, error) {
	results, err := s.results(ctx, repoID, branch)
	if err != nil {
		return nil, err
	}

	return metrics.PaginatedStability(results, page, size, search, flakyOnly), nil
}

// AdvancedAnalytics computes the full derived-signal bundle. Results are
// cached per (repository, branch).
func (s *service) AdvancedAnalytics(
	ctx context.Context, repoID, branch string,
) (*AdvancedAnalytics, error) {
	key := cacheKey("analytics", repoID, branch)
	if cached, ok := s.cache.Get(key); ok {
		if analytics, ok := cached.(*AdvancedAnalytics); ok {
			return analytics, nil
		}
	}

	repo, err := s.store.GetRepository(ctx, config.NormalizeRepoID(repoID))
	if err != nil {
		return nil, err
	}

	results, err := s.store.ListResults(ctx, repo.RepoID, branch)
	if err != nil {
		return nil, err
	}

	configs, err := s.store.ListScenarioConfigs(ctx, repo.RepoID)
	if err != nil {
		return nil, err
	}

	analytics := &AdvancedAnalytics{
		FragileScenarios:  metrics.Fragility(results),
		Drift:             metrics.Drift(results),
		Hotspots:          metrics.Hotspots(results, configs),
		Anomalies:         metrics.Anomalies(results),
		SignificantShifts: metrics.SignificantShifts(results),
		RiskPredictions:   metrics.Risk(results),
		RecentRuns:        metrics.RecentRuns(results),
		StepPareto:        []metrics.ParetoStep{},
	}

	// Step usage comes from the committed feature inventory, not from
	// telemetry. An unreadable checkout degrades to empty step signals
	// rather than failing the whole bundle.
	inv, invErr := s.inventory(ctx, repo, branch)
	if invErr != nil {
		s.log.WithError(invErr).WithField("repo", repo.RepoID).
			Warn("Feature inventory unavailable for analytics")
	} else {
		analytics.StepPareto = metrics.Pareto(inv.StepCounts)
		analytics.StepReuseROI = round1(inv.ReuseROI())
	}

	s.cache.Add(key, analytics)

	return analytics, nil
}

// TestStats computes the quality scorecard. Results are cached per
// (repository, branch).
func (s *service) TestStats(
	ctx context.Context, repoID, branch string,
) (*TestStats, error) {
	key := cacheKey("stats", repoID, branch)
	if cached, ok := s.cache.Get(key); ok {
		if stats, ok := cached.(*TestStats); ok {
			return stats, nil
		}
	}

	repo, err := s.store.GetRepository(ctx, config.NormalizeRepoID(repoID))
	if err != nil {
		return nil, err
	}

	stats, err := s.computeTestStats(ctx, repo, branch)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, stats)

	return stats, nil
}

func (s *service) computeTestStats(
	ctx context.Context, repo *store.Repository, branch string,
) (*TestStats, error) {
	inv, err := s.inventory(ctx, repo, branch)
	if err != nil {
		return nil, err
	}

	results, err := s.store.ListResults(ctx, repo.RepoID, branch)
	if err != nil {
		return nil, err
	}

	var latest *metrics.RunSummary

	if runs := metrics.RecentRuns(results); len(runs) > 0 {
		latest = &runs[0]
	}

	historical := 0.0
	if history := metrics.ExecutionHistory(results); len(history) > 0 {
		sum := 0.0
		for _, b := range history {
			sum += b.PassRate
		}

		historical = round1(sum / float64(len(history)))
	}

	return buildTestStats(inv, latest, historical), nil
}

// Trends returns the growth-trend series, recording a first snapshot on
// demand when the series is empty so first-time views are not blank.
func (s *service) Trends(
	ctx context.Context, repoID, branch string,
) ([]store.TestCaseTrend, error) {
	repo, err := s.store.GetRepository(ctx, config.NormalizeRepoID(repoID))
	if err != nil {
		return nil, err
	}

	trends, err := s.store.ListTrends(ctx, repo.RepoID, branch)
	if err != nil {
		return nil, err
	}

	if len(trends) == 0 {
		if err := s.RecordTrendSnapshot(ctx, repo); err != nil {
			s.log.WithError(err).WithField("repo", repo.RepoID).
				Warn("Failed to record first trend snapshot")

			return trends, nil
		}

		return s.store.ListTrends(ctx, repo.RepoID, branch)
	}

	return trends, nil
}

// RecordTrendSnapshot captures the current test count of a repository's
// effective branch. Empty suites are skipped, not recorded as zero.
func (s *service) RecordTrendSnapshot(
	ctx context.Context, repo *store.Repository,
) error {
	path := s.ws.CheckoutPath(repo.RepoID, repo.LocalPath)

	branch, err := s.ws.ResolveBranch(path, repo.DefaultBranch)
	if err != nil {
		return fmt.Errorf("resolving branch: %w", err)
	}

	inv, err := s.extractor.Inventory(ctx, path, branch)
	if err != nil {
		return fmt.Errorf("scanning features: %w", err)
	}

	if inv.TestInstances == 0 {
		s.log.WithField("repo", repo.RepoID).
			Debug("No tests found, skipping trend snapshot")

		return nil
	}

	return s.store.InsertTrend(ctx, &store.TestCaseTrend{
		RepoID:     repo.RepoID,
		Branch:     branch,
		TestCount:  inv.TestInstances,
		CapturedAt: time.Now().UTC(),
	})
}

// UpsertScenarioConfig stores an expected-duration threshold and
// invalidates cached analytics.
func (s *service) UpsertScenarioConfig(
	ctx context.Context, cfg *store.ScenarioConfig,
) error {
	cfg.RepoID = config.NormalizeRepoID(cfg.RepoID)

	if err := s.store.UpsertScenarioConfig(ctx, cfg); err != nil {
		return err
	}

	s.cache.Purge()

	return nil
}

func (s *service) results(
	ctx context.Context, repoID, branch string,
) ([]store.ScenarioResult, error) {
	return s.store.ListResults(ctx, config.NormalizeRepoID(repoID), branch)
}

func (s *service) inventory(
	ctx context.Context, repo *store.Repository, branch string,
) (*gherkin.Inventory, error) {
	path := s.ws.CheckoutPath(repo.RepoID, repo.LocalPath)

	effective := branch
	if effective == "" {
		effective = repo.DefaultBranch
	}

	return s.extractor.Inventory(ctx, path, effective)
}

func cacheKey(kind, repoID, branch string) string {
	return kind + "|" + config.NormalizeRepoID(repoID) + "|" + branch
}
