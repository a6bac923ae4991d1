package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store provides persistence for scenario telemetry.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Repository registration + checkpoint.
	SeedRepositories(ctx context.Context, repos []config.RepositoryConfig) error
	ListRepositories(ctx context.Context) ([]Repository, error)
	GetRepository(ctx context.Context, repoID string) (*Repository, error)
	AdvanceCheckpoint(ctx context.Context, repoID string, runID int) error

	// Scenario results (append-only).
	InsertResults(ctx context.Context, results []ScenarioResult) (int, error)
	ListResults(ctx context.Context, repoID, branch string) ([]ScenarioResult, error)

	// Scenario configuration.
	UpsertScenarioConfig(ctx context.Context, cfg *ScenarioConfig) error
	ListScenarioConfigs(ctx context.Context, repoID string) ([]ScenarioConfig, error)

	// Growth trends.
	InsertTrend(ctx context.Context, trend *TestCaseTrend) error
	ListTrends(ctx context.Context, repoID, branch string) ([]TestCaseTrend, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Repository{},
		&ScenarioResult{},
		&ScenarioConfig{},
		&TestCaseTrend{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// --- Repository registration + checkpoint ---

// SeedRepositories upserts config-registered repositories. The checkpoint
// of an existing row is preserved; only the registration fields are
// refreshed from config.
func (s *store) SeedRepositories(
	ctx context.Context, repos []config.RepositoryConfig,
) error {
	for _, rc := range repos {
		repoID := config.NormalizeRepoID(rc.URL)

		var existing Repository

		result := s.db.WithContext(ctx).
			Where("repo_id = ?", repoID).
			First(&existing)

		if result.Error == nil {
			existing.URL = rc.URL
			existing.DefaultBranch = rc.DefaultBranch
			existing.LocalPath = rc.LocalPath
			existing.ProviderOrg = rc.ProviderOrg
			existing.ProviderProject = rc.ProviderProject
			existing.PipelineID = rc.PipelineID

			if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
				return fmt.Errorf("updating repository %q: %w", repoID, err)
			}

			continue
		}

		row := Repository{
			RepoID:          repoID,
			URL:             rc.URL,
			DefaultBranch:   rc.DefaultBranch,
			LocalPath:       rc.LocalPath,
			ProviderOrg:     rc.ProviderOrg,
			ProviderProject: rc.ProviderProject,
			PipelineID:      rc.PipelineID,
		}

		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("seeding repository %q: %w", repoID, err)
		}
	}

	s.log.WithField("count", len(repos)).
		Info("Seeded repositories from config")

	return nil
}

// ListRepositories returns all registered repositories.
func (s *store) ListRepositories(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Find(&repos).Error; err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}

	return repos, nil
}

// GetRepository returns the registration row for a normalized repo id.
func (s *store) GetRepository(
	ctx context.Context, repoID string,
) (*Repository, error) {
	var repo Repository
	if err := s.db.WithContext(ctx).
		Where("repo_id = ?", repoID).
		First(&repo).Error; err != nil {
		return nil, fmt.Errorf("getting repository %q: %w", repoID, err)
	}

	return &repo, nil
}

// AdvanceCheckpoint raises the repository checkpoint to runID. The guard
// in the WHERE clause makes the update monotonic: a stale or concurrent
// writer with a lower run id is a no-op rather than a regression.
func (s *store) AdvanceCheckpoint(
	ctx context.Context, repoID string, runID int,
) error {
	if err := s.db.WithContext(ctx).
		Model(&Repository{}).
		Where("repo_id = ? AND last_synced_run_id < ?", repoID, runID).
		Update("last_synced_run_id", runID).Error; err != nil {
		return fmt.Errorf("advancing checkpoint for %q: %w", repoID, err)
	}

	return nil
}

// --- Scenario results ---

// InsertResults appends scenario results one at a time, swallowing
// duplicate-key conflicts: the provider re-reports outcomes and the
// unique composite index makes the insert idempotent. Returns the number
// of rows actually written.
func (s *store) InsertResults(
	ctx context.Context, results []ScenarioResult,
) (int, error) {
	inserted := 0

	for i := range results {
		err := s.db.WithContext(ctx).Create(&results[i]).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}

			return inserted, fmt.Errorf("inserting scenario result: %w", err)
		}

		inserted++
	}

	return inserted, nil
}

// ListResults returns all results for a repository, optionally filtered
// by branch, newest first.
func (s *store) ListResults(
	ctx context.Context, repoID, branch string,
) ([]ScenarioResult, error) {
	q := s.db.WithContext(ctx).Where("repo_id = ?", repoID)
	if branch != "" {
		q = q.Where("branch = ?", branch)
	}

	var results []ScenarioResult
	if err := q.Order("timestamp DESC").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("listing scenario results: %w", err)
	}

	return results, nil
}

// --- Scenario configuration ---

// UpsertScenarioConfig inserts or updates an expected-duration threshold
// keyed by (repo, feature, scenario).
func (s *store) UpsertScenarioConfig(
	ctx context.Context, cfg *ScenarioConfig,
) error {
	result := s.db.WithContext(ctx).
		Where("repo_id = ? AND feature_file = ? AND scenario_name = ?",
			cfg.RepoID, cfg.FeatureFile, cfg.ScenarioName).
		Assign(ScenarioConfig{
			ExpectedDurationMillis: cfg.ExpectedDurationMillis,
		}).
		FirstOrCreate(cfg)
	if result.Error != nil {
		return fmt.Errorf("upserting scenario config: %w", result.Error)
	}

	return nil
}

// ListScenarioConfigs returns all thresholds for a repository.
func (s *store) ListScenarioConfigs(
	ctx context.Context, repoID string,
) ([]ScenarioConfig, error) {
	var configs []ScenarioConfig
	if err := s.db.WithContext(ctx).
		Where("repo_id = ?", repoID).
		Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("listing scenario configs: %w", err)
	}

	return configs, nil
}

// --- Growth trends ---

// InsertTrend appends a growth-trend snapshot.
func (s *store) InsertTrend(
	ctx context.Context, trend *TestCaseTrend,
) error {
	if trend.CapturedAt.IsZero() {
		trend.CapturedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(trend).Error; err != nil {
		return fmt.Errorf("inserting trend: %w", err)
	}

	return nil
}

// ListTrends returns trend points for a repository branch, oldest first.
func (s *store) ListTrends(
	ctx context.Context, repoID, branch string,
) ([]TestCaseTrend, error) {
	var trends []TestCaseTrend
	if err := s.db.WithContext(ctx).
		Where("repo_id = ? AND branch = ?", repoID, branch).
		Order("captured_at ASC").
		Find(&trends).Error; err != nil {
		return nil, fmt.Errorf("listing trends: %w", err)
	}

	return trends, nil
}
