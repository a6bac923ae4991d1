package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultListen is the default HTTP listen address.
	DefaultListen = ":8080"

	// DefaultSQLitePath is the default database location.
	DefaultSQLitePath = "./featurepulse.db"

	// DefaultSyncInterval is the default scheduler sweep interval.
	DefaultSyncInterval = 15 * time.Minute

	// DefaultSyncLimit is the default number of recent runs fetched per
	// repository in one ingestion pass.
	DefaultSyncLimit = 20

	// MaxSyncLimit caps the per-repository run fetch size.
	MaxSyncLimit = 100

	// DefaultSweepConcurrency bounds how many repositories are synced
	// in parallel during a scheduler sweep.
	DefaultSweepConcurrency = 4

	// DefaultCacheTTL is how long expensive stats results are served
	// from cache before being recomputed.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultCacheMaxEntries bounds the stats cache size.
	DefaultCacheMaxEntries = 100

	// DefaultProviderAPIVersion is the pipeline provider REST API version.
	DefaultProviderAPIVersion = "7.1-preview.1"

	// DefaultProviderRequestsPerMinute rate-limits outbound provider calls.
	DefaultProviderRequestsPerMinute = 120
)

// Config is the root configuration for featurepulse.
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Provider     ProviderConfig     `yaml:"provider"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Cache        CacheConfig        `yaml:"cache"`
	Workspace    WorkspaceConfig    `yaml:"workspace"`
	Repositories []RepositoryConfig `yaml:"repositories"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen      string   `yaml:"listen"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
}

// ProviderConfig contains pipeline provider API settings.
type ProviderConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIVersion        string `yaml:"api_version,omitempty"`
	AccessToken       string `yaml:"access_token,omitempty"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty"`
}

// SchedulerConfig contains background sweep settings.
type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Interval    string `yaml:"interval,omitempty"`
	SyncLimit   int    `yaml:"sync_limit,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// CacheConfig contains stats cache settings.
type CacheConfig struct {
	TTL        string `yaml:"ttl,omitempty"`
	MaxEntries int    `yaml:"max_entries,omitempty"`
}

// WorkspaceConfig contains local checkout settings.
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// RepositoryConfig registers one repository for telemetry ingestion.
type RepositoryConfig struct {
	URL             string `yaml:"url"`
	DefaultBranch   string `yaml:"default_branch,omitempty"`
	LocalPath       string `yaml:"local_path,omitempty"`
	ProviderOrg     string `yaml:"provider_org"`
	ProviderProject string `yaml:"provider_project"`
	PipelineID      string `yaml:"pipeline_id"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.Provider.APIVersion == "" {
		c.Provider.APIVersion = DefaultProviderAPIVersion
	}

	if c.Provider.RequestsPerMinute <= 0 {
		c.Provider.RequestsPerMinute = DefaultProviderRequestsPerMinute
	}

	if c.Scheduler.SyncLimit <= 0 {
		c.Scheduler.SyncLimit = DefaultSyncLimit
	}

	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = DefaultSweepConcurrency
	}

	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultCacheMaxEntries
	}

	for i := range c.Repositories {
		if c.Repositories[i].DefaultBranch == "" {
			c.Repositories[i].DefaultBranch = "main"
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	seen := make(map[string]struct{}, len(c.Repositories))

	for i, repo := range c.Repositories {
		if repo.URL == "" {
			return fmt.Errorf("repository %d: url is required", i)
		}

		id := NormalizeRepoID(repo.URL)
		if _, exists := seen[id]; exists {
			return fmt.Errorf("repository %d: duplicate url %q", i, repo.URL)
		}

		seen[id] = struct{}{}

		if repo.ProviderOrg == "" || repo.ProviderProject == "" ||
			repo.PipelineID == "" {
			return fmt.Errorf(
				"repository %q: provider_org, provider_project and pipeline_id are required",
				repo.URL,
			)
		}
	}

	if _, err := c.SyncInterval(); err != nil {
		return err
	}

	if _, err := c.CacheTTL(); err != nil {
		return err
	}

	return nil
}

// SyncInterval returns the parsed scheduler interval with default.
func (c *Config) SyncInterval() (time.Duration, error) {
	if c.Scheduler.Interval == "" {
		return DefaultSyncInterval, nil
	}

	d, err := time.ParseDuration(c.Scheduler.Interval)
	if err != nil {
		return 0, fmt.Errorf("parsing scheduler interval: %w", err)
	}

	return d, nil
}

// CacheTTL returns the parsed stats cache TTL with default.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return DefaultCacheTTL, nil
	}

	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("parsing cache ttl: %w", err)
	}

	return d, nil
}

// ClampSyncLimit applies the default and hard cap to a requested run
// fetch size.
func ClampSyncLimit(limit int) int {
	if limit <= 0 {
		return DefaultSyncLimit
	}

	if limit > MaxSyncLimit {
		return MaxSyncLimit
	}

	return limit
}

// NormalizeRepoID converts a repository URL into the canonical identifier
// used as the telemetry key: trimmed, trailing slash removed, lower-cased.
func NormalizeRepoID(url string) string {
	id := strings.TrimSpace(url)
	id = strings.TrimSuffix(id, "/")

	return strings.ToLower(id)
}
