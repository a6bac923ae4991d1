package store

import (
	"strings"
	"time"
)

// Scenario outcome vocabulary as reported by the pipeline provider.
// Matching is case-insensitive; "Succeeded" is treated as a pass.
const (
	StatusPassed  = "Passed"
	StatusFailed  = "Failed"
	StatusSkipped = "Skipped"
)

// ScenarioResult is one reported outcome of one scenario in one CI run.
// Rows are immutable once written; new sync cycles only append. The
// composite unique index absorbs provider re-reports at insert time, but
// downstream aggregation still deduplicates (see pkg/telemetry/dedupe).
type ScenarioResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RepoID         string    `gorm:"uniqueIndex:idx_result_key;not null" json:"repo_id"`
	Branch         string    `json:"branch"`
	FeatureFile    string    `gorm:"uniqueIndex:idx_result_key;not null" json:"feature_file"`
	ScenarioName   string    `gorm:"uniqueIndex:idx_result_key;not null" json:"scenario_name"`
	Status         string    `gorm:"not null" json:"status"`
	DurationMillis *int64    `json:"duration_millis"`
	RunID          int       `gorm:"uniqueIndex:idx_result_key;not null" json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// Passed reports whether the result counts as a pass. Both "Passed" and
// "Succeeded" appear in provider payloads.
func (r *ScenarioResult) Passed() bool {
	return EqualStatus(r.Status, StatusPassed) || EqualStatus(r.Status, "Succeeded")
}

// Failed reports whether the result is an explicit failure.
func (r *ScenarioResult) Failed() bool {
	return EqualStatus(r.Status, StatusFailed)
}

// EqualStatus compares provider status strings case-insensitively.
func EqualStatus(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Repository is a registered repository plus its ingestion checkpoint.
// LastSyncedRunID is the highest run id fully processed; it is advanced
// only by the ingestion engine and never decreases.
type Repository struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RepoID          string    `gorm:"uniqueIndex;not null" json:"repo_id"`
	URL             string    `gorm:"not null" json:"url"`
	DefaultBranch   string    `json:"default_branch"`
	LocalPath       string    `json:"local_path"`
	ProviderOrg     string    `json:"provider_org"`
	ProviderProject string    `json:"provider_project"`
	PipelineID      string    `json:"pipeline_id"`
	LastSyncedRunID int       `json:"last_synced_run_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ScenarioConfig is an optional per-scenario expected-duration threshold.
// Only the hotspot calculator consults it; absence falls back to the
// global average duration.
type ScenarioConfig struct {
	ID                     uint   `gorm:"primaryKey" json:"id"`
	RepoID                 string `gorm:"uniqueIndex:idx_scenario_config_key;not null" json:"repo_id"`
	FeatureFile            string `gorm:"uniqueIndex:idx_scenario_config_key;not null" json:"feature_file"`
	ScenarioName           string `gorm:"uniqueIndex:idx_scenario_config_key;not null" json:"scenario_name"`
	ExpectedDurationMillis int64  `json:"expected_duration_millis"`
}

// TestCaseTrend is a periodic snapshot of the total test count for a
// repository branch, recorded by the scheduler sweep.
type TestCaseTrend struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RepoID     string    `gorm:"index;not null" json:"repo_id"`
	Branch     string    `gorm:"not null" json:"branch"`
	TestCount  int       `gorm:"not null" json:"test_count"`
	CapturedAt time.Time `gorm:"not null" json:"captured_at"`
}
