// Package metrics computes derived quality signals over deduplicated
// scenario telemetry. All calculators are stateless single passes that
// degrade to empty or zero results on sparse input.
package metrics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

// ScenarioStability is the per-scenario stability breakdown.
type ScenarioStability struct {
	ScenarioName   string    `json:"scenario_name"`
	FeatureName    string    `json:"feature_name"`
	StabilityScore float64   `json:"stability_score"`
	TotalRuns      int       `json:"total_runs"`
	LastStatus     string    `json:"last_status"`
	Trend          string    `json:"trend"`
	LastRunAt      time.Time `json:"last_run_at"`

	// Full provider-qualified names, kept so search filters see the
	// package prefix the display names drop.
	rawScenarioName string
	rawFeatureFile  string
}

// FeatureStability aggregates scenario stability per feature file.
type FeatureStability struct {
	FeatureName    string  `json:"feature_name"`
	StabilityScore float64 `json:"stability_score"`
	TotalRuns      int     `json:"total_runs"`
	LastStatus     string  `json:"last_status"`
}

// BuildMetric is one point of the execution-history trend.
type BuildMetric struct {
	RunID    int     `json:"run_id"`
	PassRate float64 `json:"pass_rate"`
}

// StabilityStats is the full stability rollup for a repository branch.
type StabilityStats struct {
	DetectedBranch        string              `json:"detected_branch"`
	OverallStabilityScore float64             `json:"overall_stability_score"`
	FeatureStability      []FeatureStability  `json:"feature_stability"`
	FlakyScenarios        []ScenarioStability `json:"flaky_scenarios"`
	TotalFlakyScenarios   int                 `json:"total_flaky_scenarios"`
	RecentScenarios       []ScenarioStability `json:"recent_scenarios"`
	ExecutionHistory      []BuildMetric       `json:"execution_history"`
}

// PagedStability is a paginated, filtered scenario stability listing.
type PagedStability struct {
	Scenarios   []ScenarioStability `json:"scenarios"`
	TotalCount  int                 `json:"total_count"`
	TotalPages  int                 `json:"total_pages"`
	CurrentPage int                 `json:"current_page"`
	PageSize    int                 `json:"page_size"`
}

// FragileScenario is a recency-weighted failure propensity entry.
type FragileScenario struct {
	FeatureFile    string  `json:"feature_file"`
	ScenarioName   string  `json:"scenario_name"`
	FragilityScore float64 `json:"fragility_score"`
	FailureCount   int     `json:"failure_count"`
}

// DriftImpact is a per-scenario pass-rate regression between windows.
type DriftImpact struct {
	FeatureFile      string  `json:"feature_file"`
	ScenarioName     string  `json:"scenario_name"`
	PreviousPassRate float64 `json:"previous_pass_rate"`
	RecentPassRate   float64 `json:"recent_pass_rate"`
	Delta            float64 `json:"delta"`
}

// DriftAnalysis is the window comparison of aggregate pass rates.
type DriftAnalysis struct {
	Drift      float64       `json:"drift"`
	Status     string        `json:"status"`
	Reasons    []string      `json:"reasons"`
	Regressors []DriftImpact `json:"regressors"`
}

// RunHistoryPoint is one deduplicated execution in a hotspot's window.
type RunHistoryPoint struct {
	Status         string    `json:"status"`
	DurationMillis int64     `json:"duration_millis"`
	Timestamp      time.Time `json:"timestamp"`
}

// ExecutionHotspot compares a scenario's recent average duration against
// its applicable baseline.
type ExecutionHotspot struct {
	FeatureFile            string            `json:"feature_file"`
	ScenarioName           string            `json:"scenario_name"`
	AverageDurationMillis  float64           `json:"average_duration_millis"`
	MaxDurationMillis      int64             `json:"max_duration_millis"`
	ExpectedDurationMillis *int64            `json:"expected_duration_millis"`
	IsHotspot              bool              `json:"is_hotspot"`
	RecentHistory          []RunHistoryPoint `json:"recent_history"`
}

// DurationAnomaly flags a most-recent duration that deviates from the
// scenario's historical distribution.
type DurationAnomaly struct {
	FeatureFile          string  `json:"feature_file"`
	ScenarioName         string  `json:"scenario_name"`
	ZScore               float64 `json:"z_score"`
	LatestDurationMillis int64   `json:"latest_duration_millis"`
	MeanDurationMillis   float64 `json:"mean_duration_millis"`
	StdDevMillis         float64 `json:"std_dev_millis"`
	SampleCount          int     `json:"sample_count"`
}

// SignificantShift is a scenario whose recent pass rate moved sharply
// against its baseline window.
type SignificantShift struct {
	FeatureFile      string  `json:"feature_file"`
	ScenarioName     string  `json:"scenario_name"`
	RecentPassRate   float64 `json:"recent_pass_rate"`
	BaselinePassRate float64 `json:"baseline_pass_rate"`
	Delta            float64 `json:"delta"`
	PValue           float64 `json:"p_value"`
}

// ParetoStep is one entry of the step-reuse Pareto ranking.
type ParetoStep struct {
	StepText          string  `json:"step_text"`
	UsageCount        int     `json:"usage_count"`
	CumulativePercent float64 `json:"cumulative_percent"`
	InTopQuintile     bool    `json:"in_top_quintile"`
}

// RiskPrediction is a Laplace-smoothed failure probability per scenario.
type RiskPrediction struct {
	FeatureFile        string  `json:"feature_file"`
	ScenarioName       string  `json:"scenario_name"`
	FailureProbability float64 `json:"failure_probability"`
	RiskLevel          string  `json:"risk_level"`
	SampleCount        int     `json:"sample_count"`
}

// RunSummary aggregates one run's deduplicated outcome counts.
type RunSummary struct {
	RunID        int       `json:"run_id"`
	PassedCount  int       `json:"passed_count"`
	FailedCount  int       `json:"failed_count"`
	SkippedCount int       `json:"skipped_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// scenarioKey identifies a scenario by feature file plus name.
type scenarioKey struct {
	featureFile  string
	scenarioName string
}

// groupByScenario buckets results per (feature, scenario).
func groupByScenario(
	results []store.ScenarioResult,
) map[scenarioKey][]store.ScenarioResult {
	grouped := make(map[scenarioKey][]store.ScenarioResult)

	for _, r := range results {
		if r.ScenarioName == "" {
			continue
		}

		key := scenarioKey{
			featureFile:  r.FeatureFile,
			scenarioName: r.ScenarioName,
		}
		grouped[key] = append(grouped[key], r)
	}

	return grouped
}

// sortedScenarioKeys returns the group keys in a deterministic order.
func sortedScenarioKeys(
	grouped map[scenarioKey][]store.ScenarioResult,
) []scenarioKey {
	keys := make([]scenarioKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].featureFile != keys[j].featureFile {
			return keys[i].featureFile < keys[j].featureFile
		}

		return keys[i].scenarioName < keys[j].scenarioName
	})

	return keys
}

// round1 rounds to one decimal place, matching the precision the API
// has always reported.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// shortenName keeps the last two dot-separated segments of a qualified
// name so "com.acme.suite.Login.HappyPath" renders as "Login.HappyPath".
func shortenName(name string) string {
	if name == "" {
		return "Unknown"
	}

	parts := strings.Split(name, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "." + parts[len(parts)-1]
	}

	return name
}
