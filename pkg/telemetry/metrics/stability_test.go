package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

func TestStability_Empty(t *testing.T) {
	stats := metrics.Stability(nil, "main")

	assert.Equal(t, "None", stats.DetectedBranch)
	assert.Zero(t, stats.OverallStabilityScore)
	assert.Empty(t, stats.FlakyScenarios)
	assert.Empty(t, stats.ExecutionHistory)
}

func TestStability_BranchLabels(t *testing.T) {
	results := series("login.feature", "Login", 3)

	assert.Equal(t, "main",
		metrics.Stability(results, "main").DetectedBranch)
	assert.Equal(t, "Global Context",
		metrics.Stability(results, "").DetectedBranch)
}

func TestStability_SingleFailureInTenRuns(t *testing.T) {
	// Ten runs, one mid-window failure: 90% stable, trend recovers.
	results := series("login.feature", "Login", 10, 5)

	stats := metrics.Stability(results, "main")

	require.Len(t, stats.RecentScenarios, 1)
	scenario := stats.RecentScenarios[0]

	assert.InDelta(t, 90.0, scenario.StabilityScore, 0.001)
	assert.Equal(t, 10, scenario.TotalRuns)
	assert.Equal(t, metrics.TrendStable, scenario.Trend)
	assert.Equal(t, store.StatusPassed, scenario.LastStatus)

	// Overall score is the mean of per-run pass rates: nine at 100, one
	// at 0.
	assert.InDelta(t, 90.0, stats.OverallStabilityScore, 0.001)

	require.Len(t, stats.FlakyScenarios, 1)
	assert.Equal(t, 1, stats.TotalFlakyScenarios)
}

func TestStability_AllPassing(t *testing.T) {
	results := series("login.feature", "Login", 10)

	stats := metrics.Stability(results, "main")

	require.Len(t, stats.RecentScenarios, 1)
	assert.InDelta(t, 100.0, stats.RecentScenarios[0].StabilityScore, 0.001)
	assert.InDelta(t, 100.0, stats.OverallStabilityScore, 0.001)
	assert.Empty(t, stats.FlakyScenarios)
	assert.Zero(t, stats.TotalFlakyScenarios)
}

func TestStability_TrendLabels(t *testing.T) {
	tests := []struct {
		name       string
		failedRuns []int
		want       string
	}{
		{"no recent failures", nil, metrics.TrendStable},
		{"one recent failure", []int{5}, metrics.TrendImproving},
		{"two recent failures", []int{4, 5}, metrics.TrendUnstable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := series("login.feature", "Login", 5, tt.failedRuns...)
			stats := metrics.Stability(results, "main")

			require.Len(t, stats.RecentScenarios, 1)
			assert.Equal(t, tt.want, stats.RecentScenarios[0].Trend)
		})
	}
}

func TestStability_WindowCapsAtTenRuns(t *testing.T) {
	// The only failure is outside the 10-run window.
	results := series("login.feature", "Login", 15, 1)

	stats := metrics.Stability(results, "main")

	require.Len(t, stats.RecentScenarios, 1)
	assert.InDelta(t, 100.0, stats.RecentScenarios[0].StabilityScore, 0.001)
	assert.Equal(t, 15, stats.RecentScenarios[0].TotalRuns)
}

func TestStability_FeatureRollup(t *testing.T) {
	results := append(
		series("login.feature", "Login", 10),
		series("login.feature", "Logout", 10, 10)...,
	)

	stats := metrics.Stability(results, "main")

	require.Len(t, stats.FeatureStability, 1)
	feature := stats.FeatureStability[0]

	// Mean of 100 and 90, Failed because Logout's last run failed.
	assert.InDelta(t, 95.0, feature.StabilityScore, 0.001)
	assert.Equal(t, store.StatusFailed, feature.LastStatus)
	assert.Equal(t, 20, feature.TotalRuns)
}

func TestExecutionHistory_DeduplicatesWithinRuns(t *testing.T) {
	results := []store.ScenarioResult{
		run(1, "login.feature", "Login", store.StatusFailed),
		run(1, "login.feature", "Login", store.StatusPassed),
		run(2, "login.feature", "Login", store.StatusFailed),
	}

	history := metrics.ExecutionHistory(results)
	require.Len(t, history, 2)

	// Oldest first; run 1 collapses to its pass.
	assert.Equal(t, 1, history[0].RunID)
	assert.InDelta(t, 100.0, history[0].PassRate, 0.001)
	assert.Equal(t, 2, history[1].RunID)
	assert.InDelta(t, 0.0, history[1].PassRate, 0.001)
}

func TestPaginatedStability_FilterAndPage(t *testing.T) {
	results := append(
		series("login.feature", "Login", 10, 9, 10),
		series("checkout.feature", "Checkout", 10)...,
	)

	// Flaky-only keeps just the failing scenario.
	paged := metrics.PaginatedStability(results, 0, 20, "", true)
	require.Len(t, paged.Scenarios, 1)
	assert.Equal(t, "Login", paged.Scenarios[0].ScenarioName)
	assert.Equal(t, 1, paged.TotalCount)

	// Search matches the feature name too.
	paged = metrics.PaginatedStability(results, 0, 20, "checkout", false)
	require.Len(t, paged.Scenarios, 1)
	assert.Equal(t, "Checkout", paged.Scenarios[0].ScenarioName)

	// Page past the end is empty but keeps the totals.
	paged = metrics.PaginatedStability(results, 5, 20, "", false)
	assert.Empty(t, paged.Scenarios)
	assert.Equal(t, 2, paged.TotalCount)
	assert.Equal(t, 1, paged.TotalPages)
}

func TestPaginatedStability_SearchMatchesQualifiedNames(t *testing.T) {
	results := []store.ScenarioResult{
		run(1, "com.acme.suite.login", "com.acme.suite.Login.HappyPath",
			store.StatusPassed),
		run(1, "checkout.feature", "Checkout", store.StatusPassed),
	}

	// The package prefix is dropped from display names but must still be
	// searchable.
	paged := metrics.PaginatedStability(results, 0, 20, "com.acme", false)
	require.Len(t, paged.Scenarios, 1)
	assert.Equal(t, "Login.HappyPath", paged.Scenarios[0].ScenarioName)

	// Searching by the shortened form keeps working.
	paged = metrics.PaginatedStability(results, 0, 20, "happypath", false)
	require.Len(t, paged.Scenarios, 1)
}

func TestPaginatedStability_LeastStableFirst(t *testing.T) {
	results := append(
		series("login.feature", "Login", 10, 8, 9, 10),
		series("checkout.feature", "Checkout", 10, 10)...,
	)

	paged := metrics.PaginatedStability(results, 0, 20, "", false)
	require.Len(t, paged.Scenarios, 2)
	assert.Equal(t, "Login", paged.Scenarios[0].ScenarioName)
}
