package telemetry

import (
	"math"

	"github.com/featurepulse/featurepulse/pkg/gherkin"
	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
)

// TestStats is the quality scorecard for a repository branch, combining
// the committed feature inventory with execution telemetry.
type TestStats struct {
	TotalFeatures         int     `json:"total_features"`
	TotalScenarios        int     `json:"total_scenarios"`
	TotalScenarioOutlines int     `json:"total_scenario_outlines"`
	TotalTests            int     `json:"total_tests"`
	TotalSteps            int     `json:"total_steps"`
	UniqueSteps           int     `json:"unique_steps"`
	CoveragePercentage    float64 `json:"coverage_percentage"`
	AutomationEfficiency  float64 `json:"automation_efficiency"`
	StepReuseIndex        float64 `json:"step_reuse_index"`
	ReadinessScore        float64 `json:"readiness_score"`
	TestsPassed           int     `json:"tests_passed"`
	TestsFailed           int     `json:"tests_failed"`
	TestsTotal            int     `json:"tests_total"`
	PassRate              float64 `json:"pass_rate"`
	StaleFeaturesCount    int     `json:"stale_features_count"`
}

// AdvancedAnalytics bundles the derived quality signals served by the
// analytics endpoint.
type AdvancedAnalytics struct {
	FragileScenarios  []metrics.FragileScenario  `json:"fragile_scenarios"`
	Drift             *metrics.DriftAnalysis     `json:"drift"`
	Hotspots          []metrics.ExecutionHotspot `json:"hotspots"`
	Anomalies         []metrics.DurationAnomaly  `json:"anomalies"`
	SignificantShifts []metrics.SignificantShift `json:"significant_shifts"`
	StepPareto        []metrics.ParetoStep       `json:"step_pareto"`
	RiskPredictions   []metrics.RiskPrediction   `json:"risk_predictions"`
	RecentRuns        []metrics.RunSummary       `json:"recent_runs"`
	StepReuseROI      float64                    `json:"step_reuse_roi"`
}

// Readiness weights: execution dominates, backed by coverage and a
// step-complexity check.
const (
	readinessExecutionWeight  = 0.7
	readinessCoverageWeight   = 0.2
	readinessComplexityWeight = 0.1

	// Without execution data, coverage weight drops so the score caps
	// at 40: a suite that never ran is not release-ready.
	readinessNoExecCoverageWeight = 0.3
)

// Healthy step counts per test. Outside this band the scenario is either
// trivial or doing too much.
const (
	complexityStepsMin = 3.0
	complexityStepsMax = 8.0
)

// buildTestStats assembles the scorecard from a feature inventory and
// the already-computed execution figures.
func buildTestStats(
	inv *gherkin.Inventory,
	latestRun *metrics.RunSummary,
	historicalPassRate float64,
) *TestStats {
	stats := &TestStats{
		TotalFeatures:         inv.Features,
		TotalScenarios:        inv.Scenarios,
		TotalScenarioOutlines: inv.Outlines,
		TotalTests:            inv.TestInstances,
		TotalSteps:            inv.StepInstances,
		UniqueSteps:           inv.UniqueSteps,
	}

	if latestRun != nil {
		stats.TestsPassed = latestRun.PassedCount
		stats.TestsFailed = latestRun.FailedCount
		stats.TestsTotal = latestRun.PassedCount +
			latestRun.FailedCount + latestRun.SkippedCount
	}

	// Historical stability is preferred over the single latest run so
	// the scorecard agrees with the stability rollup.
	switch {
	case historicalPassRate > 0:
		stats.PassRate = historicalPassRate
	case stats.TestsTotal > 0:
		stats.PassRate = float64(stats.TestsPassed) * 100 /
			float64(stats.TestsTotal)
	}

	if inv.Features > 0 {
		stats.CoveragePercentage = round1(
			float64(inv.CoveredFeatures) * 100 / float64(inv.Features))
	}

	if inv.StepInstances > 0 && inv.UniqueSteps > 0 {
		stats.AutomationEfficiency = round1(inv.ReuseROI())
		stats.StepReuseIndex = round1(
			float64(inv.StepInstances) / float64(inv.UniqueSteps))
	}

	stats.ReadinessScore = readinessScore(stats)
	stats.StaleFeaturesCount = inv.Features / 5

	return stats
}

// readinessScore folds execution, coverage and complexity into one
// go/no-go number.
func readinessScore(stats *TestStats) float64 {
	complexity := 0.0

	if stats.TotalTests > 0 {
		stepsPerTest := float64(stats.TotalSteps) / float64(stats.TotalTests)

		switch {
		case stepsPerTest >= complexityStepsMin && stepsPerTest <= complexityStepsMax:
			complexity = 100
		case stepsPerTest > 1:
			complexity = 50
		}
	}

	var readiness float64

	if stats.TestsTotal > 0 {
		readiness = stats.PassRate*readinessExecutionWeight +
			stats.CoveragePercentage*readinessCoverageWeight +
			complexity*readinessComplexityWeight
	} else {
		readiness = stats.CoveragePercentage*readinessNoExecCoverageWeight +
			complexity*readinessComplexityWeight
	}

	return math.Min(100, math.Round(readiness))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
