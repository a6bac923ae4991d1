package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/featurepulse/featurepulse/pkg/gherkin"
	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
)

func testInventory() *gherkin.Inventory {
	inv := gherkin.NewInventory()

	content := []byte(`Feature: Login
  Scenario: Successful login
    Given a registered user
    When the user signs in
    Then the dashboard is shown

  Scenario: Wrong password
    Given a registered user
    When the user signs in with a wrong password
    Then an error message is shown
`)

	inv.Merge("login.feature", gherkin.ScanFeature("login.feature", content))
	inv.Merge("empty.feature", gherkin.ScanFeature("empty.feature", []byte("Feature: Empty\n")))

	return inv
}

func TestBuildTestStats_WithExecution(t *testing.T) {
	latest := &metrics.RunSummary{PassedCount: 9, FailedCount: 1}

	stats := buildTestStats(testInventory(), latest, 90.0)

	assert.Equal(t, 2, stats.TotalFeatures)
	assert.Equal(t, 2, stats.TotalScenarios)
	assert.Equal(t, 2, stats.TotalTests)
	assert.Equal(t, 6, stats.TotalSteps)
	assert.Equal(t, 5, stats.UniqueSteps)

	// One of two feature files declares scenarios.
	assert.InDelta(t, 50.0, stats.CoveragePercentage, 0.001)

	// Historical stability preferred over the latest run alone.
	assert.InDelta(t, 90.0, stats.PassRate, 0.001)
	assert.Equal(t, 10, stats.TestsTotal)

	// 3 steps per test sits in the healthy band: full complexity credit.
	// 90*0.7 + 50*0.2 + 100*0.1 = 83.
	assert.InDelta(t, 83.0, stats.ReadinessScore, 0.001)
}

func TestBuildTestStats_NoExecutionCapped(t *testing.T) {
	stats := buildTestStats(testInventory(), nil, 0)

	assert.Zero(t, stats.TestsTotal)
	assert.Zero(t, stats.PassRate)

	// 50*0.3 + 100*0.1 = 25: without execution data the score cannot
	// exceed 40.
	assert.InDelta(t, 25.0, stats.ReadinessScore, 0.001)
	assert.LessOrEqual(t, stats.ReadinessScore, 40.0)
}

func TestBuildTestStats_LatestRunFallbackRate(t *testing.T) {
	latest := &metrics.RunSummary{PassedCount: 3, FailedCount: 1}

	stats := buildTestStats(testInventory(), latest, 0)

	assert.InDelta(t, 75.0, stats.PassRate, 0.001)
}

func TestBuildTestStats_ReuseFigures(t *testing.T) {
	stats := buildTestStats(testInventory(), nil, 0)

	// 6 step instances over 5 unique definitions.
	assert.InDelta(t, 1.2, stats.StepReuseIndex, 0.001)
	assert.InDelta(t, 16.7, stats.AutomationEfficiency, 0.001)
}

func TestReadinessScore_ComplexityBands(t *testing.T) {
	tests := []struct {
		name  string
		steps int
		tests int
		want  float64
	}{
		{"healthy band", 10, 2, 10.0}, // 5 steps/test -> 100 * 0.1
		{"too shallow", 3, 2, 5.0},    // 1.5 steps/test -> 50 * 0.1
		{"single step", 2, 2, 0.0},    // 1 step/test -> no credit
		{"no tests", 5, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &TestStats{
				TotalSteps: tt.steps,
				TotalTests: tt.tests,
			}

			assert.InDelta(t, tt.want, readinessScore(stats), 0.001)
		})
	}
}

func TestStaleFeaturesEstimate(t *testing.T) {
	inv := gherkin.NewInventory()
	for i := 0; i < 12; i++ {
		inv.Merge("f.feature", &gherkin.ScanResult{})
	}

	stats := buildTestStats(inv, nil, 0)
	assert.Equal(t, 2, stats.StaleFeaturesCount)
}
