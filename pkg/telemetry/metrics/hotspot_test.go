package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

func buildDurationResults(scenario string, durations []int64) []store.ScenarioResult {
	results := make([]store.ScenarioResult, 0, len(durations))
	for i, d := range durations {
		results = append(results,
			timedRun(i+1, "perf.feature", scenario, store.StatusPassed, d))
	}

	return results
}

func TestHotspots_GlobalAverageBaseline(t *testing.T) {
	results := append(
		buildDurationResults("Slow", []int64{200, 210, 190}),
		buildDurationResults("Fast", []int64{50, 55, 45})...,
	)

	hotspots := metrics.Hotspots(results, nil)
	require.Len(t, hotspots, 2)

	// Slowest first.
	assert.Equal(t, "Slow", hotspots[0].ScenarioName)
	assert.True(t, hotspots[0].IsHotspot)
	assert.Nil(t, hotspots[0].ExpectedDurationMillis)

	assert.Equal(t, "Fast", hotspots[1].ScenarioName)
	assert.False(t, hotspots[1].IsHotspot)
}

func TestHotspots_ConfiguredThresholdOverridesGlobal(t *testing.T) {
	results := append(
		buildDurationResults("Slow", []int64{200, 210, 190}),
		buildDurationResults("Fast", []int64{50, 55, 45})...,
	)

	configs := []store.ScenarioConfig{{
		FeatureFile:            "perf.feature",
		ScenarioName:           "Fast",
		ExpectedDurationMillis: 30,
	}}

	hotspots := metrics.Hotspots(results, configs)
	require.Len(t, hotspots, 2)

	fast := hotspots[1]
	assert.Equal(t, "Fast", fast.ScenarioName)
	require.NotNil(t, fast.ExpectedDurationMillis)
	assert.Equal(t, int64(30), *fast.ExpectedDurationMillis)

	// 50ms average exceeds the 30ms expectation.
	assert.True(t, fast.IsHotspot)
}

func TestHotspots_RecentHistoryAndMax(t *testing.T) {
	results := buildDurationResults("Login", []int64{100, 300, 200})

	hotspots := metrics.Hotspots(results, nil)
	require.Len(t, hotspots, 1)

	h := hotspots[0]
	assert.InDelta(t, 200.0, h.AverageDurationMillis, 0.001)
	assert.Equal(t, int64(300), h.MaxDurationMillis)
	require.Len(t, h.RecentHistory, 3)

	// Newest first.
	assert.Equal(t, int64(200), h.RecentHistory[0].DurationMillis)
}

func TestGlobalAverageDuration_MissingCountsAsZero(t *testing.T) {
	results := []store.ScenarioResult{
		timedRun(1, "perf.feature", "Login", store.StatusPassed, 100),
		run(2, "perf.feature", "Login", store.StatusPassed),
	}

	assert.InDelta(t, 50.0, metrics.GlobalAverageDuration(results), 0.001)
}
