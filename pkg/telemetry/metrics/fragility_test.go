package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
)

func TestFragility_RecentFailuresWeighMore(t *testing.T) {
	// Same failure count, but one scenario failed on its newest run.
	results := append(
		series("login.feature", "RecentFail", 5, 5),
		series("login.feature", "OldFail", 5, 1)...,
	)

	fragile := metrics.Fragility(results)
	require.Len(t, fragile, 2)

	assert.Equal(t, "RecentFail", fragile[0].ScenarioName)
	assert.Equal(t, "OldFail", fragile[1].ScenarioName)
	assert.Greater(t, fragile[0].FragilityScore, fragile[1].FragilityScore)
	assert.Equal(t, 1, fragile[0].FailureCount)
}

func TestFragility_ShortHistoryOmitted(t *testing.T) {
	results := series("login.feature", "New", 2, 1, 2)

	assert.Empty(t, metrics.Fragility(results))
}

func TestFragility_QuietScenariosFiltered(t *testing.T) {
	results := series("login.feature", "Solid", 10)

	assert.Empty(t, metrics.Fragility(results))
}

func TestFragility_ListCappedAtFive(t *testing.T) {
	var results = series("a.feature", "S0", 5, 5)

	names := []string{"S1", "S2", "S3", "S4", "S5", "S6"}
	for _, name := range names {
		results = append(results, series("a.feature", name, 5, 5)...)
	}

	fragile := metrics.Fragility(results)
	assert.Len(t, fragile, 5)
}
