package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
)

func TestSignificantShifts_RecentCollapseFlagged(t *testing.T) {
	// Baseline (runs 1-10) all passing, recent five runs all failing.
	results := series("login.feature", "Login", 15, 11, 12, 13, 14, 15)

	shifts := metrics.SignificantShifts(results)
	require.Len(t, shifts, 1)

	shift := shifts[0]
	assert.Equal(t, "Login", shift.ScenarioName)
	assert.InDelta(t, 0.0, shift.RecentPassRate, 0.001)
	assert.InDelta(t, 100.0, shift.BaselinePassRate, 0.001)
	assert.InDelta(t, -100.0, shift.Delta, 0.001)
	assert.InDelta(t, 0.03, shift.PValue, 0.0001)
}

func TestSignificantShifts_ShortBaselineClamped(t *testing.T) {
	// Exactly ten observations: the baseline is the five preceding runs.
	results := series("login.feature", "Login", 10, 6, 7, 8, 9, 10)

	shifts := metrics.SignificantShifts(results)
	require.Len(t, shifts, 1)
	assert.InDelta(t, -100.0, shifts[0].Delta, 0.001)
}

func TestSignificantShifts_TooLittleHistory(t *testing.T) {
	results := series("login.feature", "Login", 9, 5, 6, 7, 8, 9)

	assert.Empty(t, metrics.SignificantShifts(results))
}

func TestSignificantShifts_SmallDeltaIgnored(t *testing.T) {
	// One recent failure out of five is a 20-point shift, below the bar.
	results := series("login.feature", "Login", 15, 15)

	assert.Empty(t, metrics.SignificantShifts(results))
}
