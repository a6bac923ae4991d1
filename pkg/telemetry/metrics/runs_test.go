package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/telemetry/metrics"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

func TestRecentRuns_DeduplicatedCounts(t *testing.T) {
	results := []store.ScenarioResult{
		// Run 1: Login retried, pass wins; Logout skipped.
		run(1, "login.feature", "Login", store.StatusFailed),
		run(1, "login.feature", "Login", store.StatusPassed),
		run(1, "login.feature", "Logout", store.StatusSkipped),
		// Run 2: one clean failure.
		run(2, "login.feature", "Login", store.StatusFailed),
	}

	summaries := metrics.RecentRuns(results)
	require.Len(t, summaries, 2)

	// Newest first.
	assert.Equal(t, 2, summaries[0].RunID)
	assert.Equal(t, 1, summaries[0].FailedCount)
	assert.Zero(t, summaries[0].PassedCount)

	assert.Equal(t, 1, summaries[1].RunID)
	assert.Equal(t, 1, summaries[1].PassedCount)
	assert.Zero(t, summaries[1].FailedCount)
	assert.Equal(t, 1, summaries[1].SkippedCount)
}

func TestRecentRuns_CappedAtTen(t *testing.T) {
	results := series("login.feature", "Login", 25)

	summaries := metrics.RecentRuns(results)
	require.Len(t, summaries, 10)
	assert.Equal(t, 25, summaries[0].RunID)
	assert.Equal(t, 16, summaries[9].RunID)
}
