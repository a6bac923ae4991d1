package metrics_test

import (
	"time"

	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

var testEpoch = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// run builds one scenario result; runID also spaces the timestamps so
// higher run ids are newer.
func run(runID int, feature, scenario, status string) store.ScenarioResult {
	return store.ScenarioResult{
		RepoID:       "https://example.com/repo",
		FeatureFile:  feature,
		ScenarioName: scenario,
		RunID:        runID,
		Status:       status,
		Timestamp:    testEpoch.Add(time.Duration(runID) * time.Minute),
	}
}

func timedRun(
	runID int, feature, scenario, status string, durationMs int64,
) store.ScenarioResult {
	r := run(runID, feature, scenario, status)
	r.DurationMillis = &durationMs

	return r
}

// series produces one result per run id in [1, total], failing the runs
// listed in failedRuns.
func series(
	feature, scenario string, total int, failedRuns ...int,
) []store.ScenarioResult {
	failed := make(map[int]bool, len(failedRuns))
	for _, id := range failedRuns {
		failed[id] = true
	}

	results := make([]store.ScenarioResult, 0, total)

	for id := 1; id <= total; id++ {
		status := store.StatusPassed
		if failed[id] {
			status = store.StatusFailed
		}

		results = append(results, run(id, feature, scenario, status))
	}

	return results
}
