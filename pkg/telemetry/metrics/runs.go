package metrics

import (
	"sort"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

// recentRunListLimit bounds the recent run summary list.
const recentRunListLimit = 10

// RecentRuns aggregates deduplicated outcome counts for the most recent
// runs, newest first.
func RecentRuns(results []store.ScenarioResult) []RunSummary {
	byRun := make(map[int][]store.ScenarioResult)
	for _, r := range results {
		byRun[r.RunID] = append(byRun[r.RunID], r)
	}

	summaries := make([]RunSummary, 0, len(byRun))

	for runID, runResults := range byRun {
		canonical := dedupe.PerRun(runResults)

		summary := RunSummary{RunID: runID}

		for _, r := range canonical {
			switch {
			case r.Passed():
				summary.PassedCount++
			case r.Failed():
				summary.FailedCount++
			case store.EqualStatus(r.Status, store.StatusSkipped):
				summary.SkippedCount++
			}

			if r.Timestamp.After(summary.Timestamp) {
				summary.Timestamp = r.Timestamp
			}
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].Timestamp.Equal(summaries[j].Timestamp) {
			return summaries[i].Timestamp.After(summaries[j].Timestamp)
		}

		return summaries[i].RunID > summaries[j].RunID
	})

	if len(summaries) > recentRunListLimit {
		summaries = summaries[:recentRunListLimit]
	}

	return summaries
}
