// Package dedupe collapses noisy, re-reported CI scenario results into a
// canonical subset. Every downstream calculator must aggregate over the
// output of this package; applying a different collapse rule elsewhere is
// a defect.
package dedupe

import (
	"sort"

	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

// prefer reports whether candidate should replace existing for the same
// dedup key. A Passed result wins over a non-Passed one (provider retry
// noise favors the optimistic record within a single run); between two
// records of equal informativeness the later timestamp wins.
func prefer(existing, candidate *store.ScenarioResult) bool {
	switch {
	case candidate.Passed() && !existing.Passed():
		return true
	case existing.Passed() && !candidate.Passed():
		return false
	default:
		return candidate.Timestamp.After(existing.Timestamp)
	}
}

type runKey struct {
	runID        int
	featureFile  string
	scenarioName string
}

// PerRun collapses repeated reports sharing (run id, feature, scenario)
// into one canonical record each. The result is ordered newest first.
func PerRun(results []store.ScenarioResult) []store.ScenarioResult {
	unique := make(map[runKey]store.ScenarioResult, len(results))

	for _, r := range results {
		key := runKey{
			runID:        r.RunID,
			featureFile:  r.FeatureFile,
			scenarioName: r.ScenarioName,
		}

		existing, ok := unique[key]
		if !ok || prefer(&existing, &r) {
			unique[key] = r
		}
	}

	return sortedByTimestampDesc(unique)
}

// History collapses one scenario's records to exactly one per distinct
// run id using the same tie-break, then orders them newest first. The
// caller is expected to pass the records of a single scenario.
func History(results []store.ScenarioResult) []store.ScenarioResult {
	unique := make(map[int]store.ScenarioResult, len(results))

	for _, r := range results {
		existing, ok := unique[r.RunID]
		if !ok || prefer(&existing, &r) {
			unique[r.RunID] = r
		}
	}

	canonical := make([]store.ScenarioResult, 0, len(unique))
	for _, r := range unique {
		canonical = append(canonical, r)
	}

	sortByTimestampDesc(canonical)

	return canonical
}

func sortedByTimestampDesc(
	unique map[runKey]store.ScenarioResult,
) []store.ScenarioResult {
	canonical := make([]store.ScenarioResult, 0, len(unique))
	for _, r := range unique {
		canonical = append(canonical, r)
	}

	sortByTimestampDesc(canonical)

	return canonical
}

func sortByTimestampDesc(results []store.ScenarioResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}

		// Stable secondary ordering keeps identical timestamps
		// deterministic across calls.
		return results[i].RunID > results[j].RunID
	})
}
