package metrics

import (
	"math"
	"sort"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

const (
	// significanceRecentWindow is the size of the recent sample.
	significanceRecentWindow = 5

	// significanceBaselineWindow is the size of the preceding baseline.
	significanceBaselineWindow = 10

	// significanceDelta is the pass-rate shift that counts as
	// significant.
	significanceDelta = 0.30

	// significancePlaceholderP is the fixed p-value attached to flagged
	// shifts. This is a heuristic marker, not the outcome of a real
	// hypothesis test; callers should treat it as a boolean in disguise.
	significancePlaceholderP = 0.03
)

// SignificantShifts compares each scenario's most recent results against
// the preceding baseline window (up to ten results) and reports shifts
// whose pass-rate delta exceeds 30 points. Scenarios with fewer than ten
// deduplicated observations are skipped.
func SignificantShifts(results []store.ScenarioResult) []SignificantShift {
	grouped := groupByScenario(results)
	shifts := make([]SignificantShift, 0, len(grouped))

	for _, key := range sortedScenarioKeys(grouped) {
		history := dedupe.History(grouped[key])
		if len(history) < significanceBaselineWindow {
			continue
		}

		recent := history[:significanceRecentWindow]

		baselineEnd := significanceRecentWindow + significanceBaselineWindow
		if baselineEnd > len(history) {
			baselineEnd = len(history)
		}

		baseline := history[significanceRecentWindow:baselineEnd]

		recentRate := passRate(recent)
		baselineRate := passRate(baseline)
		delta := recentRate - baselineRate

		if math.Abs(delta) <= significanceDelta {
			continue
		}

		shifts = append(shifts, SignificantShift{
			FeatureFile:      key.featureFile,
			ScenarioName:     key.scenarioName,
			RecentPassRate:   round1(recentRate * 100),
			BaselinePassRate: round1(baselineRate * 100),
			Delta:            round1(delta * 100),
			PValue:           significancePlaceholderP,
		})
	}

	sort.SliceStable(shifts, func(i, j int) bool {
		return math.Abs(shifts[i].Delta) > math.Abs(shifts[j].Delta)
	})

	return shifts
}
