package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

const (
	// driftRecentWindow is how many most-recent observations form the
	// recent window; everything older is the baseline.
	driftRecentWindow = 20

	// driftMinObservations gates the whole analysis.
	driftMinObservations = 10

	// regressorDelta flags any scenario pass-rate drop beyond 5 points.
	regressorDelta = -0.05

	// reasonDelta generates a human-readable reason for moves beyond
	// 20 points either way.
	reasonDelta = 0.20

	// newUnstableRate marks scenarios that appear only in the recent
	// window with a sub-80% pass rate.
	newUnstableRate = 0.80

	regressorListLimit = 10
	reasonListLimit    = 5
)

// Drift status labels.
const (
	DriftImproving = "Improving"
	DriftDeclining = "Declining"
	DriftStable    = "Stable"
)

// Drift partitions the scope's deduplicated results into a recent and an
// older window and compares pass rates globally and per scenario.
func Drift(results []store.ScenarioResult) *DriftAnalysis {
	canonical := dedupe.PerRun(results)

	analysis := &DriftAnalysis{
		Status:     DriftStable,
		Reasons:    []string{},
		Regressors: []DriftImpact{},
	}

	if len(canonical) < driftMinObservations {
		analysis.Reasons = append(analysis.Reasons,
			"Insufficient data to analyze drift reasons.")

		return analysis
	}

	recent, older := splitWindows(canonical)

	analysis.Drift = round1(passRate(recent)*100 - passRate(older)*100)
	analysis.Status = driftStatus(analysis.Drift)

	if len(older) == 0 {
		analysis.Drift = 0
		analysis.Status = DriftStable
		analysis.Reasons = append(analysis.Reasons,
			"Establishing baseline. No historical data yet.")

		return analysis
	}

	recentRates := scenarioPassRates(recent)
	olderRates := scenarioPassRates(older)

	reasons := []string{}
	regressors := []DriftImpact{}

	for _, key := range sortedRateKeys(olderRates) {
		olderRate := olderRates[key]

		recentRate, ok := recentRates[key]
		if !ok {
			continue
		}

		delta := recentRate - olderRate

		if delta < regressorDelta {
			regressors = append(regressors, DriftImpact{
				FeatureFile:      key.featureFile,
				ScenarioName:     key.scenarioName,
				PreviousPassRate: round1(olderRate * 100),
				RecentPassRate:   round1(recentRate * 100),
				Delta:            round1(delta * 100),
			})
		}

		switch {
		case delta < -reasonDelta:
			reasons = append(reasons, fmt.Sprintf(
				"Regression detected in scenario: %s (Pass rate dropped from %.0f%% to %.0f%%)",
				key.scenarioName,
				math.Round(olderRate*100),
				math.Round(recentRate*100),
			))
		case delta > reasonDelta:
			reasons = append(reasons, fmt.Sprintf(
				"Improvement detected in scenario: %s (Pass rate increased from %.0f%% to %.0f%%)",
				key.scenarioName,
				math.Round(olderRate*100),
				math.Round(recentRate*100),
			))
		}
	}

	for _, key := range sortedRateKeys(recentRates) {
		if _, existed := olderRates[key]; existed {
			continue
		}

		if rate := recentRates[key]; rate < newUnstableRate {
			reasons = append(reasons, fmt.Sprintf(
				"New unstable scenario introduced: %s (Initial pass rate: %.0f%%)",
				key.scenarioName,
				math.Round(rate*100),
			))
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf(
			"General stability is %s across all scenarios.",
			strings.ToLower(analysis.Status),
		))
	}

	if len(reasons) > reasonListLimit {
		reasons = reasons[:reasonListLimit]
	}

	sort.SliceStable(regressors, func(i, j int) bool {
		return regressors[i].Delta < regressors[j].Delta
	})

	if len(regressors) > regressorListLimit {
		regressors = regressors[:regressorListLimit]
	}

	analysis.Reasons = reasons
	analysis.Regressors = regressors

	return analysis
}

// splitWindows divides timestamp-descending results into the recent
// window and the older baseline.
func splitWindows(
	sorted []store.ScenarioResult,
) (recent, older []store.ScenarioResult) {
	cut := driftRecentWindow
	if cut > len(sorted) {
		cut = len(sorted)
	}

	return sorted[:cut], sorted[cut:]
}

func passRate(results []store.ScenarioResult) float64 {
	if len(results) == 0 {
		return 0
	}

	passed := 0
	for _, r := range results {
		if r.Passed() {
			passed++
		}
	}

	return float64(passed) / float64(len(results))
}

func scenarioPassRates(
	results []store.ScenarioResult,
) map[scenarioKey]float64 {
	grouped := groupByScenario(results)
	rates := make(map[scenarioKey]float64, len(grouped))

	for key, group := range grouped {
		rates[key] = passRate(group)
	}

	return rates
}

func sortedRateKeys(rates map[scenarioKey]float64) []scenarioKey {
	keys := make([]scenarioKey, 0, len(rates))
	for key := range rates {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].featureFile != keys[j].featureFile {
			return keys[i].featureFile < keys[j].featureFile
		}

		return keys[i].scenarioName < keys[j].scenarioName
	})

	return keys
}

func driftStatus(drift float64) string {
	switch {
	case drift > 2:
		return DriftImproving
	case drift < -2:
		return DriftDeclining
	default:
		return DriftStable
	}
}
