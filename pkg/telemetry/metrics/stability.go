package metrics

import (
	"sort"
	"strings"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

const (
	// stabilityWindow caps how many distinct runs feed a scenario's
	// stability score.
	stabilityWindow = 10

	// trendWindow is how many most-recent results the trend label
	// examines.
	trendWindow = 3

	// historyWindow is how many distinct run ids feed the execution
	// history and the overall score.
	historyWindow = 10

	// flakyListLimit bounds the flaky scenario list in the rollup.
	flakyListLimit = 10

	// recentListLimit bounds the recent scenario list in the rollup.
	recentListLimit = 10
)

// Trend labels.
const (
	TrendStable    = "stable"
	TrendUnstable  = "unstable"
	TrendImproving = "improving"
)

// Stability computes the full stability rollup for a result scope.
// Branch is echoed back as the detected branch label; pass "" when the
// scope spans all branches.
func Stability(results []store.ScenarioResult, branch string) *StabilityStats {
	detected := branch
	if detected == "" {
		detected = "Global Context"
	}

	stats := &StabilityStats{
		DetectedBranch:   detected,
		FeatureStability: []FeatureStability{},
		FlakyScenarios:   []ScenarioStability{},
		RecentScenarios:  []ScenarioStability{},
		ExecutionHistory: []BuildMetric{},
	}

	if len(results) == 0 {
		stats.DetectedBranch = "None"

		return stats
	}

	scenarioMetrics := scenarioStabilities(results)

	// Feature rollup: mean of scenario scores; a feature is Failed when
	// any of its scenarios last failed.
	featureGroups := make(map[string][]ScenarioStability)
	for _, m := range scenarioMetrics {
		featureGroups[m.FeatureName] = append(featureGroups[m.FeatureName], m)
	}

	for feature, group := range featureGroups {
		var scoreSum float64

		totalRuns := 0
		lastStatus := store.StatusPassed

		for _, m := range group {
			scoreSum += m.StabilityScore
			totalRuns += m.TotalRuns

			if store.EqualStatus(m.LastStatus, store.StatusFailed) {
				lastStatus = store.StatusFailed
			}
		}

		stats.FeatureStability = append(stats.FeatureStability, FeatureStability{
			FeatureName:    feature,
			StabilityScore: round1(scoreSum / float64(len(group))),
			TotalRuns:      totalRuns,
			LastStatus:     lastStatus,
		})
	}

	sort.Slice(stats.FeatureStability, func(i, j int) bool {
		return stats.FeatureStability[i].StabilityScore <
			stats.FeatureStability[j].StabilityScore
	})

	// Flaky: anything below a perfect score, least stable first.
	flaky := make([]ScenarioStability, 0, len(scenarioMetrics))
	for _, m := range scenarioMetrics {
		if m.StabilityScore < 100 {
			flaky = append(flaky, m)
		}
	}

	sort.SliceStable(flaky, func(i, j int) bool {
		return flaky[i].StabilityScore < flaky[j].StabilityScore
	})

	stats.TotalFlakyScenarios = len(flaky)
	stats.FlakyScenarios = limitScenarios(flaky, flakyListLimit)
	stats.RecentScenarios = limitScenarios(scenarioMetrics, recentListLimit)

	stats.ExecutionHistory = ExecutionHistory(results)

	if len(stats.ExecutionHistory) > 0 {
		var sum float64
		for _, b := range stats.ExecutionHistory {
			sum += b.PassRate
		}

		stats.OverallStabilityScore =
			round1(sum / float64(len(stats.ExecutionHistory)))
	}

	return stats
}

// scenarioStabilities computes per-scenario metrics ordered by most
// recent execution.
func scenarioStabilities(
	results []store.ScenarioResult,
) []ScenarioStability {
	grouped := groupByScenario(results)
	out := make([]ScenarioStability, 0, len(grouped))

	for _, key := range sortedScenarioKeys(grouped) {
		history := dedupe.History(grouped[key])
		if len(history) == 0 {
			continue
		}

		window := history
		if len(window) > stabilityWindow {
			window = window[:stabilityWindow]
		}

		passed := 0
		for _, r := range window {
			if r.Passed() {
				passed++
			}
		}

		out = append(out, ScenarioStability{
			ScenarioName:    shortenName(key.scenarioName),
			FeatureName:     shortenName(key.featureFile),
			StabilityScore:  round1(float64(passed) * 100 / float64(len(window))),
			TotalRuns:       len(history),
			LastStatus:      history[0].Status,
			Trend:           trendLabel(window),
			LastRunAt:       history[0].Timestamp,
			rawScenarioName: key.scenarioName,
			rawFeatureFile:  key.featureFile,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastRunAt.After(out[j].LastRunAt)
	})

	return out
}

// trendLabel classifies a scenario from the failures among its most
// recent results: none is stable, two or more is unstable, exactly one
// is improving. Too little history defaults to stable.
func trendLabel(window []store.ScenarioResult) string {
	if len(window) < 2 {
		return TrendStable
	}

	recent := window
	if len(recent) > trendWindow {
		recent = recent[:trendWindow]
	}

	failures := 0
	for _, r := range recent {
		if r.Failed() {
			failures++
		}
	}

	switch {
	case failures == 0:
		return TrendStable
	case failures >= 2:
		return TrendUnstable
	default:
		return TrendImproving
	}
}

// ExecutionHistory computes per-run pass rates over the most recent
// distinct run ids, oldest first. Each run's rate counts one
// deduplicated result per scenario.
func ExecutionHistory(results []store.ScenarioResult) []BuildMetric {
	byRun := make(map[int][]store.ScenarioResult)
	for _, r := range results {
		if r.ScenarioName == "" {
			continue
		}

		byRun[r.RunID] = append(byRun[r.RunID], r)
	}

	runIDs := make([]int, 0, len(byRun))
	for id := range byRun {
		runIDs = append(runIDs, id)
	}

	sort.Ints(runIDs)

	if len(runIDs) > historyWindow {
		runIDs = runIDs[len(runIDs)-historyWindow:]
	}

	history := make([]BuildMetric, 0, len(runIDs))

	for _, runID := range runIDs {
		canonical := dedupe.PerRun(byRun[runID])
		if len(canonical) == 0 {
			continue
		}

		passed := 0
		for _, r := range canonical {
			if r.Passed() {
				passed++
			}
		}

		history = append(history, BuildMetric{
			RunID:    runID,
			PassRate: round1(float64(passed) * 100 / float64(len(canonical))),
		})
	}

	return history
}

// PaginatedStability computes the filtered, paginated scenario listing.
// Search matches scenario or feature names case-insensitively; flakyOnly
// drops scenarios with a perfect score. Scenarios are ordered least
// stable first.
func PaginatedStability(
	results []store.ScenarioResult,
	page, size int,
	search string,
	flakyOnly bool,
) *PagedStability {
	if size <= 0 {
		size = 20
	}

	resp := &PagedStability{
		Scenarios:   []ScenarioStability{},
		CurrentPage: page,
		PageSize:    size,
	}

	all := scenarioStabilities(results)
	needle := strings.ToLower(search)

	filtered := make([]ScenarioStability, 0, len(all))

	for _, m := range all {
		if flakyOnly && m.StabilityScore >= 100 {
			continue
		}

		if needle != "" &&
			!strings.Contains(strings.ToLower(m.rawScenarioName), needle) &&
			!strings.Contains(strings.ToLower(m.rawFeatureFile), needle) {
			continue
		}

		filtered = append(filtered, m)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].StabilityScore != filtered[j].StabilityScore {
			return filtered[i].StabilityScore < filtered[j].StabilityScore
		}

		return filtered[i].LastRunAt.After(filtered[j].LastRunAt)
	})

	resp.TotalCount = len(filtered)
	resp.TotalPages = (len(filtered) + size - 1) / size

	from := page * size
	if from >= len(filtered) {
		return resp
	}

	to := from + size
	if to > len(filtered) {
		to = len(filtered)
	}

	resp.Scenarios = filtered[from:to]

	return resp
}

func limitScenarios(
	in []ScenarioStability, limit int,
) []ScenarioStability {
	if len(in) > limit {
		return in[:limit]
	}

	return in
}
