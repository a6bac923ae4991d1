package metrics

import (
	"sort"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

// hotspotWindow is how many deduplicated recent executions feed a
// scenario's average duration.
const hotspotWindow = 10

// GlobalAverageDuration is the mean duration across the whole scope,
// with missing durations counted as zero. It is the hotspot baseline for
// scenarios without a configured threshold.
func GlobalAverageDuration(results []store.ScenarioResult) float64 {
	if len(results) == 0 {
		return 0
	}

	var sum int64

	for _, r := range results {
		if r.DurationMillis != nil {
			sum += *r.DurationMillis
		}
	}

	return float64(sum) / float64(len(results))
}

// Hotspots computes per-scenario duration profiles and flags scenarios
// whose recent average exceeds the applicable baseline: the configured
// expected duration when present, otherwise the global average. All
// scenarios are returned, slowest first.
func Hotspots(
	results []store.ScenarioResult,
	configs []store.ScenarioConfig,
) []ExecutionHotspot {
	globalAvg := GlobalAverageDuration(results)

	thresholds := make(map[scenarioKey]int64, len(configs))
	for _, c := range configs {
		key := scenarioKey{
			featureFile:  c.FeatureFile,
			scenarioName: c.ScenarioName,
		}
		thresholds[key] = c.ExpectedDurationMillis
	}

	grouped := groupByScenario(results)
	hotspots := make([]ExecutionHotspot, 0, len(grouped))

	for _, key := range sortedScenarioKeys(grouped) {
		recent := dedupe.History(grouped[key])
		if len(recent) > hotspotWindow {
			recent = recent[:hotspotWindow]
		}

		if len(recent) == 0 {
			continue
		}

		var (
			sum int64
			max int64
		)

		history := make([]RunHistoryPoint, 0, len(recent))

		for _, r := range recent {
			var duration int64
			if r.DurationMillis != nil {
				duration = *r.DurationMillis
			}

			sum += duration
			if duration > max {
				max = duration
			}

			history = append(history, RunHistoryPoint{
				Status:         r.Status,
				DurationMillis: duration,
				Timestamp:      r.Timestamp,
			})
		}

		avg := float64(sum) / float64(len(recent))

		var expected *int64

		isHotspot := avg > globalAvg

		if threshold, ok := thresholds[key]; ok && threshold > 0 {
			t := threshold
			expected = &t
			isHotspot = avg > float64(threshold)
		}

		hotspots = append(hotspots, ExecutionHotspot{
			FeatureFile:            key.featureFile,
			ScenarioName:           key.scenarioName,
			AverageDurationMillis:  round1(avg),
			MaxDurationMillis:      max,
			ExpectedDurationMillis: expected,
			IsHotspot:              isHotspot,
			RecentHistory:          history,
		})
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].AverageDurationMillis >
			hotspots[j].AverageDurationMillis
	})

	return hotspots
}
