package metrics

import (
	"math"
	"sort"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

const (
	// anomalyMinSamples is the minimum duration-bearing history for a
	// z-score to be computed.
	anomalyMinSamples = 5

	// anomalyZThreshold flags deviations beyond 1.5 standard deviations.
	anomalyZThreshold = 1.5

	// anomalyListLimit bounds the reported list.
	anomalyListLimit = 10
)

// Anomalies computes the z-score of each scenario's most recent duration
// against its full history and reports the strongest deviations. A zero
// standard deviation suppresses the calculation for that scenario.
func Anomalies(results []store.ScenarioResult) []DurationAnomaly {
	grouped := groupByScenario(results)
	anomalies := make([]DurationAnomaly, 0, len(grouped))

	for _, key := range sortedScenarioKeys(grouped) {
		history := dedupe.History(grouped[key])

		// Newest first; keep only duration-bearing observations.
		durations := make([]int64, 0, len(history))

		for _, r := range history {
			if r.DurationMillis != nil {
				durations = append(durations, *r.DurationMillis)
			}
		}

		if len(durations) < anomalyMinSamples {
			continue
		}

		mean, stddev := meanAndStdDev(durations)
		if stddev == 0 {
			continue
		}

		latest := durations[0]
		z := (float64(latest) - mean) / stddev

		if math.Abs(z) <= anomalyZThreshold {
			continue
		}

		anomalies = append(anomalies, DurationAnomaly{
			FeatureFile:          key.featureFile,
			ScenarioName:         key.scenarioName,
			ZScore:               math.Round(z*100) / 100,
			LatestDurationMillis: latest,
			MeanDurationMillis:   round1(mean),
			StdDevMillis:         round1(stddev),
			SampleCount:          len(durations),
		})
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return math.Abs(anomalies[i].ZScore) > math.Abs(anomalies[j].ZScore)
	})

	if len(anomalies) > anomalyListLimit {
		anomalies = anomalies[:anomalyListLimit]
	}

	return anomalies
}

// meanAndStdDev computes the mean and population standard deviation.
func meanAndStdDev(durations []int64) (mean, stddev float64) {
	var sum float64
	for _, d := range durations {
		sum += float64(d)
	}

	mean = sum / float64(len(durations))

	var variance float64
	for _, d := range durations {
		diff := float64(d) - mean
		variance += diff * diff
	}

	variance /= float64(len(durations))

	return mean, math.Sqrt(variance)
}
