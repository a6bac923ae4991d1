package metrics

import (
	"sort"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

const (
	// riskWindow caps how much history feeds the failure probability.
	riskWindow = 20

	// riskListLimit bounds the reported list.
	riskListLimit = 10
)

// Risk level thresholds on the smoothed failure probability.
const (
	riskHighThreshold   = 0.6
	riskMediumThreshold = 0.3
)

// Risk level labels.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

// Risk computes a Laplace-smoothed failure probability per scenario over
// its most recent results: (failures + 1) / (n + 2). Smoothing keeps the
// probability strictly inside (0,1) so a spotless history still carries
// a small non-zero risk.
func Risk(results []store.ScenarioResult) []RiskPrediction {
	grouped := groupByScenario(results)
	predictions := make([]RiskPrediction, 0, len(grouped))

	for _, key := range sortedScenarioKeys(grouped) {
		history := dedupe.History(grouped[key])
		if len(history) > riskWindow {
			history = history[:riskWindow]
		}

		if len(history) == 0 {
			continue
		}

		failures := 0

		for _, r := range history {
			if r.Failed() {
				failures++
			}
		}

		probability := float64(failures+1) / float64(len(history)+2)

		predictions = append(predictions, RiskPrediction{
			FeatureFile:        key.featureFile,
			ScenarioName:       key.scenarioName,
			FailureProbability: probability,
			RiskLevel:          riskLevel(probability),
			SampleCount:        len(history),
		})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].FailureProbability >
			predictions[j].FailureProbability
	})

	if len(predictions) > riskListLimit {
		predictions = predictions[:riskListLimit]
	}

	return predictions
}

func riskLevel(probability float64) string {
	switch {
	case probability >= riskHighThreshold:
		return RiskHigh
	case probability >= riskMediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
