package metrics

import (
	"sort"

	"github.com/featurepulse/featurepulse/pkg/telemetry/dedupe"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
)

const (
	// fragilityWindow caps how far back the weighted score looks.
	fragilityWindow = 50

	// fragilityMinRuns is the minimum history for a meaningful score.
	fragilityMinRuns = 3

	// fragilityThreshold filters out statistically quiet scenarios.
	fragilityThreshold = 5.0

	// fragilityListLimit bounds the reported list.
	fragilityListLimit = 5
)

// Fragility scores scenarios by recency-weighted failure propensity.
// The i-th most recent result carries weight 1/(i+1), so a failure
// yesterday moves the score far more than one fifty runs ago. Scenarios
// with fewer than three deduplicated observations are omitted entirely.
func Fragility(results []store.ScenarioResult) []FragileScenario {
	grouped := groupByScenario(results)
	fragile := make([]FragileScenario, 0, len(grouped))

	for _, key := range sortedScenarioKeys(grouped) {
		history := dedupe.History(grouped[key])
		if len(history) > fragilityWindow {
			history = history[:fragilityWindow]
		}

		if len(history) < fragilityMinRuns {
			continue
		}

		var weightedScore, totalWeight float64

		failures := 0

		for i, r := range history {
			weight := 1.0 / float64(i+1)
			totalWeight += weight

			if r.Failed() {
				weightedScore += 100 * weight
				failures++
			}
		}

		score := weightedScore / totalWeight
		if score <= fragilityThreshold {
			continue
		}

		fragile = append(fragile, FragileScenario{
			FeatureFile:    key.featureFile,
			ScenarioName:   key.scenarioName,
			FragilityScore: round1(score),
			FailureCount:   failures,
		})
	}

	sort.SliceStable(fragile, func(i, j int) bool {
		return fragile[i].FragilityScore > fragile[j].FragilityScore
	})

	if len(fragile) > fragilityListLimit {
		fragile = fragile[:fragilityListLimit]
	}

	return fragile
}
