package metrics

import (
	"math"
	"sort"
)

const (
	// paretoTopShare marks the top 20% of steps by rank.
	paretoTopShare = 0.2

	// paretoCumulativeCap truncates the emitted list once this much of
	// total usage is covered.
	paretoCumulativeCap = 95.0

	// paretoMinEmitted guarantees a useful list even when usage is
	// heavily concentrated in a few steps.
	paretoMinEmitted = 11
)

// Pareto ranks unique steps by usage count and annotates each with the
// running share of total usage. The list is truncated once the
// cumulative percentage exceeds 95% and at least eleven entries have
// been emitted, bounding the payload for very large step libraries.
func Pareto(stepCounts map[string]int) []ParetoStep {
	if len(stepCounts) == 0 {
		return []ParetoStep{}
	}

	type stepUsage struct {
		text  string
		count int
	}

	steps := make([]stepUsage, 0, len(stepCounts))
	total := 0

	for text, count := range stepCounts {
		steps = append(steps, stepUsage{text: text, count: count})
		total += count
	}

	if total == 0 {
		return []ParetoStep{}
	}

	sort.Slice(steps, func(i, j int) bool {
		if steps[i].count != steps[j].count {
			return steps[i].count > steps[j].count
		}

		return steps[i].text < steps[j].text
	})

	topRanks := int(math.Ceil(paretoTopShare * float64(len(steps))))

	out := make([]ParetoStep, 0, len(steps))
	cumulative := 0.0

	for i, s := range steps {
		cumulative += float64(s.count) * 100 / float64(total)
		if cumulative > 100 {
			cumulative = 100
		}

		out = append(out, ParetoStep{
			StepText:          s.text,
			UsageCount:        s.count,
			CumulativePercent: round1(cumulative),
			InTopQuintile:     i < topRanks,
		})

		if cumulative > paretoCumulativeCap && len(out) >= paretoMinEmitted {
			break
		}
	}

	return out
}
