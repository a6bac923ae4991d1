package gherkin

// Inventory aggregates scan results across all feature files of a
// branch.
type Inventory struct {
	Features int

	// CoveredFeatures counts feature files declaring at least one
	// scenario or outline.
	CoveredFeatures int

	FeatureFiles  []string
	Scenarios     int
	Outlines      int
	TestInstances int
	StepInstances int
	UniqueSteps   int
	ScenarioItems []Item
	OutlineItems  []Item
	StepCounts    map[string]int
}

// NewInventory returns an empty inventory ready to merge scans into.
func NewInventory() *Inventory {
	return &Inventory{
		StepCounts: make(map[string]int),
	}
}

// Merge folds one file's scan into the inventory.
func (inv *Inventory) Merge(featureFile string, result *ScanResult) {
	inv.Features++
	if result.Scenarios+result.Outlines > 0 {
		inv.CoveredFeatures++
	}

	inv.FeatureFiles = append(inv.FeatureFiles, featureFile)
	inv.Scenarios += result.Scenarios
	inv.Outlines += result.Outlines
	inv.TestInstances += result.TestInstances
	inv.mergeSteps(result)
	inv.ScenarioItems = append(inv.ScenarioItems, result.ScenarioItems...)
	inv.OutlineItems = append(inv.OutlineItems, result.OutlineItems...)
}

func (inv *Inventory) mergeSteps(result *ScanResult) {
	inv.StepInstances += result.Steps

	for text, count := range result.StepCounts {
		if inv.StepCounts[text] == 0 {
			inv.UniqueSteps++
		}

		inv.StepCounts[text] += count
	}
}

// ReuseROI reports how much of the step volume is reuse of existing
// definitions: 100 * (1 - unique/total). Zero instances yields zero.
func (inv *Inventory) ReuseROI() float64 {
	if inv.StepInstances == 0 {
		return 0
	}

	return 100 * (1 - float64(inv.UniqueSteps)/float64(inv.StepInstances))
}
