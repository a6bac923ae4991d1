// Package gherkin provides a line-oriented scanner for Gherkin feature
// text. It deliberately avoids a full grammar: the counters only need
// keyword prefixes, and malformed lines are skipped rather than failing
// the scan.
package gherkin

import (
	"bufio"
	"bytes"
	"strings"
)

// Step keywords that begin a step line. The trailing space matters:
// "Given " is a step, "GivenName:" is not.
var stepKeywords = []string{"Given ", "When ", "Then ", "And ", "But "}

// Item is one named scenario or outline and the feature file holding it.
type Item struct {
	Name        string `json:"name"`
	FeatureFile string `json:"feature_file"`
}

// ScanResult holds the counters extracted from one feature file.
type ScanResult struct {
	Scenarios     int
	Outlines      int
	TestInstances int
	Steps         int
	ScenarioItems []Item
	OutlineItems  []Item
	StepCounts    map[string]int
}

// ScanFeature scans one feature file's content. Each Scenario/Example
// counts as one test instance; Scenario Outlines contribute one instance
// per Examples-table row after the header. Step lines feed the step
// usage frequency map with their keyword stripped.
func ScanFeature(featureFile string, content []byte) *ScanResult {
	result := &ScanResult{
		StepCounts: make(map[string]int),
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))

	inExamples := false
	headerSkipped := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Scenario Outline:"),
			strings.HasPrefix(line, "Scenario Template:"):
			result.Outlines++
			result.OutlineItems = append(result.OutlineItems, Item{
				Name:        nameAfterColon(line),
				FeatureFile: featureFile,
			})
			inExamples = false

		case strings.HasPrefix(line, "Scenario:"),
			strings.HasPrefix(line, "Example:"):
			result.Scenarios++
			result.TestInstances++
			result.ScenarioItems = append(result.ScenarioItems, Item{
				Name:        nameAfterColon(line),
				FeatureFile: featureFile,
			})
			inExamples = false

		case strings.HasPrefix(line, "Examples:"),
			strings.HasPrefix(line, "Scenarios:"):
			inExamples = true
			headerSkipped = false

		case isStepLine(line):
			result.Steps++
			result.StepCounts[stripStepKeyword(line)]++

		case inExamples && strings.HasPrefix(line, "|"):
			if !headerSkipped {
				headerSkipped = true
			} else {
				result.TestInstances++
			}

		case inExamples:
			// First non-table, non-blank line ends the Examples block.
			inExamples = false
		}
	}

	return result
}

func isStepLine(line string) bool {
	for _, kw := range stepKeywords {
		if strings.HasPrefix(line, kw) {
			return true
		}
	}

	return false
}

// stripStepKeyword removes the leading step keyword so "Given a user"
// and "And a user" count as the same step definition.
func stripStepKeyword(line string) string {
	for _, kw := range stepKeywords {
		if strings.HasPrefix(line, kw) {
			return strings.TrimSpace(strings.TrimPrefix(line, kw))
		}
	}

	return strings.TrimSpace(line)
}

func nameAfterColon(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}

	return line
}
