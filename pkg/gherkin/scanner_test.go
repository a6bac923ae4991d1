package gherkin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/gherkin"
)

const loginFeature = `Feature: Login

  # Smoke coverage for the login page.
  Scenario: Successful login
    Given a registered user
    When the user signs in
    Then the dashboard is shown

  Scenario: Wrong password
    Given a registered user
    When the user signs in with a wrong password
    Then an error message is shown
`

const outlineFeature = `Feature: Checkout

  Scenario Outline: Pay with <method>
    Given a cart with items
    When the user pays with <method>
    Then the order is confirmed

    Examples:
      | method |
      | card   |
      | wallet |
      | cash   |

  Scenario: Empty cart
    Given an empty cart
    Then checkout is disabled
`

func TestScanFeature_ScenariosAndSteps(t *testing.T) {
	result := gherkin.ScanFeature("login.feature", []byte(loginFeature))

	assert.Equal(t, 2, result.Scenarios)
	assert.Equal(t, 0, result.Outlines)
	assert.Equal(t, 2, result.TestInstances)
	assert.Equal(t, 6, result.Steps)

	require.Len(t, result.ScenarioItems, 2)
	assert.Equal(t, "Successful login", result.ScenarioItems[0].Name)
	assert.Equal(t, "login.feature", result.ScenarioItems[0].FeatureFile)

	// Shared "Given a registered user" counted once per occurrence.
	assert.Equal(t, 2, result.StepCounts["a registered user"])
}

func TestScanFeature_OutlineExamplesRows(t *testing.T) {
	result := gherkin.ScanFeature("checkout.feature", []byte(outlineFeature))

	assert.Equal(t, 1, result.Scenarios)
	assert.Equal(t, 1, result.Outlines)

	// Three example rows (header excluded) plus the plain scenario.
	assert.Equal(t, 4, result.TestInstances)

	require.Len(t, result.OutlineItems, 1)
	assert.Equal(t, "Pay with <method>", result.OutlineItems[0].Name)
}

func TestScanFeature_CommentsAndBlanksIgnored(t *testing.T) {
	content := []byte("# just a comment\n\n  # another\n")
	result := gherkin.ScanFeature("empty.feature", content)

	assert.Zero(t, result.Scenarios)
	assert.Zero(t, result.Steps)
	assert.Zero(t, result.TestInstances)
}

func TestScanFeature_ExamplesBlockEndsOnNonTableLine(t *testing.T) {
	content := []byte(`Scenario Outline: Sizes
    Given a size <s>

    Examples:
      | s |
      | 1 |
    Scenario: After the table
      Given something
`)

	result := gherkin.ScanFeature("sizes.feature", content)

	assert.Equal(t, 1, result.Outlines)
	assert.Equal(t, 1, result.Scenarios)

	// One example row plus the trailing scenario.
	assert.Equal(t, 2, result.TestInstances)
}

func TestInventory_MergeAndReuseROI(t *testing.T) {
	inv := gherkin.NewInventory()

	inv.Merge("login.feature", gherkin.ScanFeature("login.feature", []byte(loginFeature)))
	inv.Merge("checkout.feature", gherkin.ScanFeature("checkout.feature", []byte(outlineFeature)))

	assert.Equal(t, 2, inv.Features)
	assert.Equal(t, 2, inv.CoveredFeatures)
	assert.Equal(t, 3, inv.Scenarios)
	assert.Equal(t, 1, inv.Outlines)
	assert.Equal(t, 6, inv.TestInstances)
	assert.Equal(t, 11, inv.StepInstances)

	// "a registered user" repeats, every other step is unique.
	assert.Equal(t, 10, inv.UniqueSteps)

	roi := inv.ReuseROI()
	assert.InDelta(t, 100*(1-10.0/11.0), roi, 0.001)
}

func TestInventory_EmptyROI(t *testing.T) {
	inv := gherkin.NewInventory()
	assert.Zero(t, inv.ReuseROI())
}

func TestInventory_UncoveredFeature(t *testing.T) {
	inv := gherkin.NewInventory()
	inv.Merge("todo.feature", gherkin.ScanFeature("todo.feature", []byte("Feature: Todo\n")))

	assert.Equal(t, 1, inv.Features)
	assert.Zero(t, inv.CoveredFeatures)
}
