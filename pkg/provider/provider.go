// Package provider fetches pipeline runs and test outcomes from the CI
// provider's REST API.
package provider

import (
	"context"
	"time"
)

// Run states and results as reported by the provider.
const (
	RunStateCompleted = "completed"
)

// RunSummary is one pipeline run as listed by the provider.
type RunSummary struct {
	RunID        int
	State        string
	Result       string
	Branch       string
	CreatedDate  time.Time
	FinishedDate time.Time
}

// TestOutcome is one scenario execution inside a run.
type TestOutcome struct {
	TestName       string
	Outcome        string
	DurationMillis *int64
	CompletedDate  time.Time
}

// RepoRef identifies the provider-side pipeline for a repository.
type RepoRef struct {
	Organization string
	Project      string
	PipelineID   string
}

// Provider lists runs and their test outcomes.
type Provider interface {
	// ListRuns returns the most recent runs of the repository's
	// pipeline, up to limit.
	ListRuns(ctx context.Context, ref RepoRef, limit int) ([]RunSummary, error)

	// GetRunTestOutcomes returns the test outcomes recorded for one run.
	GetRunTestOutcomes(ctx context.Context, ref RepoRef, runID int) ([]TestOutcome, error)
}
