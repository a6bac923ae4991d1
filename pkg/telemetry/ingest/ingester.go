// Package ingest pulls completed pipeline runs from the provider and
// persists their scenario results behind a per-repository checkpoint.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/featurepulse/featurepulse/pkg/provider"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
	"github.com/sirupsen/logrus"
)

// Ingester syncs one repository's telemetry from the provider.
type Ingester interface {
	// SyncRepository ingests all completed runs newer than the
	// repository's checkpoint, up to limit listed runs. It returns the
	// number of newly persisted results.
	SyncRepository(ctx context.Context, repo *store.Repository, limit int) (int, error)
}

// Compile-time interface check.
var _ Ingester = (*ingester)(nil)

type ingester struct {
	log      logrus.FieldLogger
	store    store.Store
	provider provider.Provider
}

// New creates an Ingester.
func New(log logrus.FieldLogger, st store.Store, prov provider.Provider) Ingester {
	return &ingester{
		log:      log.WithField("component", "ingester"),
		store:    st,
		provider: prov,
	}
}

// SyncRepository processes runs oldest first so the checkpoint never
// skips an unprocessed run. A failure fetching one run's outcomes stops
// the sweep at the last fully persisted run; the failed run is retried
// on the next sync.
func (i *ingester) SyncRepository(
	ctx context.Context, repo *store.Repository, limit int,
) (int, error) {
	ref := provider.RepoRef{
		Organization: repo.ProviderOrg,
		Project:      repo.ProviderProject,
		PipelineID:   repo.PipelineID,
	}

	runs, err := i.provider.ListRuns(ctx, ref, limit)
	if err != nil {
		return 0, fmt.Errorf("listing runs for %s: %w", repo.RepoID, err)
	}

	pending := make([]provider.RunSummary, 0, len(runs))

	for _, run := range runs {
		if !strings.EqualFold(run.State, provider.RunStateCompleted) {
			continue
		}

		if run.RunID <= repo.LastSyncedRunID {
			continue
		}

		pending = append(pending, run)
	}

	sort.Slice(pending, func(a, b int) bool {
		return pending[a].RunID < pending[b].RunID
	})

	inserted := 0
	lastPersisted := repo.LastSyncedRunID

	for _, run := range pending {
		outcomes, oErr := i.provider.GetRunTestOutcomes(ctx, ref, run.RunID)
		if oErr != nil {
			i.log.WithError(oErr).WithFields(logrus.Fields{
				"repo": repo.RepoID,
				"run":  run.RunID,
			}).Warn("Failed to fetch run outcomes, stopping sweep")

			break
		}

		results := buildResults(repo.RepoID, run, outcomes)

		n, iErr := i.store.InsertResults(ctx, results)
		if iErr != nil {
			return inserted, fmt.Errorf("persisting run %d: %w", run.RunID, iErr)
		}

		inserted += n
		lastPersisted = run.RunID
	}

	if lastPersisted > repo.LastSyncedRunID {
		if err := i.store.AdvanceCheckpoint(ctx, repo.RepoID, lastPersisted); err != nil {
			return inserted, fmt.Errorf("advancing checkpoint: %w", err)
		}
	}

	i.log.WithFields(logrus.Fields{
		"repo":       repo.RepoID,
		"runs":       len(pending),
		"inserted":   inserted,
		"checkpoint": lastPersisted,
	}).Info("Synced repository telemetry")

	return inserted, nil
}

// buildResults maps provider outcomes onto scenario result rows. Test
// names of the form "<feature path>.<scenario>" split on the last dot.
func buildResults(
	repoID string, run provider.RunSummary, outcomes []provider.TestOutcome,
) []store.ScenarioResult {
	results := make([]store.ScenarioResult, 0, len(outcomes))

	for _, o := range outcomes {
		feature, scenario := splitTestName(o.TestName)

		timestamp := o.CompletedDate
		if timestamp.IsZero() {
			timestamp = run.FinishedDate
		}

		results = append(results, store.ScenarioResult{
			RepoID:         repoID,
			FeatureFile:    feature,
			ScenarioName:   scenario,
			RunID:          run.RunID,
			Branch:         run.Branch,
			Status:         o.Outcome,
			DurationMillis: o.DurationMillis,
			Timestamp:      timestamp,
		})
	}

	return results
}

func splitTestName(name string) (feature, scenario string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "unknown", name
	}

	return name[:idx], name[idx+1:]
}
