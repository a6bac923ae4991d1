package gherkin

import (
	"context"
	"fmt"

	"github.com/featurepulse/featurepulse/pkg/locker"
	"github.com/featurepulse/featurepulse/pkg/workspace"
	"github.com/sirupsen/logrus"
)

// Extractor builds branch-level feature inventories from committed
// checkouts. Scans hold the checkout's lock so concurrent git activity
// on the same path cannot interleave.
type Extractor interface {
	Inventory(ctx context.Context, path, branch string) (*Inventory, error)
}

// Compile-time interface check.
var _ Extractor = (*extractor)(nil)

type extractor struct {
	log    logrus.FieldLogger
	ws     workspace.Workspace
	locker locker.Locker
}

// NewExtractor creates an Extractor over the given workspace.
func NewExtractor(
	log logrus.FieldLogger, ws workspace.Workspace, lk locker.Locker,
) Extractor {
	return &extractor{
		log:    log.WithField("component", "gherkin_extractor"),
		ws:     ws,
		locker: lk,
	}
}

// Inventory reads every committed .feature blob on the branch and merges
// the per-file scans into one inventory.
func (e *extractor) Inventory(
	ctx context.Context, path, branch string,
) (*Inventory, error) {
	mu := e.locker.Acquire(path)
	mu.Lock()
	defer mu.Unlock()

	resolved, err := e.ws.ResolveBranch(path, branch)
	if err != nil {
		return nil, fmt.Errorf("resolving branch: %w", err)
	}

	blobs, err := e.ws.FeatureFiles(ctx, path, resolved)
	if err != nil {
		return nil, fmt.Errorf("listing feature files: %w", err)
	}

	inv := NewInventory()

	for _, blob := range blobs {
		inv.Merge(blob.Path, ScanFeature(blob.Path, blob.Content))
	}

	e.log.WithFields(logrus.Fields{
		"path":     path,
		"branch":   resolved,
		"features": inv.Features,
		"steps":    inv.StepInstances,
	}).Debug("Scanned feature inventory")

	return inv, nil
}
