package workspace_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/featurepulse/featurepulse/pkg/workspace"
)

func newTestWorkspace(root string) workspace.Workspace {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return workspace.New(log, &config.WorkspaceConfig{Root: root})
}

func TestCheckoutPath_ExplicitLocalPathWins(t *testing.T) {
	ws := newTestWorkspace("/work")

	path := ws.CheckoutPath("https://example.com/repo", "/srv/checkouts/repo")
	assert.Equal(t, "/srv/checkouts/repo", path)
}

func TestCheckoutPath_DerivedFromRepoID(t *testing.T) {
	ws := newTestWorkspace("/work")

	path := ws.CheckoutPath("https://example.com/acme/shop", "")
	assert.Equal(t, filepath.Join("/work", "example.com_acme_shop"), path)
}

func TestFeatureFiles_MissingCheckout(t *testing.T) {
	ws := newTestWorkspace(t.TempDir())

	_, err := ws.FeatureFiles(
		context.Background(), filepath.Join(t.TempDir(), "absent"), "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening repository")
}

func TestResolveBranch_ExplicitBranchPassesThrough(t *testing.T) {
	ws := newTestWorkspace("/work")

	branch, err := ws.ResolveBranch("/nonexistent", "develop")
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
}
