package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/featurepulse/featurepulse/pkg/config"
)

var (
	syncLimit int
	syncRepo  string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one ingestion pass for registered repositories",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0,
		"max runs fetched per repository (0 uses the configured default)")
	syncCmd.Flags().StringVar(&syncRepo, "repo", "",
		"sync only this repository URL (default: all)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	svc, err := buildService(cfg)
	if err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting telemetry service: %w", err)
	}

	defer func() {
		if err := svc.Stop(); err != nil {
			log.WithError(err).Warn("Service stop error")
		}
	}()

	repos, err := svc.Repositories(ctx)
	if err != nil {
		return fmt.Errorf("listing repositories: %w", err)
	}

	wanted := ""
	if syncRepo != "" {
		wanted = config.NormalizeRepoID(syncRepo)
	}

	synced := 0

	for _, repo := range repos {
		if wanted != "" && repo.RepoID != wanted {
			continue
		}

		synced++

		inserted, err := svc.SyncRepository(ctx, repo.RepoID, syncLimit)
		if err != nil {
			log.WithError(err).WithField("repo", repo.RepoID).
				Error("Sync failed")

			continue
		}

		log.WithFields(logrus.Fields{
			"repo":     repo.RepoID,
			"inserted": inserted,
		}).Info("Repository synced")
	}

	if syncRepo != "" && synced == 0 {
		return fmt.Errorf("repository %q is not registered", syncRepo)
	}

	return nil
}
