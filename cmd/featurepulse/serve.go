package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/featurepulse/featurepulse/pkg/api"
	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/featurepulse/featurepulse/pkg/gherkin"
	"github.com/featurepulse/featurepulse/pkg/locker"
	"github.com/featurepulse/featurepulse/pkg/provider"
	"github.com/featurepulse/featurepulse/pkg/scheduler"
	"github.com/featurepulse/featurepulse/pkg/telemetry"
	"github.com/featurepulse/featurepulse/pkg/telemetry/ingest"
	"github.com/featurepulse/featurepulse/pkg/telemetry/store"
	"github.com/featurepulse/featurepulse/pkg/workspace"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the telemetry service",
	Long: `Start the featurepulse HTTP API and, when enabled, the background
sweep that keeps repository telemetry in sync with the CI provider.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	svc, err := buildService(cfg)
	if err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting telemetry service: %w", err)
	}

	srv := api.NewServer(log, &cfg.Server, svc)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	var sched scheduler.Scheduler

	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(log, cfg, svc)
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
	}

	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down")
	cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.WithError(err).Warn("Scheduler stop error")
		}
	}

	if err := srv.Stop(); err != nil {
		log.WithError(err).Warn("API server stop error")
	}

	if err := svc.Stop(); err != nil {
		return fmt.Errorf("stopping telemetry service: %w", err)
	}

	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// buildService wires the store, provider, workspace and extractor into
// the telemetry facade.
func buildService(cfg *config.Config) (telemetry.Service, error) {
	st := store.NewStore(log, &cfg.Database)
	prov := provider.NewAzure(log, &cfg.Provider)
	ing := ingest.New(log, st, prov)
	ws := workspace.New(log, &cfg.Workspace)
	ext := gherkin.NewExtractor(log, ws, locker.New())

	svc, err := telemetry.NewService(log, cfg, st, ing, ext, ws)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry service: %w", err)
	}

	return svc, nil
}
