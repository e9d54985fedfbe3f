package main

import (
	"github.com/spf13/cobra"

	"github.com/logbook-automation/pkg/export"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/queue"
	"github.com/logbook-automation/pkg/storage"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued entries until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if err := cfg.ValidateCredentials(); err != nil {
			return err
		}
		log := logger.WithComponent("worker")

		ctx, stop := signalContext()
		defer stop()

		store, err := storage.New(&cfg.Storage)
		if err != nil {
			return err
		}

		q, err := queue.New(ctx, &cfg.Queue)
		if err != nil {
			return err
		}
		defer q.Close()

		notifier, err := export.NewNotifier(&cfg.Export)
		if err != nil {
			return err
		}
		defer notifier.Close()

		orch, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}

		processor := export.NewProcessor(&cfg.Export, store, q, orch, credentials(cfg), notifier)
		window := export.NewWindow(&cfg.Export.Schedule)
		pool := export.NewPool(&cfg.Export, q, processor, store, window)

		sweeper := export.NewSweeper(store, q)
		if _, err := sweeper.Sweep(ctx); err != nil {
			log.Warn("Initial sweep failed: %v", err)
		}
		if err := sweeper.Start(ctx, cfg.Export.SweepSchedule); err != nil {
			return err
		}
		defer sweeper.Stop()

		log.Info("Worker started (concurrency=%d, %d/hour, daily limit %d)",
			cfg.Export.Concurrency, cfg.Export.SubmissionsPerHour, cfg.Export.DailyLimit)
		return pool.Run(ctx)
	},
}
