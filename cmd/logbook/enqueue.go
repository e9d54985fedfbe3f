package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/logbook-automation/pkg/export"
	"github.com/logbook-automation/pkg/logbook"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/queue"
	"github.com/logbook-automation/pkg/storage"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <entry.yaml>...",
	Short: "Store entries as queued and hand them to the worker queue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		log := logger.WithComponent("enqueue")

		store, err := storage.New(&cfg.Storage)
		if err != nil {
			return err
		}

		var entries []logbook.Entry
		for _, path := range args {
			entry, err := logbook.LoadEntry(path)
			if err != nil {
				return err
			}
			if err := entry.Validate(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if entry.ID == "" {
				entry.ID = uuid.NewString()
			}
			entries = append(entries, *entry)
		}

		for _, entry := range entries {
			if _, err := store.AddRecord(entry); err != nil {
				return err
			}
			fmt.Printf("queued %s (%s)\n", entry.ID, entry.Date)
		}

		ctx, stop := signalContext()
		defer stop()

		q, err := queue.New(ctx, &cfg.Queue)
		if err != nil {
			log.Warn("Queue unavailable, entries stay queued for the next sweep: %v", err)
			return nil
		}
		defer q.Close()

		sweeper := export.NewSweeper(store, q)
		for _, entry := range entries {
			job, err := sweeper.Dispatch(ctx, entry.ID)
			if err != nil {
				log.Warn("Dispatch of %s failed, the sweep will retry: %v", entry.ID, err)
				continue
			}
			log.Info("Entry %s dispatched as job %s", entry.ID, job.ID)
		}
		return nil
	},
}
