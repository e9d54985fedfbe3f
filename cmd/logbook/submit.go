package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logbook-automation/pkg/logbook"
	"github.com/logbook-automation/pkg/logger"
)

var submitCmd = &cobra.Command{
	Use:   "submit <entry.yaml>",
	Short: "Submit one entry now and print the outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		if err := cfg.ValidateCredentials(); err != nil {
			return err
		}

		entry, err := logbook.LoadEntry(args[0])
		if err != nil {
			return err
		}

		orch, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		log := logger.WithComponent("submit")
		log.Info("Submitting %s", args[0])
		outcome := orch.Run(ctx, *entry, credentials(cfg))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			return err
		}
		if !outcome.Succeeded {
			return fmt.Errorf("submission failed at %s", outcome.FailedState)
		}
		return nil
	},
}
