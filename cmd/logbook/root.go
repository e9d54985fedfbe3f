package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logbook-automation/pkg/browser"
	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logbook"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/portal"
	"github.com/logbook-automation/pkg/selectors"
	"github.com/logbook-automation/pkg/timing"
)

var (
	configPath string
	logLevel   string
	headful    bool
)

var rootCmd = &cobra.Command{
	Use:   "logbook",
	Short: "Submit internship logbook entries to the campus portal",
	Long: `logbook fills in and submits daily activity entries on the campus
portal through a real browser session. Entries can be submitted directly or
queued for a worker that paces submissions and retries failed runs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or json, defaults to $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().BoolVar(&headful, "headful", false, "show the browser window")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(workerCmd)
}

// setup loads config and initialises logging. It is the first call of every
// command.
func setup() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if headful {
		cfg.Browser.Headless = false
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*selectors.Catalog, error) {
	return selectors.Load(cfg.Automation.CatalogFile)
}

func newOrchestrator(cfg *config.Config) (*portal.Orchestrator, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	launcher, err := browser.New(&cfg.Browser, cfg.Automation.ResolveTimeout)
	if err != nil {
		return nil, err
	}
	return portal.New(cfg, catalog, launcher, timing.New(&cfg.Timing)), nil
}

func credentials(cfg *config.Config) logbook.Credentials {
	return logbook.Credentials{Username: cfg.Portal.Username, Password: cfg.Portal.Password}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
