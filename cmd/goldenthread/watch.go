package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/goldenthread/extract"
	"github.com/c360studio/goldenthread/report"
)

func watchCmd(flags *rootFlags) *cobra.Command {
	var (
		serviceName string
		strict      bool
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-validate on file changes",
		Long: `Watch monitors the repository and re-runs validation whenever source
files or manifests change, debouncing bursts of writes into one run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			if strict {
				cfg.Validation.Strict = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			extensions := extract.DefaultRegistry.ListExtensions()
			extensions = append(extensions, ".yaml", ".yml")
			watcher, err := extract.NewWatcher(extract.WatcherConfig{
				Root:          cfg.Repo.Path,
				Extensions:    extensions,
				DebounceDelay: debounce,
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()

			// Structure-only runs: watch gives fast local feedback on
			// extraction, coverage, and orphans without registry traffic.
			runOnce := func() {
				services, err := selectServices(cfg.Repo.Path, serviceName, serviceName == "")
				if err != nil {
					logger.Error("Service discovery failed", "error", err)
					return
				}
				result, err := runValidation(ctx, cfg, logger, nil, services)
				if err != nil {
					logger.Error("Validation run failed", "error", err)
					return
				}
				if err := report.WriteText(os.Stdout, result); err != nil {
					logger.Error("Failed to render report", "error", err)
				}
			}

			logger.Info("Watching for changes", "root", cfg.Repo.Path)
			runOnce()

			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(os.Stderr, "watch stopped")
					return nil
				case changed, ok := <-watcher.Changes():
					if !ok {
						return nil
					}
					logger.Info("Changes detected", "files", len(changed))
					runOnce()
				}
			}
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Watch a single service by name")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat advisory diagnostics as blocking")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Debounce window for change batches (default 250ms)")
	return cmd
}
