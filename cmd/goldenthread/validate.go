package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/c360studio/goldenthread/config"
	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/registry"
	"github.com/c360studio/goldenthread/report"
	"github.com/c360studio/goldenthread/trace"
	"github.com/c360studio/goldenthread/validate"
)

func validateCmd(flags *rootFlags) *cobra.Command {
	var (
		serviceName string
		all         bool
		strict      bool
		outputPath  string
		pushGateway string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate traceability for one service or the whole repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			if strict {
				cfg.Validation.Strict = true
			}
			if outputPath != "" {
				cfg.Reports.Output = outputPath
			}
			if pushGateway != "" {
				cfg.Reports.PushGateway = pushGateway
			}

			services, err := selectServices(cfg.Repo.Path, serviceName, all)
			if err != nil {
				return err
			}

			client, err := buildRegistryClient(cfg, logger)
			if err != nil {
				return err
			}

			result, err := runValidation(cmd.Context(), cfg, logger, client, services)
			if err != nil {
				return err
			}
			return emit(cfg, logger, result)
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Validate a single service by name")
	cmd.Flags().BoolVar(&all, "all", false, "Validate every discovered service")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat advisory diagnostics as blocking")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the JSON report to this path")
	cmd.Flags().StringVar(&pushGateway, "push-gateway", "", "Prometheus push gateway URL for run metrics")

	return cmd
}

// selectServices resolves the --service/--all flags to concrete targets.
func selectServices(root, serviceName string, all bool) ([]validate.Service, error) {
	services, err := validate.Discover(root)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("no %s manifests found under %s", manifest.DefaultFilename, root)
	}

	if serviceName == "" || all {
		return services, nil
	}
	for _, svc := range services {
		if svc.Name == serviceName {
			return []validate.Service{svc}, nil
		}
	}
	return nil, fmt.Errorf("service %q not found (discovered %d services)", serviceName, len(services))
}

// buildRegistryClient wires the cache and client from config. A missing
// token is an immediate, actionable error rather than a per-ID failure.
func buildRegistryClient(cfg *config.Config, logger *slog.Logger) (*registry.Client, error) {
	var cache *registry.Cache
	if cfg.Registry.Cache.Enabled {
		cache = registry.NewCache(cfg.CacheDir(), cfg.Registry.Cache.TTL)
	}

	client, err := registry.NewClient(registry.Config{
		BaseURL:           cfg.Registry.BaseURL,
		Token:             cfg.Registry.Token,
		APIVersion:        cfg.Registry.APIVersion,
		Timeout:           cfg.Registry.Timeout,
		Databases:         cfg.TypedDatabases(),
		RequestsPerSecond: cfg.Registry.RequestsPerSecond,
	}, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("configure registry client: %w", err)
	}
	return client, nil
}

// runValidation executes one run under the configured deadline.
func runValidation(ctx context.Context, cfg *config.Config, logger *slog.Logger, client *registry.Client, services []validate.Service) (*trace.ValidationResult, error) {
	if cfg.Validation.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Validation.Timeout)
		defer cancel()
	}

	runner := &validate.Runner{
		Registry:       client,
		IgnorePatterns: cfg.Validation.IgnorePatterns,
		Languages:      cfg.Validation.Languages,
		Workers:        cfg.Validation.Workers,
		ToolVersion:    Version,
		Logger:         logger,
	}

	result, err := runner.Run(ctx, services, cfg.Validation.Strict)
	if err != nil {
		if errors.Is(err, registry.ErrUnavailable) {
			return nil, fmt.Errorf("registry unavailable, failing closed: %w", err)
		}
		return nil, err
	}
	return result, nil
}

// emit writes the report everywhere configured and sets the exit code.
func emit(cfg *config.Config, logger *slog.Logger, result *trace.ValidationResult) error {
	if err := report.WriteText(os.Stdout, result); err != nil {
		return err
	}
	if cfg.Reports.Output != "" {
		path := cfg.Reports.Output
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Repo.Path, path)
		}
		if err := report.WriteJSONFile(path, result); err != nil {
			return err
		}
		logger.Info("Report written", "path", path)
	}
	if cfg.Reports.PushGateway != "" {
		if err := report.PushMetrics(cfg.Reports.PushGateway, result); err != nil {
			logger.Warn("Failed to push metrics", "error", err)
		}
	}

	if !result.Pass {
		return fmt.Errorf("validation failed: %d blocking diagnostic(s)", result.BlockingCount())
	}
	return nil
}
