// Package main provides the goldenthread binary entry point.
// Goldenthread validates that source code is traceable to the requirements
// registry: every requirement maps to code, every symbol maps back, and the
// registry chain from business requirement to evidence is intact.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	// Register language parsers via init()
	_ "github.com/c360studio/goldenthread/extract/golang"
	_ "github.com/c360studio/goldenthread/extract/python"
	_ "github.com/c360studio/goldenthread/extract/ts"

	"github.com/spf13/cobra"

	"github.com/c360studio/goldenthread/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "goldenthread"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	repoPath   string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "goldenthread",
		Short: "Requirements traceability validator",
		Long: `Goldenthread validates the golden thread: the unbroken chain from
business requirements through code symbols to verification evidence.

It extracts symbols from Go, Python, and TypeScript sources, loads each
service's .golden-thread.yaml manifest, resolves every referenced ID
against the requirements registry, and reports coverage gaps, orphaned
symbols, and broken registry links.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.repoPath, "repo", "", "Repository path to validate")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(validateCmd(flags))
	cmd.AddCommand(orphansCmd(flags))
	cmd.AddCommand(watchCmd(flags))
	cmd.AddCommand(cacheCmd(flags))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setup configures logging and loads the layered configuration.
func setup(flags *rootFlags) (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(flags.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if flags.repoPath != "" {
		cfg.Repo.Path = flags.repoPath
	}

	info, err := os.Stat(cfg.Repo.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat repo path: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("not a directory: %s", cfg.Repo.Path)
	}

	return cfg, logger, nil
}
