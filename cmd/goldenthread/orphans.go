package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/goldenthread/report"
	"github.com/c360studio/goldenthread/trace"
	"github.com/c360studio/goldenthread/validate"
)

func orphansCmd(flags *rootFlags) *cobra.Command {
	var serviceName string

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report orphaned symbols and stale manifest entries without touching the registry",
		Long: `Orphans runs structure-only validation: symbol extraction and the
code/manifest diff, with no registry lookups. Useful offline and as a fast
pre-commit check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}

			services, err := selectServices(cfg.Repo.Path, serviceName, serviceName == "")
			if err != nil {
				return err
			}

			// No registry client: consistency checks are skipped and the
			// exit code stays 0 regardless of findings.
			runner := &validate.Runner{
				IgnorePatterns: cfg.Validation.IgnorePatterns,
				Languages:      cfg.Validation.Languages,
				Workers:        cfg.Validation.Workers,
				ToolVersion:    Version,
				Logger:         logger,
			}
			result, err := runner.Run(cmd.Context(), services, false)
			if err != nil {
				return err
			}

			// Only the code/manifest diff belongs in this report; coverage
			// and format findings are the validate command's output.
			result.FilterCodes(trace.CodeOrphanCode, trace.CodeOrphanManifest)
			result.Finalize(false)
			return report.WriteText(os.Stdout, result)
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Check a single service by name")
	return cmd
}
