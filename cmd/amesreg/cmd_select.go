package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"amesreg/internal/analysis"
	"amesreg/internal/format"
	"amesreg/internal/report"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Run bootstrap-lasso selection only and print the survival tally",
	RunE:  runSelect,
}

func init() {
	// Selection shares the run flag surface; modeling flags are ignored.
	selectCmd.Flags().AddFlagSet(runCmd.Flags())
}

func runSelect(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	mode, err := format.ParseMode(runFlags.outFormat)
	if err != nil {
		return err
	}

	sel, summary, err := analysis.Select(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatSelection(sel, summary, mode))
	return nil
}
