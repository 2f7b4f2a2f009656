package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"amesreg/internal/format"
	"amesreg/internal/report"
	"amesreg/internal/store"
)

var runsFlags struct {
	dbPath    string
	outFormat string
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis runs",
	RunE:  runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsFlags.dbPath, "db", store.DefaultDBPath, "SQLite store path")
	f.StringVar(&runsFlags.outFormat, "format", "ascii", "Output format (ascii, markdown)")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(runsFlags.outFormat)
	if err != nil {
		return err
	}
	s, err := store.Open(runsFlags.dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no stored runs")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.FormatRuns(runs, mode))
	return nil
}
