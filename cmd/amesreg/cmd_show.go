package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"amesreg/internal/format"
	"amesreg/internal/report"
	"amesreg/internal/store"
)

var showFlags struct {
	dbPath    string
	outFormat string
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one stored run: term frequencies and metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	f := showCmd.Flags()
	f.StringVar(&showFlags.dbPath, "db", store.DefaultDBPath, "SQLite store path")
	f.StringVar(&showFlags.outFormat, "format", "ascii", "Output format (ascii, markdown)")
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("run id %q is not a number", args[0])
	}
	mode, err := format.ParseMode(showFlags.outFormat)
	if err != nil {
		return err
	}
	s, err := store.Open(showFlags.dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}
	freqs, err := s.FrequenciesForRun(id)
	if err != nil {
		return err
	}
	metrics, err := s.MetricsForRun(id)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatRunDetail(run, freqs, metrics, mode))
	return nil
}
