package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"amesreg/internal/dataset"
	"amesreg/internal/format"
	"amesreg/internal/report"
)

var inspectFlags struct {
	data        string
	response    string
	drop        []string
	categorical []string
	outFormat   string
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Ingest the dataset and report column typing without fitting anything",
	RunE:  runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectFlags.data, "data", "", "Housing CSV path")
	f.StringVar(&inspectFlags.response, "response", "SalePrice", "Response column name")
	f.StringSliceVar(&inspectFlags.drop, "drop", nil, "Columns to drop before encoding")
	f.StringSliceVar(&inspectFlags.categorical, "categorical", nil, "Columns to force categorical")
	f.StringVar(&inspectFlags.outFormat, "format", "ascii", "Output format (ascii, markdown)")
	_ = inspectCmd.MarkFlagRequired("data")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(inspectFlags.outFormat)
	if err != nil {
		return err
	}
	table, err := dataset.LoadCSV(inspectFlags.data, dataset.LoadOptions{
		Response:    inspectFlags.response,
		Drop:        inspectFlags.drop,
		Categorical: inspectFlags.categorical,
	})
	if err != nil {
		return err
	}
	design, err := table.Encode()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatDataset(table, design.NCols(), mode))
	return nil
}
