package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"amesreg/internal/analysis"
	"amesreg/internal/config"
	"amesreg/internal/format"
	"amesreg/internal/logging"
	"amesreg/internal/report"
	"amesreg/internal/store"
)

var runFlags struct {
	configPath  string
	data        string
	response    string
	drop        []string
	categorical []string
	testFrac    float64
	replicates  int
	threshold   float64
	folds       int
	workers     int
	seed        uint64
	alpha       float64
	noInteract  bool
	outFormat   string
	outFile     string
	save        bool
	dbPath      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full selection, modeling, and evaluation pipeline",
	Long: `Run holds out a test split, tallies bootstrap-lasso survival frequencies
on the training rows, refits OLS on the surviving terms, applies the log
transform when the Box-Cox interval admits it, screens pairwise
interactions, and reports held-out error.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.configPath, "config", "", "YAML config file (flags override it)")
	f.StringVar(&runFlags.data, "data", "", "Housing CSV path")
	f.StringVar(&runFlags.response, "response", "", "Response column name")
	f.StringSliceVar(&runFlags.drop, "drop", nil, "Columns to drop before encoding (IDs, leakage)")
	f.StringSliceVar(&runFlags.categorical, "categorical", nil, "Columns to force categorical")
	f.Float64Var(&runFlags.testFrac, "test-fraction", 0.2, "Held-out fraction of rows")
	f.IntVar(&runFlags.replicates, "replicates", 500, "Bootstrap replicates (B)")
	f.Float64Var(&runFlags.threshold, "threshold", 0.8, "Survival frequency needed for selection")
	f.IntVar(&runFlags.folds, "cv-folds", 10, "CV folds per replicate")
	f.IntVar(&runFlags.workers, "workers", 0, "Parallel replicate fits (0 = GOMAXPROCS)")
	f.Uint64Var(&runFlags.seed, "seed", 1, "Root RNG seed")
	f.Float64Var(&runFlags.alpha, "alpha", 0.05, "Significance level for interaction F-tests")
	f.BoolVar(&runFlags.noInteract, "no-interactions", false, "Skip pairwise interaction screening")
	f.StringVar(&runFlags.outFormat, "format", "ascii", "Report format (ascii, markdown)")
	f.StringVar(&runFlags.outFile, "out", "", "Write the report to a file instead of stdout")
	f.BoolVar(&runFlags.save, "save", false, "Persist the run to the local store")
	f.StringVar(&runFlags.dbPath, "db", store.DefaultDBPath, "SQLite store path")
}

// buildConfig layers run flags over the config file (or defaults).
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	var err error
	if runFlags.configPath != "" {
		cfg, err = config.Load(runFlags.configPath)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = config.Default()
	}

	set := cmd.Flags().Changed
	if set("data") {
		cfg.Dataset.Path = runFlags.data
	}
	if set("response") {
		cfg.Dataset.Response = runFlags.response
	}
	if set("drop") {
		cfg.Dataset.Drop = runFlags.drop
	}
	if set("categorical") {
		cfg.Dataset.Categorical = runFlags.categorical
	}
	if set("test-fraction") {
		cfg.Dataset.TestFrac = runFlags.testFrac
	}
	if set("replicates") {
		cfg.Selection.Replicates = runFlags.replicates
	}
	if set("threshold") {
		cfg.Selection.Threshold = runFlags.threshold
	}
	if set("cv-folds") {
		cfg.Selection.Folds = runFlags.folds
	}
	if set("workers") {
		cfg.Selection.Workers = runFlags.workers
	}
	if set("seed") {
		cfg.Seed = runFlags.seed
	}
	if set("alpha") {
		cfg.Modeling.Alpha = runFlags.alpha
	}
	if set("no-interactions") {
		cfg.Modeling.Interactions = !runFlags.noInteract
	}
	return cfg, cfg.Validate()
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	mode, err := format.ParseMode(runFlags.outFormat)
	if err != nil {
		return err
	}

	res, err := analysis.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if runFlags.outFile != "" {
		if err := report.WriteFile(runFlags.outFile, res, mode); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), report.Format(res, mode))
	}

	if runFlags.save {
		s, err := store.Open(runFlags.dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		run, freqs, metrics := res.Records()
		id, err := s.SaveRun(run, freqs, metrics)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		logging.New("cli").Info("run saved", "id", id, "db", runFlags.dbPath)
	}
	return nil
}
