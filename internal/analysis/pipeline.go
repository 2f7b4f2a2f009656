// Package analysis orchestrates the full selection and modeling
// pipeline: ingest, bootstrap-lasso selection, OLS refinement,
// transformation diagnostics, interaction screening, and held-out
// evaluation.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"amesreg/internal/bootstrap"
	"amesreg/internal/config"
	"amesreg/internal/dataset"
	"amesreg/internal/diagnose"
	"amesreg/internal/logging"
	"amesreg/internal/regress"
)

// DatasetSummary describes the ingested table and the split.
type DatasetSummary struct {
	Path         string
	Rows         int
	Columns      int // raw columns, response excluded
	Terms        int // encoded predictor columns
	ImputedCells int
	TrainRows    int
	TestRows     int
}

// Result is everything one analysis run produces.
type Result struct {
	Config    config.Config
	Dataset   DatasetSummary
	Selection *bootstrap.Selection

	// Diagnostics on the OLS fit of the selected terms, before any
	// response transformation.
	RawResiduals *diagnose.ResidualSummary
	BoxCox       *diagnose.BoxCoxResult
	LogResponse  bool

	// Final model: selected terms, transformed response if the Box-Cox
	// interval admits the log, plus any kept interactions.
	Model        *regress.Model
	Residuals    *diagnose.ResidualSummary
	BreuschPagan *diagnose.BPTest
	Interactions []regress.InteractionResult

	Evaluation *diagnose.Evaluation
	Elapsed    time.Duration
}

// Run executes the pipeline for cfg. The same config and seed always
// produce the same Result regardless of worker count.
func Run(ctx context.Context, cfg config.Config) (*Result, error) {
	log := logging.New("analysis")
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	train, test, summary, err := loadSplit(cfg, log)
	if err != nil {
		return nil, err
	}
	res := &Result{Config: cfg, Dataset: *summary}

	// Stage 1: bootstrap-lasso selection on the training rows.
	sel, err := bootstrap.Run(ctx, selectionConfig(cfg), train)
	if err != nil {
		return nil, fmt.Errorf("bootstrap selection: %w", err)
	}
	res.Selection = sel
	if len(sel.Selected) == 0 {
		return nil, fmt.Errorf("no term reached the %.0f%% selection threshold over %d replicates",
			sel.Threshold*100, sel.Replicates)
	}
	log.Info("selection complete",
		"selected", len(sel.Selected),
		"candidates", len(sel.Frequencies),
		"lambda_median", sel.Lambdas.Median)

	// Stage 2: OLS on the selected terms.
	trainSel, err := train.Select(sel.Selected)
	if err != nil {
		return nil, fmt.Errorf("subset train design: %w", err)
	}
	testSel, err := test.Select(sel.Selected)
	if err != nil {
		return nil, fmt.Errorf("subset test design: %w", err)
	}
	rawModel, err := regress.Fit(trainSel)
	if err != nil {
		return nil, fmt.Errorf("fit selected terms: %w", err)
	}
	res.RawResiduals, err = diagnose.SummarizeResiduals(rawModel.Residuals)
	if err != nil {
		return nil, err
	}

	// Stage 3: response transformation.
	res.BoxCox, err = diagnose.BoxCox(trainSel,
		cfg.Modeling.BoxCoxLow, cfg.Modeling.BoxCoxHigh, cfg.Modeling.BoxCoxStep)
	if err != nil {
		return nil, fmt.Errorf("box-cox: %w", err)
	}
	modelTrain := trainSel
	if res.BoxCox.LogPreferred() {
		res.LogResponse = true
		modelTrain, err = diagnose.LogResponse(trainSel)
		if err != nil {
			return nil, fmt.Errorf("log transform: %w", err)
		}
		log.Info("log response adopted",
			"lambda", res.BoxCox.Lambda,
			"ci_low", res.BoxCox.CILow,
			"ci_high", res.BoxCox.CIHigh)
	} else {
		log.Info("response kept on original scale", "lambda", res.BoxCox.Lambda)
	}

	// Stage 4: interaction screening on the (possibly transformed) fit.
	finalTrain := modelTrain
	var model *regress.Model
	if cfg.Modeling.Interactions {
		finalTrain, model, res.Interactions, err = regress.ScreenInteractions(modelTrain, cfg.Modeling.Alpha)
		if err != nil {
			return nil, fmt.Errorf("interaction screen: %w", err)
		}
	} else {
		model, err = regress.Fit(modelTrain)
		if err != nil {
			return nil, fmt.Errorf("fit final model: %w", err)
		}
	}
	res.Model = model

	res.Residuals, err = diagnose.SummarizeResiduals(model.Residuals)
	if err != nil {
		return nil, err
	}
	res.BreuschPagan, err = diagnose.BreuschPagan(model, finalTrain)
	if err != nil {
		return nil, fmt.Errorf("breusch-pagan: %w", err)
	}

	// Stage 5: held-out evaluation. The test design needs the same
	// interaction columns the final model carries; its response stays
	// on the original scale so back-transformed error can be scored.
	finalTest, err := augmentWithInteractions(testSel, res.Interactions)
	if err != nil {
		return nil, fmt.Errorf("augment test design: %w", err)
	}
	res.Evaluation, err = diagnose.Evaluate(model, finalTest, res.LogResponse)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	res.Elapsed = time.Since(start)
	log.Info("analysis complete",
		"terms", model.NPredictors(),
		"r2", model.R2,
		"test_rmse", res.Evaluation.RMSE,
		"elapsed", res.Elapsed)
	return res, nil
}

// Select runs ingest and bootstrap-lasso selection only, skipping the
// OLS refinement and evaluation stages.
func Select(ctx context.Context, cfg config.Config) (*bootstrap.Selection, *DatasetSummary, error) {
	log := logging.New("analysis")
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	train, _, summary, err := loadSplit(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	sel, err := bootstrap.Run(ctx, selectionConfig(cfg), train)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap selection: %w", err)
	}
	return sel, summary, nil
}

func selectionConfig(cfg config.Config) bootstrap.Config {
	return bootstrap.Config{
		Replicates:     cfg.Selection.Replicates,
		Threshold:      cfg.Selection.Threshold,
		Folds:          cfg.Selection.Folds,
		LambdaGrid:     cfg.Selection.LambdaGrid,
		LambdaMinRatio: cfg.Selection.LambdaMinRatio,
		Workers:        cfg.Selection.Workers,
		Seed:           cfg.Seed,
	}
}

// loadSplit ingests the CSV, encodes the design, and holds out the test
// rows before anything touches them. The split stream is distinct from
// every replicate stream.
func loadSplit(cfg config.Config, log *slog.Logger) (train, test *dataset.Design, summary *DatasetSummary, err error) {
	table, err := dataset.LoadCSV(cfg.Dataset.Path, dataset.LoadOptions{
		Response:    cfg.Dataset.Response,
		Drop:        cfg.Dataset.Drop,
		Categorical: cfg.Dataset.Categorical,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load dataset: %w", err)
	}
	design, err := table.Encode()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode dataset: %w", err)
	}
	log.Info("dataset loaded",
		"path", cfg.Dataset.Path,
		"rows", table.NRows,
		"columns", len(table.Columns),
		"terms", design.NCols(),
		"imputed", table.ImputedCells())

	splitRNG := rand.New(rand.NewPCG(cfg.Seed, 0))
	train, test, err = design.Split(cfg.Dataset.TestFrac, splitRNG)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("split dataset: %w", err)
	}
	return train, test, &DatasetSummary{
		Path:         cfg.Dataset.Path,
		Rows:         table.NRows,
		Columns:      len(table.Columns),
		Terms:        design.NCols(),
		ImputedCells: table.ImputedCells(),
		TrainRows:    train.NRows(),
		TestRows:     test.NRows(),
	}, nil
}

// augmentWithInteractions appends the kept product columns, in keep
// order, so the test matrix matches the final model's term layout.
func augmentWithInteractions(d *dataset.Design, results []regress.InteractionResult) (*dataset.Design, error) {
	out := d
	for _, ir := range results {
		if !ir.Kept {
			continue
		}
		a, b, ok := strings.Cut(ir.Term, ":")
		if !ok {
			return nil, fmt.Errorf("malformed interaction term %q", ir.Term)
		}
		ai, bi := out.TermIndex(a), out.TermIndex(b)
		if ai < 0 || bi < 0 {
			return nil, fmt.Errorf("interaction %q references unknown terms", ir.Term)
		}
		n := out.NRows()
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			vals[i] = out.X.At(i, ai) * out.X.At(i, bi)
		}
		next, err := out.WithColumn(dataset.Term{Name: ir.Term, Numeric: true}, vals)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
