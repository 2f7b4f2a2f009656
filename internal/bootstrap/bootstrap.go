// Package bootstrap runs the bootstrap-lasso variable selection loop:
// resample the training data with replacement, cross-validate and fit a
// lasso on each resample, and tally how often each term's coefficient
// survives shrinkage.
package bootstrap

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"amesreg/internal/dataset"
	"amesreg/internal/lasso"
	"amesreg/internal/logging"
)

// Config controls a selection run.
type Config struct {
	Replicates     int     // bootstrap resamples (B)
	Threshold      float64 // survival frequency needed for selection
	Folds          int     // CV folds per replicate
	LambdaGrid     int     // penalties on the CV path
	LambdaMinRatio float64 // smallest penalty as a fraction of lambda_max
	Workers        int     // parallel fits; 0 means GOMAXPROCS
	Seed           uint64
}

func (c *Config) validate() error {
	if c.Replicates < 1 {
		return fmt.Errorf("bootstrap: replicates %d < 1", c.Replicates)
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("bootstrap: threshold %g out of (0,1]", c.Threshold)
	}
	if c.Folds < 2 {
		return fmt.Errorf("bootstrap: %d CV folds < 2", c.Folds)
	}
	if c.LambdaGrid < 2 {
		return fmt.Errorf("bootstrap: lambda grid size %d < 2", c.LambdaGrid)
	}
	if c.LambdaMinRatio <= 0 || c.LambdaMinRatio >= 1 {
		return fmt.Errorf("bootstrap: lambda min ratio %g out of (0,1)", c.LambdaMinRatio)
	}
	return nil
}

// TermFrequency is one row of the survival tally.
type TermFrequency struct {
	Term      string
	Frequency float64 // nonzero count / B
	Selected  bool
}

// LambdaSummary describes the per-replicate CV-chosen penalties.
type LambdaSummary struct {
	Min    float64
	Median float64
	Max    float64
}

// Selection is the outcome of a full bootstrap-lasso run.
type Selection struct {
	Frequencies []TermFrequency // one per design column, design order
	Selected    []string        // terms at or above the threshold
	Replicates  int
	Threshold   float64
	Lambdas     LambdaSummary
}

// replicateResult is filled into its own slot of the results slice, so
// workers never share mutable state.
type replicateResult struct {
	lambda  float64
	nonzero []bool
}

// Run executes B independent resample-CV-fit tasks across a bounded
// worker pool and tallies coefficient survival. Replicate r draws all
// its randomness from a PCG stream seeded (cfg.Seed, r+1): the outcome
// is a pure function of the seed, independent of worker count and
// completion order. The first replicate error cancels the rest.
func Run(ctx context.Context, cfg Config, train *dataset.Design) (*Selection, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := train.NRows()
	if n < 2*cfg.Folds {
		return nil, fmt.Errorf("bootstrap: %d training rows is too few for %d folds", n, cfg.Folds)
	}

	logger := logging.New("bootstrap")
	logger.Info("starting selection", "replicates", cfg.Replicates, "workers", workers,
		"folds", cfg.Folds, "seed", cfg.Seed)

	results := make([]replicateResult, cfg.Replicates)
	var done atomic.Int64
	logEvery := cfg.Replicates / 10
	if logEvery == 0 {
		logEvery = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r := 0; r < cfg.Replicates; r++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fitReplicate(cfg, train, r)
			if err != nil {
				return fmt.Errorf("replicate %d: %w", r, err)
			}
			results[r] = res
			if d := done.Add(1); d%int64(logEvery) == 0 {
				logger.Info("progress", "done", d, "total", cfg.Replicates)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tally(cfg, train, results), nil
}

// fitReplicate runs one resample: CV a penalty, fit at the winner, and
// report which coefficients are nonzero.
func fitReplicate(cfg Config, train *dataset.Design, r int) (replicateResult, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(r)+1))
	sample := train.Resample(rng)

	lmax := lasso.LambdaMax(sample.X, sample.Y)
	if lmax == 0 {
		// Response constant in this resample: nothing can be selected.
		return replicateResult{nonzero: make([]bool, sample.NCols())}, nil
	}
	path := lasso.Path(lmax, cfg.LambdaGrid, cfg.LambdaMinRatio)
	folds := dataset.KFold(sample.NRows(), cfg.Folds, rng)

	cv, err := lasso.CrossValidate(sample.X, sample.Y, folds, path)
	if err != nil {
		return replicateResult{}, err
	}
	m, err := lasso.Fit(sample.X, sample.Y, cv.Best)
	if err != nil {
		return replicateResult{}, err
	}
	return replicateResult{lambda: cv.Best, nonzero: m.Nonzero()}, nil
}

func tally(cfg Config, train *dataset.Design, results []replicateResult) *Selection {
	p := train.NCols()
	counts := make([]int, p)
	lambdas := make([]float64, 0, len(results))
	for _, res := range results {
		for j, nz := range res.nonzero {
			if nz {
				counts[j]++
			}
		}
		if res.lambda > 0 {
			lambdas = append(lambdas, res.lambda)
		}
	}

	sel := &Selection{
		Frequencies: make([]TermFrequency, p),
		Replicates:  cfg.Replicates,
		Threshold:   cfg.Threshold,
	}
	for j := 0; j < p; j++ {
		freq := float64(counts[j]) / float64(cfg.Replicates)
		tf := TermFrequency{
			Term:      train.Terms[j].Name,
			Frequency: freq,
			Selected:  freq >= cfg.Threshold,
		}
		sel.Frequencies[j] = tf
		if tf.Selected {
			sel.Selected = append(sel.Selected, tf.Term)
		}
	}

	if len(lambdas) > 0 {
		sort.Float64s(lambdas)
		sel.Lambdas = LambdaSummary{
			Min:    lambdas[0],
			Median: lambdas[len(lambdas)/2],
			Max:    lambdas[len(lambdas)-1],
		}
	}
	return sel
}
