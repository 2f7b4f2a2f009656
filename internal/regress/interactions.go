package regress

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"amesreg/internal/dataset"
	"amesreg/internal/logging"
)

// InteractionResult records one screened candidate interaction.
type InteractionResult struct {
	Term  string
	FTest FTest
	Kept  bool
}

// ScreenInteractions tests every pairwise product of the design's
// numeric terms with a partial F-test at level alpha. Candidates are
// screened in column order; each survivor joins the model before the
// next candidate is tested, so later tests are conditional on earlier
// keeps. Returns the augmented design, its fitted model, and the
// per-candidate results.
func ScreenInteractions(d *dataset.Design, alpha float64) (*dataset.Design, *Model, []InteractionResult, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, nil, nil, fmt.Errorf("screen interactions: alpha %g out of (0,1)", alpha)
	}

	logger := logging.New("regress")
	current := d
	model, err := Fit(current)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("screen interactions: base fit: %w", err)
	}

	var numeric []int
	for j, t := range d.Terms {
		if t.Numeric {
			numeric = append(numeric, j)
		}
	}

	var results []InteractionResult
	for ai := 0; ai < len(numeric); ai++ {
		for bi := ai + 1; bi < len(numeric); bi++ {
			a, b := numeric[ai], numeric[bi]
			name := d.Terms[a].Name + ":" + d.Terms[b].Name

			vals := product(d.X, a, b)
			cand, err := current.WithColumn(dataset.Term{Name: name, Numeric: true}, vals)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("screen interactions: %s: %w", name, err)
			}
			fullModel, err := Fit(cand)
			if err != nil {
				// A product column can be collinear with its parents
				// (e.g. a parent that only takes values 0 and 1). Such a
				// candidate adds nothing testable; skip it.
				logger.Debug("interaction candidate unfit", "term", name, "error", err)
				results = append(results, InteractionResult{Term: name})
				continue
			}
			ft, err := PartialFTest(model, fullModel)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("screen interactions: %s: %w", name, err)
			}

			res := InteractionResult{Term: name, FTest: *ft}
			if ft.PValue < alpha {
				res.Kept = true
				current = cand
				model = fullModel
				logger.Info("interaction kept", "term", name, "F", ft.F, "p", ft.PValue)
			}
			results = append(results, res)
		}
	}
	return current, model, results, nil
}

func product(x *mat.Dense, a, b int) []float64 {
	n, _ := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = x.At(i, a) * x.At(i, b)
	}
	return out
}
