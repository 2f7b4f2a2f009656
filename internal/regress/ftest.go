package regress

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// FTest is the outcome of a nested-model comparison.
type FTest struct {
	F      float64
	PValue float64
	DFNum  int // added terms
	DFDen  int // residual df of the full model
}

// PartialFTest compares a reduced model against a full model fitted on
// the same sample. The F statistic is
//
//	((RSS_r − RSS_f)/q) / (RSS_f/df_f)
//
// with q the number of added terms. Models that are not nested, or were
// fitted on different samples, are an error.
func PartialFTest(reduced, full *Model) (*FTest, error) {
	if reduced.N != full.N {
		return nil, fmt.Errorf("partial F: models fit on %d and %d rows", reduced.N, full.N)
	}
	q := full.NPredictors() - reduced.NPredictors()
	if q <= 0 {
		return nil, fmt.Errorf("partial F: full model adds no terms (%d vs %d)",
			full.NPredictors(), reduced.NPredictors())
	}
	if !nested(reduced, full) {
		return nil, fmt.Errorf("partial F: reduced model terms are not a subset of the full model")
	}
	if full.DF <= 0 {
		return nil, fmt.Errorf("partial F: full model has no residual degrees of freedom")
	}

	num := (reduced.RSS - full.RSS) / float64(q)
	den := full.RSS / float64(full.DF)
	if den <= 0 {
		return nil, fmt.Errorf("partial F: full model has zero residual variance")
	}
	f := num / den
	if f < 0 {
		// RSS cannot increase when terms are added; tiny negative values
		// are floating-point noise.
		f = 0
	}

	dist := distuv.F{D1: float64(q), D2: float64(full.DF)}
	return &FTest{
		F:      f,
		PValue: dist.Survival(f),
		DFNum:  q,
		DFDen:  full.DF,
	}, nil
}

func nested(reduced, full *Model) bool {
	have := make(map[string]bool, full.NPredictors())
	for _, t := range full.Terms {
		have[t.Name] = true
	}
	for _, t := range reduced.Terms {
		if !have[t.Name] {
			return false
		}
	}
	return true
}
