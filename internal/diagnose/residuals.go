// Package diagnose checks a fitted regression model: residual
// distribution, heteroscedasticity, and the Box-Cox response transform.
package diagnose

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"amesreg/internal/dataset"
	"amesreg/internal/regress"
)

// ResidualSummary captures the distributional shape of the residuals.
type ResidualSummary struct {
	Mean       float64
	StdDev     float64
	Skewness   float64
	ExKurtosis float64

	// Jarque-Bera normality test: n/6·(S² + K²/4) against χ²(2).
	JarqueBera float64
	JBPValue   float64
}

// SummarizeResiduals computes moments and the Jarque-Bera statistic.
func SummarizeResiduals(resid []float64) (*ResidualSummary, error) {
	n := len(resid)
	if n < 8 {
		return nil, fmt.Errorf("residual summary: %d residuals is too few", n)
	}
	s := &ResidualSummary{
		Mean:       stat.Mean(resid, nil),
		StdDev:     stat.StdDev(resid, nil),
		Skewness:   stat.Skew(resid, nil),
		ExKurtosis: stat.ExKurtosis(resid, nil),
	}
	s.JarqueBera = float64(n) / 6 * (s.Skewness*s.Skewness + s.ExKurtosis*s.ExKurtosis/4)
	s.JBPValue = distuv.ChiSquared{K: 2}.Survival(s.JarqueBera)
	return s, nil
}

// BPTest is the Breusch-Pagan heteroscedasticity test result.
type BPTest struct {
	LM     float64 // n·R² from the auxiliary regression
	PValue float64
	DF     int
}

// BreuschPagan regresses squared residuals on the model's design and
// tests LM = n·R² against χ²(p). A small p-value says the error variance
// moves with the predictors.
func BreuschPagan(model *regress.Model, d *dataset.Design) (*BPTest, error) {
	if len(model.Residuals) != d.NRows() {
		return nil, fmt.Errorf("breusch-pagan: %d residuals for %d rows", len(model.Residuals), d.NRows())
	}
	sq := make([]float64, len(model.Residuals))
	for i, r := range model.Residuals {
		sq[i] = r * r
	}
	aux, err := d.WithResponse(sq)
	if err != nil {
		return nil, fmt.Errorf("breusch-pagan: %w", err)
	}
	auxModel, err := regress.Fit(aux)
	if err != nil {
		return nil, fmt.Errorf("breusch-pagan: auxiliary fit: %w", err)
	}
	p := d.NCols()
	lm := float64(d.NRows()) * auxModel.R2
	return &BPTest{
		LM:     lm,
		PValue: distuv.ChiSquared{K: float64(p)}.Survival(lm),
		DF:     p,
	}, nil
}
