// Package regress fits ordinary least squares models and performs the
// nested-model inference the analysis pipeline needs.
package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"amesreg/internal/dataset"
)

// Coefficient is one fitted model term with its inference columns.
type Coefficient struct {
	Term     string
	Estimate float64
	StdErr   float64
	TStat    float64
	PValue   float64
}

// Model is a fitted OLS model. The intercept is Coefficients[0].
type Model struct {
	Coefficients []Coefficient
	Terms        []dataset.Term // predictor terms, excluding the intercept
	N            int
	DF           int // residual degrees of freedom: n - p - 1
	RSS          float64
	TSS          float64
	Sigma2       float64 // RSS / DF
	R2           float64
	AdjR2        float64
	Fitted       []float64
	Residuals    []float64
}

// Fit estimates OLS coefficients by QR decomposition, with an intercept
// always included. A rank-deficient design is an error: the caller
// should drop or re-encode the offending columns rather than receive
// arbitrary coefficients.
func Fit(d *dataset.Design) (*Model, error) {
	n, p := d.X.Dims()
	if len(d.Y) != n {
		return nil, fmt.Errorf("ols: %d responses for %d rows", len(d.Y), n)
	}
	if n <= p+1 {
		return nil, fmt.Errorf("ols: %d rows cannot identify %d coefficients", n, p+1)
	}

	xa := withIntercept(d.X)

	var qr mat.QR
	qr.Factorize(xa)
	if !fullRank(&qr, p+1) {
		return nil, fmt.Errorf("ols: design matrix is rank deficient (%d columns)", p+1)
	}

	b := mat.NewDense(n, 1, nil)
	for i, v := range d.Y {
		b.Set(i, 0, v)
	}
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		return nil, fmt.Errorf("ols: solve: %w", err)
	}

	coef := make([]float64, p+1)
	for j := range coef {
		coef[j] = sol.At(j, 0)
	}

	m := &Model{
		Terms: d.Terms,
		N:     n,
		DF:    n - p - 1,
	}

	m.Fitted = make([]float64, n)
	m.Residuals = make([]float64, n)
	yMean := 0.0
	for _, v := range d.Y {
		yMean += v
	}
	yMean /= float64(n)
	for i := 0; i < n; i++ {
		f := coef[0]
		row := d.X.RawRowView(i)
		for j := 0; j < p; j++ {
			f += coef[j+1] * row[j]
		}
		m.Fitted[i] = f
		r := d.Y[i] - f
		m.Residuals[i] = r
		m.RSS += r * r
		dm := d.Y[i] - yMean
		m.TSS += dm * dm
	}
	m.Sigma2 = m.RSS / float64(m.DF)
	if m.TSS > 0 {
		m.R2 = 1 - m.RSS/m.TSS
		m.AdjR2 = 1 - (1-m.R2)*float64(n-1)/float64(m.DF)
	}

	// Coefficient covariance: sigma² · (X'X)⁻¹.
	var xtx, inv mat.Dense
	xtx.Mul(xa.T(), xa)
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("ols: covariance: %w", err)
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(m.DF)}
	m.Coefficients = make([]Coefficient, p+1)
	for j := 0; j <= p; j++ {
		name := "(Intercept)"
		if j > 0 {
			name = d.Terms[j-1].Name
		}
		se := math.Sqrt(m.Sigma2 * inv.At(j, j))
		tv := coef[j] / se
		m.Coefficients[j] = Coefficient{
			Term:     name,
			Estimate: coef[j],
			StdErr:   se,
			TStat:    tv,
			PValue:   2 * tDist.Survival(math.Abs(tv)),
		}
	}
	return m, nil
}

// Predict returns fitted values for the rows of a design with the same
// term layout the model was fitted on.
func (m *Model) Predict(d *dataset.Design) ([]float64, error) {
	n, p := d.X.Dims()
	if p != len(m.Terms) {
		return nil, fmt.Errorf("predict: %d columns, model has %d terms", p, len(m.Terms))
	}
	for j, t := range d.Terms {
		if t.Name != m.Terms[j].Name {
			return nil, fmt.Errorf("predict: column %d is %q, model expects %q", j, t.Name, m.Terms[j].Name)
		}
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f := m.Coefficients[0].Estimate
		row := d.X.RawRowView(i)
		for j := 0; j < p; j++ {
			f += m.Coefficients[j+1].Estimate * row[j]
		}
		out[i] = f
	}
	return out, nil
}

// NPredictors returns the number of non-intercept terms.
func (m *Model) NPredictors() int { return len(m.Terms) }

func withIntercept(x *mat.Dense) *mat.Dense {
	n, p := x.Dims()
	xa := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		xa.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			xa.Set(i, j+1, x.At(i, j))
		}
	}
	return xa
}

// fullRank checks the R factor's diagonal against a relative tolerance.
func fullRank(qr *mat.QR, cols int) bool {
	var r mat.Dense
	qr.RTo(&r)
	maxDiag := 0.0
	for j := 0; j < cols; j++ {
		if a := math.Abs(r.At(j, j)); a > maxDiag {
			maxDiag = a
		}
	}
	if maxDiag == 0 {
		return false
	}
	tol := 1e-10 * maxDiag
	for j := 0; j < cols; j++ {
		if math.Abs(r.At(j, j)) < tol {
			return false
		}
	}
	return true
}
