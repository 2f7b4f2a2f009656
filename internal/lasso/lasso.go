// Package lasso implements L1-penalized least squares by cyclic
// coordinate descent, plus cross-validated selection of the penalty.
//
// The objective is (1/2n)·||y − b0 − Xb||² + λ·||b||₁, minimized on
// standardized predictors and a centered response; returned coefficients
// are de-standardized back to the original column scales.
package lasso

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultTol     = 1e-7
	defaultMaxIter = 10000
)

// Model is a fitted lasso solution at a single lambda.
type Model struct {
	Intercept float64
	Coef      []float64 // original-scale coefficients, one per column
	Lambda    float64
	Iters     int
}

// Nonzero reports which coefficients survived shrinkage. Coefficients for
// columns that were constant in the fitting data are always zero.
func (m *Model) Nonzero() []bool {
	out := make([]bool, len(m.Coef))
	for i, c := range m.Coef {
		out[i] = c != 0
	}
	return out
}

// Predict returns fitted values for the rows of x.
func (m *Model) Predict(x *mat.Dense) []float64 {
	n, p := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		s := m.Intercept
		for j := 0; j < p; j++ {
			s += m.Coef[j] * row[j]
		}
		out[i] = s
	}
	return out
}

// standardized holds the centered/scaled working copy of a design.
type standardized struct {
	cols   [][]float64 // column-major, mean 0, scale 1 (constant cols zeroed)
	xMean  []float64
	xScale []float64 // population SD; 0 marks a constant column
	y      []float64 // centered response
	yMean  float64
	n      int
	p      int
}

func standardize(x *mat.Dense, y []float64) *standardized {
	n, p := x.Dims()
	s := &standardized{
		cols:   make([][]float64, p),
		xMean:  make([]float64, p),
		xScale: make([]float64, p),
		y:      make([]float64, n),
		n:      n,
		p:      p,
	}

	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, x)
		mean := 0.0
		for _, v := range col {
			mean += v
		}
		mean /= float64(n)
		ss := 0.0
		for i, v := range col {
			col[i] = v - mean
			ss += col[i] * col[i]
		}
		scale := math.Sqrt(ss / float64(n))
		s.xMean[j] = mean
		s.xScale[j] = scale
		if scale > 0 {
			for i := range col {
				col[i] /= scale
			}
		} else {
			// Constant column: no signal in this sample. Zero it so the
			// descent leaves its coefficient at exactly zero.
			for i := range col {
				col[i] = 0
			}
		}
		s.cols[j] = col
	}

	for _, v := range y {
		s.yMean += v
	}
	s.yMean /= float64(n)
	for i, v := range y {
		s.y[i] = v - s.yMean
	}
	return s
}

// LambdaMax returns the smallest penalty at which every coefficient is
// zero: max_j |xⱼ'y| / n on the standardized problem.
func LambdaMax(x *mat.Dense, y []float64) float64 {
	s := standardize(x, y)
	return s.lambdaMax()
}

func (s *standardized) lambdaMax() float64 {
	best := 0.0
	for j := 0; j < s.p; j++ {
		dot := 0.0
		for i, v := range s.cols[j] {
			dot += v * s.y[i]
		}
		if a := math.Abs(dot) / float64(s.n); a > best {
			best = a
		}
	}
	return best
}

// Path returns nLambdas penalties log-spaced from lambdaMax down to
// minRatio·lambdaMax, largest first.
func Path(lambdaMax float64, nLambdas int, minRatio float64) []float64 {
	out := make([]float64, nLambdas)
	if nLambdas == 1 {
		out[0] = lambdaMax
		return out
	}
	logMax := math.Log(lambdaMax)
	logMin := math.Log(lambdaMax * minRatio)
	step := (logMax - logMin) / float64(nLambdas-1)
	for i := range out {
		out[i] = math.Exp(logMax - float64(i)*step)
	}
	return out
}

// Fit solves the lasso at a single lambda from a cold start.
func Fit(x *mat.Dense, y []float64, lambda float64) (*Model, error) {
	n, p := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("lasso: %d responses for %d rows", len(y), n)
	}
	if lambda < 0 {
		return nil, fmt.Errorf("lasso: negative lambda %g", lambda)
	}
	s := standardize(x, y)
	beta := make([]float64, p)
	iters, err := s.descend(beta, lambda)
	if err != nil {
		return nil, err
	}
	return s.destandardize(beta, lambda, iters), nil
}

// descend runs cyclic coordinate descent in place on beta, returning the
// iteration count. Residuals are maintained incrementally; each
// coordinate update is the soft-threshold of its partial correlation.
func (s *standardized) descend(beta []float64, lambda float64) (int, error) {
	n := float64(s.n)
	resid := make([]float64, s.n)
	copy(resid, s.y)
	for j, b := range beta {
		if b == 0 {
			continue
		}
		for i, v := range s.cols[j] {
			resid[i] -= v * b
		}
	}

	for iter := 1; iter <= defaultMaxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < s.p; j++ {
			if s.xScale[j] == 0 {
				continue
			}
			col := s.cols[j]
			old := beta[j]
			// rho = (1/n)·x_j'(r + x_j·b_j); the column has unit scale so
			// the update denominator is 1.
			rho := 0.0
			for i, v := range col {
				rho += v * resid[i]
			}
			rho = rho/n + old
			b := softThreshold(rho, lambda)
			if b != old {
				d := b - old
				for i, v := range col {
					resid[i] -= v * d
				}
				beta[j] = b
				if a := math.Abs(d); a > maxDelta {
					maxDelta = a
				}
			}
		}
		if maxDelta < defaultTol {
			return iter, nil
		}
	}
	return defaultMaxIter, fmt.Errorf("lasso: no convergence at lambda=%g after %d iterations", lambda, defaultMaxIter)
}

func (s *standardized) destandardize(beta []float64, lambda float64, iters int) *Model {
	m := &Model{
		Lambda: lambda,
		Coef:   make([]float64, s.p),
		Iters:  iters,
	}
	intercept := s.yMean
	for j, b := range beta {
		if b == 0 || s.xScale[j] == 0 {
			continue
		}
		orig := b / s.xScale[j]
		m.Coef[j] = orig
		intercept -= orig * s.xMean[j]
	}
	m.Intercept = intercept
	return m
}

func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}
