package diagnose

import (
	"fmt"
	"math"

	"amesreg/internal/dataset"
	"amesreg/internal/regress"
)

// chi-squared(1) 95% quantile, for the profile-likelihood interval.
const chi2OneDF95 = 3.841458820694124

// BoxCoxResult is the profile-likelihood estimate of the Box-Cox power.
type BoxCoxResult struct {
	Lambda   float64 // maximizer of the profile log-likelihood
	CILow    float64
	CIHigh   float64
	LogLik   float64 // at Lambda
	GridStep float64
}

// LogPreferred reports whether the plain log transform is consistent
// with the data: the 95% interval around lambda-hat covers 0.
func (r *BoxCoxResult) LogPreferred() bool {
	return r.CILow <= 0 && 0 <= r.CIHigh
}

// BoxCox profiles the Box-Cox transform parameter over [lo, hi] against
// the model design: for each lambda the response is transformed, the
// model refitted, and the profile log-likelihood
//
//	−(n/2)·ln(RSS/n) + (λ−1)·Σ ln y
//
// evaluated. The response must be strictly positive. The 95% interval
// holds every lambda whose log-likelihood is within χ²(1)₀.₉₅/2 of the
// maximum.
func BoxCox(d *dataset.Design, lo, hi, step float64) (*BoxCoxResult, error) {
	if lo >= hi {
		return nil, fmt.Errorf("box-cox: bad grid [%g, %g]", lo, hi)
	}
	if step <= 0 {
		return nil, fmt.Errorf("box-cox: bad grid step %g", step)
	}
	n := d.NRows()
	sumLog := 0.0
	for i, v := range d.Y {
		if v <= 0 {
			return nil, fmt.Errorf("box-cox: response %g at row %d is not positive", v, i)
		}
		sumLog += math.Log(v)
	}

	type point struct {
		lambda float64
		ll     float64
	}
	var grid []point
	best := point{ll: math.Inf(-1)}
	for lambda := lo; lambda <= hi+step/2; lambda += step {
		ty := transform(d.Y, lambda)
		td, err := d.WithResponse(ty)
		if err != nil {
			return nil, fmt.Errorf("box-cox: %w", err)
		}
		m, err := regress.Fit(td)
		if err != nil {
			return nil, fmt.Errorf("box-cox: fit at lambda=%.2f: %w", lambda, err)
		}
		ll := -float64(n)/2*math.Log(m.RSS/float64(n)) + (lambda-1)*sumLog
		grid = append(grid, point{lambda, ll})
		if ll > best.ll {
			best = point{lambda, ll}
		}
	}

	res := &BoxCoxResult{
		Lambda:   best.lambda,
		LogLik:   best.ll,
		GridStep: step,
		CILow:    math.Inf(1),
		CIHigh:   math.Inf(-1),
	}
	cut := best.ll - chi2OneDF95/2
	for _, p := range grid {
		if p.ll >= cut {
			if p.lambda < res.CILow {
				res.CILow = p.lambda
			}
			if p.lambda > res.CIHigh {
				res.CIHigh = p.lambda
			}
		}
	}
	return res, nil
}

// transform applies the Box-Cox power: (y^λ−1)/λ, or ln y at λ=0.
func transform(y []float64, lambda float64) []float64 {
	out := make([]float64, len(y))
	if math.Abs(lambda) < 1e-12 {
		for i, v := range y {
			out[i] = math.Log(v)
		}
		return out
	}
	for i, v := range y {
		out[i] = (math.Pow(v, lambda) - 1) / lambda
	}
	return out
}

// LogResponse returns a design refitted target: the element-wise log of
// the response. Errors on non-positive values.
func LogResponse(d *dataset.Design) (*dataset.Design, error) {
	ly := make([]float64, len(d.Y))
	for i, v := range d.Y {
		if v <= 0 {
			return nil, fmt.Errorf("log response: value %g at row %d is not positive", v, i)
		}
		ly[i] = math.Log(v)
	}
	return d.WithResponse(ly)
}
