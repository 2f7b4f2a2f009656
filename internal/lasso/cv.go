package lasso

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CVResult is the outcome of k-fold cross-validation over a lambda path.
type CVResult struct {
	Lambdas    []float64
	MeanErrors []float64 // mean squared prediction error per lambda
	Best       float64   // lambda with the smallest mean error
	BestIndex  int
}

// FitPath solves the lasso along a descending lambda path with warm
// starts, returning one model per lambda.
func FitPath(x *mat.Dense, y []float64, lambdas []float64) ([]*Model, error) {
	n, p := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("lasso path: %d responses for %d rows", len(y), n)
	}
	s := standardize(x, y)
	beta := make([]float64, p)
	models := make([]*Model, len(lambdas))
	for i, lambda := range lambdas {
		iters, err := s.descend(beta, lambda)
		if err != nil {
			return nil, err
		}
		models[i] = s.destandardize(beta, lambda, iters)
	}
	return models, nil
}

// CrossValidate picks a lambda by k-fold CV: for each fold, fit the path
// on the complement and score squared prediction error on the held-out
// rows; the winner minimizes the mean error across folds.
func CrossValidate(x *mat.Dense, y []float64, folds [][]int, lambdas []float64) (*CVResult, error) {
	if len(folds) < 2 {
		return nil, fmt.Errorf("cross-validate: need at least 2 folds, got %d", len(folds))
	}
	if len(lambdas) == 0 {
		return nil, fmt.Errorf("cross-validate: empty lambda path")
	}
	n, _ := x.Dims()

	sumErr := make([]float64, len(lambdas))
	counted := 0
	for f, holdout := range folds {
		if len(holdout) == 0 {
			continue
		}
		inFold := make([]bool, n)
		for _, idx := range holdout {
			inFold[idx] = true
		}
		var trainIdx []int
		for i := 0; i < n; i++ {
			if !inFold[i] {
				trainIdx = append(trainIdx, i)
			}
		}
		if len(trainIdx) == 0 {
			return nil, fmt.Errorf("cross-validate: fold %d holds out every row", f)
		}

		xTr, yTr := subset(x, y, trainIdx)
		models, err := FitPath(xTr, yTr, lambdas)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}

		xHo, yHo := subset(x, y, holdout)
		for li, m := range models {
			pred := m.Predict(xHo)
			se := 0.0
			for i, p := range pred {
				d := p - yHo[i]
				se += d * d
			}
			sumErr[li] += se
		}
		counted += len(holdout)
	}
	if counted == 0 {
		return nil, fmt.Errorf("cross-validate: no held-out rows")
	}

	res := &CVResult{
		Lambdas:    lambdas,
		MeanErrors: make([]float64, len(lambdas)),
	}
	for i, s := range sumErr {
		res.MeanErrors[i] = s / float64(counted)
	}
	res.BestIndex = 0
	for i, e := range res.MeanErrors {
		if e < res.MeanErrors[res.BestIndex] {
			res.BestIndex = i
		}
	}
	res.Best = lambdas[res.BestIndex]
	return res, nil
}

func subset(x *mat.Dense, y []float64, idx []int) (*mat.Dense, []float64) {
	_, p := x.Dims()
	xs := mat.NewDense(len(idx), p, nil)
	ys := make([]float64, len(idx))
	for i, src := range idx {
		xs.SetRow(i, x.RawRowView(src))
		ys[i] = y[src]
	}
	return xs, ys
}
