package lasso

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (tol %v)", what, got, want, tol)
	}
}

// singlePredictor is x = 1..5, y = 2x + 1 exactly. On the standardized
// problem the lasso coefficient is the soft-threshold of 2·sd(x) = 2√2,
// so every shrinkage amount has a closed form.
func singlePredictor() (*mat.Dense, []float64) {
	x := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	y := []float64{3, 5, 7, 9, 11}
	return x, y
}

func TestFit_ZeroLambdaRecoversOLS(t *testing.T) {
	x, y := singlePredictor()
	m, err := Fit(x, y, 0)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	approx(t, m.Coef[0], 2.0, 1e-5, "Coef[0]")
	approx(t, m.Intercept, 1.0, 1e-4, "Intercept")
}

func TestFit_SoftThresholdClosedForm(t *testing.T) {
	x, y := singlePredictor()
	// At lambda = √2 the standardized coefficient is 2√2 − √2 = √2,
	// which de-standardizes to exactly 1.
	m, err := Fit(x, y, math.Sqrt2)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	approx(t, m.Coef[0], 1.0, 1e-5, "Coef[0]")
	approx(t, m.Intercept, 4.0, 1e-4, "Intercept")
}

func TestFit_LambdaMaxKillsEverything(t *testing.T) {
	x, y := singlePredictor()
	lmax := LambdaMax(x, y)
	approx(t, lmax, 2*math.Sqrt2, 1e-9, "LambdaMax")

	m, err := Fit(x, y, lmax)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Coef[0] != 0 {
		t.Errorf("Coef[0] = %v, want exact 0 at lambda_max", m.Coef[0])
	}
	approx(t, m.Intercept, 7.0, 1e-9, "Intercept")
}

func TestFit_NoiseColumnZeroedFirst(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	n := 200
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		signal := rng.NormFloat64()
		noise := rng.NormFloat64()
		x.Set(i, 0, signal)
		x.Set(i, 1, noise)
		y[i] = 3*signal + 0.1*rng.NormFloat64()
	}
	m, err := Fit(x, y, 0.5)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Coef[0] == 0 {
		t.Error("signal coefficient should survive lambda=0.5")
	}
	if m.Coef[1] != 0 {
		t.Errorf("noise coefficient = %v, want 0", m.Coef[1])
	}
	nz := m.Nonzero()
	if !nz[0] || nz[1] {
		t.Errorf("Nonzero = %v, want [true false]", nz)
	}
}

func TestFit_ConstantColumn(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
	})
	y := []float64{2, 4, 6, 8}
	m, err := Fit(x, y, 0.01)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Coef[1] != 0 {
		t.Errorf("constant column coefficient = %v, want 0", m.Coef[1])
	}
	if m.Coef[0] == 0 {
		t.Error("varying column should keep a coefficient")
	}
}

func TestFit_Errors(t *testing.T) {
	x, y := singlePredictor()
	if _, err := Fit(x, y[:3], 0.1); err == nil {
		t.Error("expected length mismatch error")
	}
	if _, err := Fit(x, y, -1); err == nil {
		t.Error("expected negative lambda error")
	}
}

func TestPath_LogSpaced(t *testing.T) {
	path := Path(8, 4, 1e-3)
	if len(path) != 4 {
		t.Fatalf("len = %d, want 4", len(path))
	}
	approx(t, path[0], 8, 1e-12, "path[0]")
	approx(t, path[3], 8e-3, 1e-12, "path[3]")
	for i := 1; i < len(path); i++ {
		if path[i] >= path[i-1] {
			t.Errorf("path not descending at %d: %v >= %v", i, path[i], path[i-1])
		}
	}
	// Single-element path is just lambda_max.
	one := Path(5, 1, 1e-3)
	approx(t, one[0], 5, 1e-12, "Path(5,1)[0]")
}

func TestFitPath_WarmStartMatchesColdStart(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 0))
	n := 100
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b, c := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()
		x.Set(i, 0, a)
		x.Set(i, 1, b)
		x.Set(i, 2, c)
		y[i] = 2*a - b + 0.05*rng.NormFloat64()
	}
	lambdas := Path(LambdaMax(x, y), 10, 1e-2)
	models, err := FitPath(x, y, lambdas)
	if err != nil {
		t.Fatalf("FitPath: %v", err)
	}
	for i, lambda := range lambdas {
		cold, err := Fit(x, y, lambda)
		if err != nil {
			t.Fatalf("Fit(lambda=%g): %v", lambda, err)
		}
		for j := range cold.Coef {
			approx(t, models[i].Coef[j], cold.Coef[j], 1e-4,
				"warm vs cold coef")
		}
	}
}

func TestCrossValidate_PrefersSmallLambdaOnStrongSignal(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 0))
	n := 120
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		x.Set(i, 0, a)
		x.Set(i, 1, b)
		y[i] = 5*a + 2*b + 0.01*rng.NormFloat64()
	}
	lambdas := Path(LambdaMax(x, y), 20, 1e-3)
	folds := kfold(n, 5, rng)
	res, err := CrossValidate(x, y, folds, lambdas)
	if err != nil {
		t.Fatalf("CrossValidate: %v", err)
	}
	if len(res.MeanErrors) != len(lambdas) {
		t.Fatalf("MeanErrors len = %d, want %d", len(res.MeanErrors), len(lambdas))
	}
	// Near-noiseless linear data: the best lambda sits in the small half
	// of the path.
	if res.BestIndex < len(lambdas)/2 {
		t.Errorf("BestIndex = %d, expected deep in the path (>= %d)", res.BestIndex, len(lambdas)/2)
	}
	if res.Best != lambdas[res.BestIndex] {
		t.Errorf("Best = %v, want lambdas[%d] = %v", res.Best, res.BestIndex, lambdas[res.BestIndex])
	}
}

func TestCrossValidate_Errors(t *testing.T) {
	x, y := singlePredictor()
	if _, err := CrossValidate(x, y, [][]int{{0, 1, 2, 3, 4}}, []float64{0.1}); err == nil {
		t.Error("expected error for a single fold")
	}
	if _, err := CrossValidate(x, y, [][]int{{0}, {1}}, nil); err == nil {
		t.Error("expected error for empty lambda path")
	}
	if _, err := CrossValidate(x, y, [][]int{{0, 1, 2, 3, 4}, {}}, []float64{0.1}); err == nil {
		t.Error("expected error when a fold holds out every row")
	}
}

// kfold mirrors dataset.KFold without importing it: lasso stays below the
// dataset package in the dependency order.
func kfold(n, k int, rng *rand.Rand) [][]int {
	folds := make([][]int, k)
	for i, idx := range rng.Perm(n) {
		folds[i%k] = append(folds[i%k], idx)
	}
	return folds
}
