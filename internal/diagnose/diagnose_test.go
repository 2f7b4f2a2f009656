package diagnose

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"amesreg/internal/dataset"
	"amesreg/internal/regress"
)

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (tol %v)", what, got, want, tol)
	}
}

func normalSample(seed uint64, n int) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func TestSummarizeResiduals_NormalSample(t *testing.T) {
	s, err := SummarizeResiduals(normalSample(1, 500))
	if err != nil {
		t.Fatalf("SummarizeResiduals: %v", err)
	}
	approx(t, s.Mean, 0, 0.15, "mean")
	approx(t, s.StdDev, 1, 0.15, "stddev")
	if s.JBPValue < 0.01 {
		t.Errorf("JB rejected normality of a normal sample: JB=%v p=%v", s.JarqueBera, s.JBPValue)
	}
}

func TestSummarizeResiduals_SkewedSample(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 0))
	x := make([]float64, 500)
	for i := range x {
		// Exponential via inverse CDF: heavily right-skewed.
		x[i] = -math.Log(1 - rng.Float64())
	}
	s, err := SummarizeResiduals(x)
	if err != nil {
		t.Fatalf("SummarizeResiduals: %v", err)
	}
	if s.Skewness < 1 {
		t.Errorf("Skewness = %v, expected strongly positive", s.Skewness)
	}
	if s.JBPValue > 1e-6 {
		t.Errorf("JB should reject an exponential sample, p = %v", s.JBPValue)
	}
}

func TestSummarizeResiduals_TooFew(t *testing.T) {
	if _, err := SummarizeResiduals([]float64{1, 2, 3}); err == nil {
		t.Error("expected too-few-residuals error")
	}
}

// linearDesign builds y = 2 + 3x + noise·scale(x) for BP tests.
func linearDesign(seed uint64, n int, hetero bool) *dataset.Design {
	rng := rand.New(rand.NewPCG(seed, 0))
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xv := 1 + 9*rng.Float64()
		scale := 1.0
		if hetero {
			scale = xv * xv
		}
		x.Set(i, 0, xv)
		y[i] = 2 + 3*xv + scale*rng.NormFloat64()
	}
	return &dataset.Design{
		X:     x,
		Y:     y,
		Terms: []dataset.Term{{Name: "x", Numeric: true}},
	}
}

func TestBreuschPagan(t *testing.T) {
	tests := []struct {
		name   string
		hetero bool
		check  func(t *testing.T, bp *BPTest)
	}{
		{"homoscedastic", false, func(t *testing.T, bp *BPTest) {
			if bp.PValue < 0.01 {
				t.Errorf("BP rejected constant variance: LM=%v p=%v", bp.LM, bp.PValue)
			}
		}},
		{"heteroscedastic", true, func(t *testing.T, bp *BPTest) {
			if bp.PValue > 0.01 {
				t.Errorf("BP missed variance growing with x: LM=%v p=%v", bp.LM, bp.PValue)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := linearDesign(7, 400, tt.hetero)
			m, err := regress.Fit(d)
			if err != nil {
				t.Fatalf("Fit: %v", err)
			}
			bp, err := BreuschPagan(m, d)
			if err != nil {
				t.Fatalf("BreuschPagan: %v", err)
			}
			if bp.DF != 1 {
				t.Errorf("DF = %d, want 1", bp.DF)
			}
			tt.check(t, bp)
		})
	}
}

// multiplicativeDesign has log(y) linear in x: Box-Cox should land near 0.
func multiplicativeDesign(seed uint64, n int) *dataset.Design {
	rng := rand.New(rand.NewPCG(seed, 0))
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xv := rng.Float64() * 4
		x.Set(i, 0, xv)
		y[i] = math.Exp(1 + 0.8*xv + 0.3*rng.NormFloat64())
	}
	return &dataset.Design{
		X:     x,
		Y:     y,
		Terms: []dataset.Term{{Name: "x", Numeric: true}},
	}
}

func TestBoxCox_MultiplicativeDataPrefersLog(t *testing.T) {
	d := multiplicativeDesign(31, 300)
	res, err := BoxCox(d, -2, 2, 0.05)
	if err != nil {
		t.Fatalf("BoxCox: %v", err)
	}
	approx(t, res.Lambda, 0, 0.25, "lambda")
	if !res.LogPreferred() {
		t.Errorf("CI [%v, %v] should cover 0", res.CILow, res.CIHigh)
	}
	if res.CILow > res.Lambda || res.CIHigh < res.Lambda {
		t.Errorf("CI [%v, %v] must contain lambda-hat %v", res.CILow, res.CIHigh, res.Lambda)
	}
}

func TestBoxCox_AdditiveDataPrefersIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(33, 0))
	n := 300
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xv := rng.Float64() * 4
		x.Set(i, 0, xv)
		y[i] = 50 + 10*xv + rng.NormFloat64()
	}
	d := &dataset.Design{X: x, Y: y, Terms: []dataset.Term{{Name: "x", Numeric: true}}}

	res, err := BoxCox(d, -2, 2, 0.05)
	if err != nil {
		t.Fatalf("BoxCox: %v", err)
	}
	if res.LogPreferred() {
		t.Errorf("CI [%v, %v] should exclude 0 for additive data", res.CILow, res.CIHigh)
	}
}

func TestBoxCox_Errors(t *testing.T) {
	d := multiplicativeDesign(1, 50)
	if _, err := BoxCox(d, 2, -2, 0.05); err == nil {
		t.Error("expected bad-grid error")
	}
	if _, err := BoxCox(d, -2, 2, 0); err == nil {
		t.Error("expected bad-step error")
	}
	d.Y[0] = -5
	if _, err := BoxCox(d, -2, 2, 0.05); err == nil {
		t.Error("expected non-positive response error")
	}
}

func TestTransform_LambdaZeroIsLog(t *testing.T) {
	y := []float64{1, math.E, math.E * math.E}
	got := transform(y, 0)
	want := []float64{0, 1, 2}
	for i := range got {
		approx(t, got[i], want[i], 1e-12, "transform(0)")
	}
	// Lambda 1 is a shift: (y−1)/1.
	got = transform(y, 1)
	for i := range got {
		approx(t, got[i], y[i]-1, 1e-12, "transform(1)")
	}
}

func TestLogResponse(t *testing.T) {
	d := multiplicativeDesign(3, 40)
	ld, err := LogResponse(d)
	if err != nil {
		t.Fatalf("LogResponse: %v", err)
	}
	for i := range ld.Y {
		approx(t, ld.Y[i], math.Log(d.Y[i]), 1e-12, "log y")
	}
	d.Y[5] = 0
	if _, err := LogResponse(d); err == nil {
		t.Error("expected non-positive error")
	}
}

func TestEvaluate_PlainScale(t *testing.T) {
	d := linearDesign(9, 200, false)
	m, err := regress.Fit(d)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	ev, err := Evaluate(m, d, false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// On the training rows RMSE² is RSS/n by construction.
	approx(t, ev.RMSE, math.Sqrt(m.RSS/float64(m.N)), 1e-9, "RMSE")
	approx(t, ev.R2, m.R2, 1e-9, "R2")
	if ev.LogScale || ev.OriginalScaleRMSE != 0 {
		t.Error("plain-scale evaluation should not set log fields")
	}
	if ev.MAE <= 0 || ev.MAE > ev.RMSE {
		t.Errorf("MAE = %v out of range (RMSE %v)", ev.MAE, ev.RMSE)
	}
}

func TestEvaluate_LogScaleBackTransform(t *testing.T) {
	d := multiplicativeDesign(13, 300)
	ld, err := LogResponse(d)
	if err != nil {
		t.Fatalf("LogResponse: %v", err)
	}
	m, err := regress.Fit(ld)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	ev, err := Evaluate(m, d, true)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ev.LogScale {
		t.Error("LogScale flag not set")
	}
	if ev.OriginalScaleRMSE <= 0 {
		t.Errorf("OriginalScaleRMSE = %v, want positive", ev.OriginalScaleRMSE)
	}
	// Log-scale RMSE should be near the noise SD of the generator.
	approx(t, ev.RMSE, 0.3, 0.08, "log-scale RMSE")

	d.Y[0] = -1
	if _, err := Evaluate(m, d, true); err == nil {
		t.Error("expected non-positive response error")
	}
}
