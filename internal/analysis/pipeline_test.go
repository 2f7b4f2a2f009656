package analysis

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"amesreg/internal/config"
)

// writeHousingCSV generates a small multiplicative-response table: two
// real predictors, one noise predictor, one inert neighborhood factor.
func writeHousingCSV(t *testing.T, rows int) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(99, 0))
	var sb strings.Builder
	sb.WriteString("Id,Area,Qual,Noise,Neighborhood,SalePrice\n")
	hoods := []string{"OldTown", "Edwards"}
	for i := 0; i < rows; i++ {
		area := 1 + 2*rng.Float64()
		qual := 1 + 4*rng.Float64()
		noise := rng.Float64()
		eps := 0.1 * rng.NormFloat64()
		price := math.Exp(5 + 0.8*area + 0.5*qual + eps)
		fmt.Fprintf(&sb, "%d,%.4f,%.4f,%.4f,%s,%.2f\n",
			i+1, area, qual, noise, hoods[i%2], price)
	}
	path := filepath.Join(t.TempDir(), "housing.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(path string) config.Config {
	cfg := config.Default()
	cfg.Dataset.Path = path
	cfg.Dataset.Response = "SalePrice"
	cfg.Dataset.Drop = []string{"Id"}
	cfg.Selection.Replicates = 30
	cfg.Selection.Folds = 4
	cfg.Selection.LambdaGrid = 20
	cfg.Selection.Workers = 2
	cfg.Seed = 7
	return cfg
}

func TestRun_FullPipeline(t *testing.T) {
	path := writeHousingCSV(t, 150)
	cfg := testConfig(path)

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Dataset.Rows != 150 || res.Dataset.TrainRows+res.Dataset.TestRows != 150 {
		t.Errorf("split accounting: %+v", res.Dataset)
	}
	for _, term := range []string{"Area", "Qual"} {
		if !slices.Contains(res.Selection.Selected, term) {
			t.Errorf("signal term %s not selected; got %v", term, res.Selection.Selected)
		}
	}

	// Multiplicative data: the Box-Cox interval should admit the log.
	if !res.LogResponse {
		t.Errorf("log response not adopted; box-cox %+v", res.BoxCox)
	}
	if res.BoxCox.CILow > 0 || res.BoxCox.CIHigh < 0 {
		t.Errorf("box-cox interval excludes 0: %+v", res.BoxCox)
	}

	if res.Model == nil || res.Model.R2 < 0.9 {
		t.Fatalf("final model fit too weak: %+v", res.Model)
	}
	if res.Residuals == nil || res.BreuschPagan == nil {
		t.Fatal("diagnostics missing")
	}

	// Log-scale noise SD is 0.1; held-out RMSE should land near it even
	// if a spurious interaction sneaks in.
	if res.Evaluation == nil || !res.Evaluation.LogScale {
		t.Fatalf("evaluation missing or on wrong scale: %+v", res.Evaluation)
	}
	if res.Evaluation.RMSE > 0.2 {
		t.Errorf("held-out RMSE %.4f too large", res.Evaluation.RMSE)
	}
	if res.Evaluation.OriginalScaleRMSE <= 0 {
		t.Errorf("original-scale RMSE not computed: %+v", res.Evaluation)
	}
}

func TestRun_Reproducible(t *testing.T) {
	path := writeHousingCSV(t, 120)
	cfg := testConfig(path)

	a, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	cfg.Selection.Workers = 1
	b, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if diff := cmp.Diff(a.Selection, b.Selection); diff != "" {
		t.Errorf("selection differs across worker counts (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(a.Model.Coefficients, b.Model.Coefficients); diff != "" {
		t.Errorf("coefficients differ across worker counts (-a +b):\n%s", diff)
	}
}

func TestRun_NoSelection(t *testing.T) {
	// A constant response leaves every replicate with an empty model,
	// so no term can reach the threshold.
	var sb strings.Builder
	sb.WriteString("Area,Qual,SalePrice\n")
	rng := rand.New(rand.NewPCG(3, 0))
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "%.4f,%.4f,100\n", rng.Float64(), rng.Float64())
	}
	path := filepath.Join(t.TempDir(), "flat.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(path)
	cfg.Dataset.Drop = nil
	if _, err := Run(context.Background(), cfg); err == nil ||
		!strings.Contains(err.Error(), "selection threshold") {
		t.Fatalf("Run = %v, want selection threshold error", err)
	}
}

func TestRecords(t *testing.T) {
	path := writeHousingCSV(t, 120)
	cfg := testConfig(path)
	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, freqs, metrics := res.Records()
	if run.DatasetPath != path || run.Seed != cfg.Seed || !run.LogResponse {
		t.Errorf("run record: %+v", run)
	}
	if len(freqs) != len(res.Selection.Frequencies) {
		t.Errorf("got %d frequency records, want %d", len(freqs), len(res.Selection.Frequencies))
	}
	names := make(map[string]bool)
	for _, m := range metrics {
		names[m.Name] = true
	}
	for _, want := range []string{"rmse", "mae", "r2_test", "r2_train", "rmse_original"} {
		if !names[want] {
			t.Errorf("metric %s missing", want)
		}
	}
}
