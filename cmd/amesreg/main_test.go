package main

import (
	"bytes"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeCSV(t *testing.T) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(11, 0))
	var sb strings.Builder
	sb.WriteString("Id,Area,Qual,Neighborhood,SalePrice\n")
	for i := 0; i < 120; i++ {
		area := 1 + 2*rng.Float64()
		qual := 1 + 4*rng.Float64()
		price := math.Exp(5 + 0.8*area + 0.5*qual + 0.1*rng.NormFloat64())
		hood := "OldTown"
		if i%2 == 0 {
			hood = "Edwards"
		}
		fmt.Fprintf(&sb, "%d,%.4f,%.4f,%s,%.2f\n", i+1, area, qual, hood, price)
	}
	path := filepath.Join(t.TempDir(), "housing.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCommand_EndToEnd(t *testing.T) {
	csv := writeCSV(t)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "run",
		"--data", csv,
		"--response", "SalePrice",
		"--drop", "Id",
		"--replicates", "20",
		"--cv-folds", "4",
		"--workers", "2",
		"--seed", "7",
		"--save", "--db", db)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"Bootstrap selection", "Area", "Held-out evaluation"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %q\n%s", want, out)
		}
	}

	out, err = execute(t, "runs", "--db", db)
	if err != nil {
		t.Fatalf("runs: %v\n%s", err, out)
	}
	if !strings.Contains(out, csv) {
		t.Errorf("runs table missing dataset path\n%s", out)
	}

	out, err = execute(t, "show", "1", "--db", db)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	for _, want := range []string{"Run 1", "Term frequencies", "rmse"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q\n%s", want, out)
		}
	}
}

func TestInspectCommand(t *testing.T) {
	csv := writeCSV(t)
	out, err := execute(t, "inspect",
		"--data", csv,
		"--response", "SalePrice",
		"--drop", "Id")
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	for _, want := range []string{"120 rows", "Neighborhood", "categorical", "numeric"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q\n%s", want, out)
		}
	}
}

func TestSelectCommand(t *testing.T) {
	csv := writeCSV(t)
	out, err := execute(t, "select",
		"--data", csv,
		"--response", "SalePrice",
		"--drop", "Id",
		"--replicates", "20",
		"--cv-folds", "4",
		"--seed", "7")
	if err != nil {
		t.Fatalf("select: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Bootstrap selection") || !strings.Contains(out, "Qual") {
		t.Errorf("select output incomplete:\n%s", out)
	}
}

func TestRunCommand_MissingData(t *testing.T) {
	if _, err := execute(t, "run", "--data", "", "--replicates", "5"); err == nil ||
		!strings.Contains(err.Error(), "path") {
		t.Fatalf("run without data = %v, want path error", err)
	}
}

func TestShowCommand_BadID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	if _, err := execute(t, "show", "abc", "--db", db); err == nil {
		t.Fatal("expected error for non-numeric run id")
	}
	if _, err := execute(t, "show", "7", "--db", db); err == nil ||
		!strings.Contains(err.Error(), "not found") {
		t.Fatalf("show missing run = %v, want not found", err)
	}
}
