// Package report renders analysis results as ASCII or Markdown text.
package report

import (
	"fmt"
	"os"
	"strings"

	"amesreg/internal/analysis"
	"amesreg/internal/bootstrap"
	"amesreg/internal/dataset"
	"amesreg/internal/format"
	"amesreg/internal/store"
)

// Format renders the full run report: dataset, selection, model,
// diagnostics, and held-out evaluation.
func Format(res *analysis.Result, mode format.Mode) string {
	var sb strings.Builder

	heading(&sb, mode, "Dataset")
	sb.WriteString(datasetTable(res, mode))
	sb.WriteString("\n\n")

	heading(&sb, mode, fmt.Sprintf("Bootstrap selection (B=%d, threshold %.0f%%)",
		res.Selection.Replicates, res.Selection.Threshold*100))
	sb.WriteString(selectionTable(res.Selection, mode))
	sb.WriteString("\n\n")

	heading(&sb, mode, modelHeading(res))
	sb.WriteString(coefficientTable(res, mode))
	sb.WriteString("\n\n")

	heading(&sb, mode, "Diagnostics")
	sb.WriteString(diagnosticsTable(res, mode))
	sb.WriteString("\n\n")

	heading(&sb, mode, "Held-out evaluation")
	sb.WriteString(evaluationTable(res, mode))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Completed in %s.\n", format.FmtDuration(res.Elapsed)))
	return sb.String()
}

// WriteFile renders the report and writes it to path.
func WriteFile(path string, res *analysis.Result, mode format.Mode) error {
	if err := os.WriteFile(path, []byte(Format(res, mode)), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func heading(sb *strings.Builder, mode format.Mode, title string) {
	if mode == format.Markdown {
		sb.WriteString("## " + title + "\n\n")
		return
	}
	sb.WriteString(title + "\n")
}

func modelHeading(res *analysis.Result) string {
	scale := "original scale"
	if res.LogResponse {
		scale = "log scale"
	}
	return fmt.Sprintf("Model (%s, R²=%s, adj. R²=%s)",
		scale, format.Fixed(res.Model.R2, 3), format.Fixed(res.Model.AdjR2, 3))
}

func datasetTable(res *analysis.Result, mode format.Mode) string {
	t := format.NewTable(mode)
	t.Header("Rows", "Columns", "Encoded terms", "Imputed cells", "Train", "Test")
	t.Row(res.Dataset.Rows, res.Dataset.Columns, res.Dataset.Terms,
		res.Dataset.ImputedCells, res.Dataset.TrainRows, res.Dataset.TestRows)
	return t.String()
}

func selectionTable(sel *bootstrap.Selection, mode format.Mode) string {
	t := format.NewTable(mode)
	t.Header("Term", "Frequency", "Selected")
	t.Columns(
		format.ColumnConfig{Number: 2, Align: format.AlignRight},
		format.ColumnConfig{Number: 3, Align: format.AlignCenter},
	)
	for _, f := range sel.Frequencies {
		t.Row(f.Term, format.Fixed(f.Frequency, 3), format.BoolMark(f.Selected))
	}
	t.Footer("CV penalty (min/med/max)",
		fmt.Sprintf("%s / %s / %s",
			format.Fixed(sel.Lambdas.Min, 4),
			format.Fixed(sel.Lambdas.Median, 4),
			format.Fixed(sel.Lambdas.Max, 4)), "")
	return t.String()
}

// FormatSelection renders the selection stage alone, for `amesreg select`.
func FormatSelection(sel *bootstrap.Selection, ds *analysis.DatasetSummary, mode format.Mode) string {
	var sb strings.Builder
	heading(&sb, mode, fmt.Sprintf("Bootstrap selection (B=%d, threshold %.0f%%, %d train rows)",
		sel.Replicates, sel.Threshold*100, ds.TrainRows))
	sb.WriteString(selectionTable(sel, mode))
	sb.WriteString("\n")
	return sb.String()
}

func coefficientTable(res *analysis.Result, mode format.Mode) string {
	t := format.NewTable(mode)
	t.Header("Term", "Estimate", "Std. error", "t", "p")
	t.Columns(
		format.ColumnConfig{Number: 2, Align: format.AlignRight},
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, Align: format.AlignRight},
	)
	for _, c := range res.Model.Coefficients {
		t.Row(c.Term,
			format.Fixed(c.Estimate, 4),
			format.Fixed(c.StdErr, 4),
			format.Fixed(c.TStat, 2),
			format.PValue(c.PValue))
	}
	return t.String()
}

func diagnosticsTable(res *analysis.Result, mode format.Mode) string {
	t := format.NewTable(mode)
	t.Header("Check", "Statistic", "p / interval", "Verdict")
	t.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})

	t.Row("Residual skewness (raw fit)",
		format.Fixed(res.RawResiduals.Skewness, 3), "-", "")
	t.Row("Jarque-Bera (raw fit)",
		format.Fixed(res.RawResiduals.JarqueBera, 2),
		format.PValue(res.RawResiduals.JBPValue), "")

	verdict := "keep original scale"
	if res.LogResponse {
		verdict = "log response"
	}
	t.Row("Box-Cox lambda",
		format.Fixed(res.BoxCox.Lambda, 3),
		fmt.Sprintf("[%s, %s]",
			format.Fixed(res.BoxCox.CILow, 3), format.Fixed(res.BoxCox.CIHigh, 3)),
		verdict)

	t.Row("Residual skewness (final)",
		format.Fixed(res.Residuals.Skewness, 3), "-", "")
	t.Row("Jarque-Bera (final)",
		format.Fixed(res.Residuals.JarqueBera, 2),
		format.PValue(res.Residuals.JBPValue), "")
	t.Row("Breusch-Pagan",
		format.Fixed(res.BreuschPagan.LM, 2),
		format.PValue(res.BreuschPagan.PValue), "")

	for _, ir := range res.Interactions {
		note := "dropped"
		if ir.Kept {
			note = "kept"
		}
		t.Row("Interaction "+ir.Term,
			format.Fixed(ir.FTest.F, 2),
			format.PValue(ir.FTest.PValue), note)
	}
	return t.String()
}

func evaluationTable(res *analysis.Result, mode format.Mode) string {
	t := format.NewTable(mode)
	ev := res.Evaluation
	if ev.LogScale {
		t.Header("RMSE (log)", "MAE (log)", "R²", "RMSE (original)")
		t.Row(format.Fixed(ev.RMSE, 4), format.Fixed(ev.MAE, 4),
			format.Fixed(ev.R2, 3), format.Fixed(ev.OriginalScaleRMSE, 0))
	} else {
		t.Header("RMSE", "MAE", "R²")
		t.Row(format.Fixed(ev.RMSE, 2), format.Fixed(ev.MAE, 2), format.Fixed(ev.R2, 3))
	}
	return t.String()
}

// FormatDataset renders the ingest summary for `amesreg inspect`: one
// row per column with its detected type and imputation count.
func FormatDataset(tbl *dataset.Table, encodedTerms int, mode format.Mode) string {
	var sb strings.Builder
	heading(&sb, mode, fmt.Sprintf("%s (%d rows, %d columns, %d encoded terms)",
		tbl.Response, tbl.NRows, len(tbl.Columns), encodedTerms))

	t := format.NewTable(mode)
	t.Header("Column", "Type", "Levels", "Imputed")
	t.Columns(
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
	)
	for _, c := range tbl.Columns {
		levels := "-"
		if c.Kind == dataset.Categorical {
			levels = fmt.Sprint(len(distinct(c.Levels)))
		}
		t.Row(c.Name, c.Kind.String(), levels, c.Imputed)
	}
	t.Footer("Total", "", "", tbl.ImputedCells())
	sb.WriteString(t.String())
	sb.WriteString("\n")
	return sb.String()
}

func distinct(levels []string) []string {
	seen := make(map[string]struct{}, len(levels))
	var out []string
	for _, l := range levels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// FormatRuns renders the stored-run listing for `amesreg runs`.
func FormatRuns(runs []*store.Run, mode format.Mode) string {
	t := format.NewTable(mode)
	t.Header("ID", "Created", "Dataset", "Response", "B", "Threshold", "Log", "Seed")
	t.Columns(format.ColumnConfig{Number: 1, Align: format.AlignRight})
	for _, r := range runs {
		t.Row(r.ID, r.CreatedAt, format.Truncate(r.DatasetPath, 40), r.Response,
			r.Replicates, format.Fixed(r.Threshold, 2),
			format.BoolMark(r.LogResponse), r.Seed)
	}
	return t.String()
}

// FormatRunDetail renders one stored run with its frequencies and metrics.
func FormatRunDetail(run *store.Run, freqs []store.TermFrequency, metrics []store.Metric, mode format.Mode) string {
	var sb strings.Builder

	heading(&sb, mode, fmt.Sprintf("Run %d (%s)", run.ID, run.CreatedAt))
	info := format.NewTable(mode)
	info.Header("Dataset", "Response", "Seed", "B", "Threshold", "Log", "Penalty (min/med/max)")
	info.Row(run.DatasetPath, run.Response, run.Seed, run.Replicates,
		format.Fixed(run.Threshold, 2), format.BoolMark(run.LogResponse),
		fmt.Sprintf("%s / %s / %s",
			format.Fixed(run.LambdaMin, 4),
			format.Fixed(run.LambdaMed, 4),
			format.Fixed(run.LambdaMax, 4)))
	sb.WriteString(info.String())
	sb.WriteString("\n\n")

	heading(&sb, mode, "Term frequencies")
	ft := format.NewTable(mode)
	ft.Header("Term", "Frequency", "Selected")
	ft.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	for _, f := range freqs {
		ft.Row(f.Term, format.Fixed(f.Frequency, 3), format.BoolMark(f.Selected))
	}
	sb.WriteString(ft.String())
	sb.WriteString("\n\n")

	heading(&sb, mode, "Metrics")
	mt := format.NewTable(mode)
	mt.Header("Metric", "Value")
	mt.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	for _, m := range metrics {
		mt.Row(m.Name, format.Fixed(m.Value, 4))
	}
	sb.WriteString(mt.String())
	sb.WriteString("\n")

	return sb.String()
}
