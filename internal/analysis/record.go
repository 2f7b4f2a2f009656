package analysis

import "amesreg/internal/store"

// Records flattens the result into store rows for persistence.
func (r *Result) Records() (*store.Run, []store.TermFrequency, []store.Metric) {
	run := &store.Run{
		DatasetPath: r.Dataset.Path,
		Response:    r.Config.Dataset.Response,
		Seed:        r.Config.Seed,
		Replicates:  r.Selection.Replicates,
		Threshold:   r.Selection.Threshold,
		LogResponse: r.LogResponse,
		BoxCoxLow:   r.BoxCox.CILow,
		BoxCoxHigh:  r.BoxCox.CIHigh,
		LambdaMin:   r.Selection.Lambdas.Min,
		LambdaMed:   r.Selection.Lambdas.Median,
		LambdaMax:   r.Selection.Lambdas.Max,
	}

	freqs := make([]store.TermFrequency, 0, len(r.Selection.Frequencies))
	for _, f := range r.Selection.Frequencies {
		freqs = append(freqs, store.TermFrequency{
			Term:      f.Term,
			Frequency: f.Frequency,
			Selected:  f.Selected,
		})
	}

	metrics := []store.Metric{
		{Name: "r2_train", Value: r.Model.R2},
		{Name: "adj_r2_train", Value: r.Model.AdjR2},
		{Name: "rmse", Value: r.Evaluation.RMSE},
		{Name: "mae", Value: r.Evaluation.MAE},
		{Name: "r2_test", Value: r.Evaluation.R2},
	}
	if r.LogResponse {
		metrics = append(metrics, store.Metric{Name: "rmse_original", Value: r.Evaluation.OriginalScaleRMSE})
	}
	return run, freqs, metrics
}
