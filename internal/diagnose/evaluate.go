package diagnose

import (
	"fmt"
	"math"

	"amesreg/internal/dataset"
	"amesreg/internal/regress"
)

// Evaluation holds held-out error metrics on the response scale the
// model was fitted on, plus original-scale RMSE for a log-response model.
type Evaluation struct {
	RMSE float64
	MAE  float64
	R2   float64

	// OriginalScaleRMSE is set for log-response models: predictions are
	// back-transformed with the lognormal mean correction
	// exp(ŷ + σ̂²/2) and scored against the raw response.
	OriginalScaleRMSE float64
	LogScale          bool
}

// Evaluate scores the model on a held-out design. When logScale is
// true, d's response must be the raw (untransformed) values; the model
// predicts on the log scale and is additionally scored on the original
// scale after back-transformation.
func Evaluate(model *regress.Model, d *dataset.Design, logScale bool) (*Evaluation, error) {
	pred, err := model.Predict(d)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	n := len(pred)
	if n == 0 {
		return nil, fmt.Errorf("evaluate: empty test set")
	}

	target := d.Y
	if logScale {
		target = make([]float64, n)
		for i, v := range d.Y {
			if v <= 0 {
				return nil, fmt.Errorf("evaluate: response %g at row %d is not positive", v, i)
			}
			target[i] = math.Log(v)
		}
	}

	ev := &Evaluation{LogScale: logScale}
	mean := 0.0
	for _, v := range target {
		mean += v
	}
	mean /= float64(n)

	var sse, sae, tss float64
	for i, p := range pred {
		r := p - target[i]
		sse += r * r
		sae += math.Abs(r)
		m := target[i] - mean
		tss += m * m
	}
	ev.RMSE = math.Sqrt(sse / float64(n))
	ev.MAE = sae / float64(n)
	if tss > 0 {
		ev.R2 = 1 - sse/tss
	}

	if logScale {
		var sseOrig float64
		half := model.Sigma2 / 2
		for i, p := range pred {
			back := math.Exp(p + half)
			r := back - d.Y[i]
			sseOrig += r * r
		}
		ev.OriginalScaleRMSE = math.Sqrt(sseOrig / float64(n))
	}
	return ev, nil
}
