package ml

import (
	"context"
	"fmt"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/pkg/utils"
)

// linearFit is y = Slope*x + Intercept in normalized space
type linearFit struct {
	Slope     float64
	Intercept float64
}

func (f linearFit) Predict(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// LinearTrainer fits an ordinary least squares line; a cheap stand-in for the network
type LinearTrainer struct{}

// NewLinearTrainer creates a closed-form trainer
func NewLinearTrainer() *LinearTrainer {
	return &LinearTrainer{}
}

// Name identifies the backend
func (t *LinearTrainer) Name() string { return "linear" }

// Train solves the least squares line and reports its MSE as the training error
func (t *LinearTrainer) Train(ctx context.Context, samples []domain.Sample) (*TrainedModel, error) {
	ts, err := prepare(samples)
	if err != nil {
		return nil, fmt.Errorf("linear: failed to prepare samples: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := float64(len(ts.xs))
	var meanX, meanY float64
	for i := range ts.xs {
		meanX += ts.xs[i]
		meanY += ts.ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX float64
	for i := range ts.xs {
		dx := ts.xs[i] - meanX
		cov += dx * (ts.ys[i] - meanY)
		varX += dx * dx
	}

	fit := linearFit{Intercept: meanY}
	if varX > 0 {
		fit.Slope = cov / varX
		fit.Intercept = meanY - fit.Slope*meanX
	}

	var mse float64
	for i, x := range ts.xs {
		d := fit.Predict(x) - ts.ys[i]
		mse += d * d
	}
	mse /= n
	if !utils.IsFinite(mse) {
		return nil, fmt.Errorf("%w: loss %v", domain.ErrDivergence, mse)
	}

	return &TrainedModel{
		Regressor:     fit,
		YearParams:    ts.yearParams,
		ValueParams:   ts.valueParams,
		TrainingError: mse,
		Backend:       t.Name(),
	}, nil
}
