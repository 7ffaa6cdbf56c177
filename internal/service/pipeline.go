package service

import (
	"context"
	"fmt"
	"math"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/internal/ml"
)

// CategoryOutcome is the result of training and forecasting one category
type CategoryOutcome struct {
	Category         domain.Category
	HistoricalYears  []int
	HistoricalValues []float64
	// Predicted always has len(futureYears) entries; NaN when unavailable
	Predicted     []float64
	TrainingError float64
	Trained       bool
	Degenerate    bool
	Err           error
}

// Available reports whether Predicted holds real values
func (o CategoryOutcome) Available() bool {
	return o.Err == nil
}

// CategoryPipeline composes training and forecasting for one category series
type CategoryPipeline struct {
	trainer ml.Trainer
}

// NewCategoryPipeline creates a pipeline over the given backend
func NewCategoryPipeline(trainer ml.Trainer) *CategoryPipeline {
	return &CategoryPipeline{trainer: trainer}
}

// Run trains on historical samples and forecasts futureYears.
// Historical observations are returned as given, whatever the outcome.
func (p *CategoryPipeline) Run(ctx context.Context, category domain.Category, historical []domain.Sample, futureYears []int) CategoryOutcome {
	out := CategoryOutcome{
		Category:         category,
		HistoricalYears:  make([]int, len(historical)),
		HistoricalValues: make([]float64, len(historical)),
	}
	for i, s := range historical {
		out.HistoricalYears[i] = s.Year
		out.HistoricalValues[i] = s.Value
	}

	model, err := p.trainer.Train(ctx, historical)
	if err != nil {
		out.Err = fmt.Errorf("pipeline: failed to train %s: %w", category, err)
		out.Predicted = unavailable(len(futureYears))
		return out
	}
	out.Trained = true
	out.TrainingError = model.TrainingError
	out.Degenerate = model.Degenerate()

	preds, err := ml.Predict(model, futureYears)
	if err != nil {
		out.Err = fmt.Errorf("pipeline: failed to forecast %s: %w", category, err)
		out.Predicted = unavailable(len(futureYears))
		return out
	}
	out.Predicted = preds
	return out
}

func unavailable(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return vals
}
