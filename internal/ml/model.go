package ml

import (
	"context"
	"fmt"
	"sort"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/pkg/utils"
)

// Regressor is a fitted function over normalized year -> normalized value
type Regressor interface {
	Predict(x float64) float64
}

// Trainer fits a model on one category's samples.
// Implementations must not retain or mutate the input slice.
type Trainer interface {
	Train(ctx context.Context, samples []domain.Sample) (*TrainedModel, error)
	Name() string
}

// TrainedModel bundles a fitted regressor with the scaling it was fit under
type TrainedModel struct {
	Regressor     Regressor
	YearParams    Params
	ValueParams   Params
	TrainingError float64
	Backend       string
}

// Degenerate reports whether either axis collapsed to a single value
func (m *TrainedModel) Degenerate() bool {
	return m.YearParams.Degenerate || m.ValueParams.Degenerate
}

// trainingSet is a sorted, validated and normalized copy of a sample series
type trainingSet struct {
	xs, ys      []float64
	yearParams  Params
	valueParams Params
}

func prepare(samples []domain.Sample) (trainingSet, error) {
	if len(samples) == 0 {
		return trainingSet{}, domain.ErrEmptyInput
	}

	sorted := make([]domain.Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Year < sorted[j].Year
	})

	years := make([]float64, len(sorted))
	values := make([]float64, len(sorted))
	for i, s := range sorted {
		if i > 0 && s.Year == sorted[i-1].Year {
			return trainingSet{}, fmt.Errorf("%w: duplicate year %d", domain.ErrInvalidSample, s.Year)
		}
		if !utils.IsFinite(s.Value) || s.Value < 0 {
			return trainingSet{}, fmt.Errorf("%w: value %v for year %d", domain.ErrInvalidSample, s.Value, s.Year)
		}
		years[i] = float64(s.Year)
		values[i] = s.Value
	}

	ts := trainingSet{}
	ts.xs, ts.yearParams = FitAndScale(years)
	ts.ys, ts.valueParams = FitAndScale(values)
	return ts, nil
}
