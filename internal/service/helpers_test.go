package service

import (
	"context"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/internal/ml"
)

// stubTrainer lets a test decide the outcome of each training call
type stubTrainer struct {
	train func(ctx context.Context, samples []domain.Sample) (*ml.TrainedModel, error)
}

func (s *stubTrainer) Name() string { return "stub" }

func (s *stubTrainer) Train(ctx context.Context, samples []domain.Sample) (*ml.TrainedModel, error) {
	return s.train(ctx, samples)
}

type regressorFunc func(x float64) float64

func (f regressorFunc) Predict(x float64) float64 { return f(x) }

func years(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}

// growingSeries returns one sample per year with a linear trend
func growingSeries(from, to int, base, step float64) []domain.Sample {
	var samples []domain.Sample
	for i, y := range years(from, to) {
		samples = append(samples, domain.Sample{Year: y, Value: base + step*float64(i)})
	}
	return samples
}

func fullRegion() domain.RegionSeries {
	return domain.RegionSeries{
		domain.CategoryAuto:       growingSeries(1990, 2020, 100000, 2500),
		domain.CategoryBus:        growingSeries(1990, 2020, 900, 5),
		domain.CategoryTruck:      growingSeries(1990, 2020, 50000, 1200),
		domain.CategoryMotorcycle: growingSeries(1990, 2020, 8000, -30),
	}
}

func values(samples []domain.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}
