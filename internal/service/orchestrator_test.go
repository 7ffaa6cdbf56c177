package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/internal/ml"
)

func TestOrchestrator_MergedTimeline(t *testing.T) {
	orch := NewOrchestrator(ml.NewNeuralTrainer(ml.NeuralConfig{Seed: 11}), 4)
	series := fullRegion()
	future := years(2021, 2030)

	// Two runs: shapes and history must match regardless of training noise
	for run := 0; run < 2; run++ {
		result, err := orch.RunForRegion(context.Background(), "Ohio", series, future)
		require.NoError(t, err)

		require.Len(t, result.Years, 41)
		for i := 1; i < len(result.Years); i++ {
			assert.Greater(t, result.Years[i], result.Years[i-1])
		}
		assert.Equal(t, years(1990, 2020), result.HistoricalYears)
		assert.Equal(t, future, result.FutureYears)
		assert.NotEmpty(t, result.ID)

		for _, c := range domain.Categories {
			s := result.Series[c]
			require.Len(t, s.Values, 41, "category %s", c)
			assert.True(t, s.Available, "category %s", c)
			assert.Equal(t, values(series[c]), s.Values[:31], "history of %s must be untouched", c)
			require.NotNil(t, s.TrainingError)
			for _, v := range s.Values[31:] {
				assert.False(t, math.IsNaN(v))
			}
		}
	}
}

func TestOrchestrator_PartialFailureIsolation(t *testing.T) {
	orch := NewOrchestrator(ml.NewLinearTrainer(), 0)
	series := fullRegion()
	series[domain.CategoryBus] = nil

	result, err := orch.RunForRegion(context.Background(), "Ohio", series, years(2021, 2030))
	require.NoError(t, err)

	unavailable := 0
	for _, c := range domain.Categories {
		s := result.Series[c]
		require.Len(t, s.Values, 41)
		if !s.Available {
			unavailable++
			assert.Equal(t, domain.CategoryBus, c)
			assert.Nil(t, s.TrainingError)
			assert.NotEmpty(t, s.Error)
			for _, v := range s.Values[31:] {
				assert.True(t, math.IsNaN(v))
			}
			continue
		}
		preds := s.Values[31:]
		assert.Len(t, preds, 10)
		for _, v := range preds {
			assert.False(t, math.IsNaN(v))
		}
	}
	assert.Equal(t, 1, unavailable)

	acc := result.Accuracy()
	assert.Nil(t, acc[domain.CategoryBus])
	assert.NotNil(t, acc[domain.CategoryAuto])
}

func TestOrchestrator_UnionOfHistoricalYears(t *testing.T) {
	series := domain.RegionSeries{
		domain.CategoryAuto:       {{Year: 2000, Value: 1}, {Year: 2001, Value: 2}, {Year: 2002, Value: 3}},
		domain.CategoryBus:        {{Year: 2000, Value: 4}, {Year: 2002, Value: 6}},
		domain.CategoryTruck:      {{Year: 2000, Value: 7}, {Year: 2001, Value: 8}, {Year: 2002, Value: 9}},
		domain.CategoryMotorcycle: {{Year: 2002, Value: 1}, {Year: 2001, Value: 1}, {Year: 2000, Value: 1}},
	}

	result, err := NewOrchestrator(ml.NewLinearTrainer(), 2).RunForRegion(context.Background(), "X", series, []int{2003})
	require.NoError(t, err)

	assert.Equal(t, []int{2000, 2001, 2002, 2003}, result.Years)
	bus := result.Series[domain.CategoryBus]
	assert.Equal(t, []int{2001}, bus.MissingYears)
	assert.Equal(t, []float64{4, 0, 6}, bus.Values[:3])

	moto := result.Series[domain.CategoryMotorcycle]
	assert.True(t, moto.Degenerate)
	assert.Equal(t, []float64{1, 1, 1, 1}, moto.Values)
	assert.Empty(t, moto.MissingYears)
}

func TestOrchestrator_InvalidHorizon(t *testing.T) {
	orch := NewOrchestrator(ml.NewLinearTrainer(), 0)

	cases := map[string][]int{
		"empty":       nil,
		"overlapping": {2020, 2021},
		"unordered":   {2022, 2021},
		"duplicate":   {2021, 2021},
	}
	for name, future := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := orch.RunForRegion(context.Background(), "Ohio", fullRegion(), future)
			assert.True(t, errors.Is(err, domain.ErrInvalidHorizon))
		})
	}
}

func TestOrchestrator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOrchestrator(ml.NewNeuralTrainer(ml.NeuralConfig{}), 0).RunForRegion(ctx, "Ohio", fullRegion(), years(2021, 2030))
	assert.ErrorIs(t, err, context.Canceled)
}
