package ml

import (
	"fmt"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/pkg/utils"
)

// Predict applies a trained model to future years and returns values in original units.
// Years are scaled with the model's own year params, never refit.
// The call is all-or-nothing: any non-finite value fails the whole batch.
func Predict(model *TrainedModel, futureYears []int) ([]float64, error) {
	if model == nil || model.Regressor == nil {
		return nil, domain.ErrNoModel
	}

	out := make([]float64, len(futureYears))
	for i, year := range futureYears {
		x := Scale(float64(year), model.YearParams)
		y := model.Regressor.Predict(x)
		if !utils.IsFinite(y) {
			return nil, fmt.Errorf("%w: year %d produced %v", domain.ErrComputeFailed, year, y)
		}
		v := InverseScale(y, model.ValueParams)
		if !utils.IsFinite(v) {
			return nil, fmt.Errorf("%w: year %d denormalized to %v", domain.ErrComputeFailed, year, v)
		}
		out[i] = v
	}
	return out, nil
}
