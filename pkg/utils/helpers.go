package utils

import (
	"math"
)

// RoundTo rounds a float to specified decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// IsFinite reports whether value is neither NaN nor infinite
func IsFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// Nullable returns nil for NaN/Inf so the value can be encoded as JSON null
func Nullable(value float64) *float64 {
	if !IsFinite(value) {
		return nil
	}
	return &value
}

// NullableSlice applies Nullable to every element
func NullableSlice(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = Nullable(v)
	}
	return out
}
