package domain

import "time"

// CategorySeries is the merged historical + forecast series of one category
type CategorySeries struct {
	// Values has one entry per ForecastResult.Years; unavailable predictions are NaN
	Values        []float64 `json:"values"`
	TrainingError *float64  `json:"training_error"`
	Available     bool      `json:"available"`
	Degenerate    bool      `json:"degenerate"`
	Error         string    `json:"error,omitempty"`
	MissingYears  []int     `json:"missing_years,omitempty"`
}

// ForecastResult is the outcome of one region selection
type ForecastResult struct {
	ID              string                      `json:"id"`
	Region          string                      `json:"region"`
	Years           []int                       `json:"years"`
	HistoricalYears []int                       `json:"historical_years"`
	FutureYears     []int                       `json:"future_years"`
	Series          map[Category]CategorySeries `json:"series"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}

// Accuracy returns the final training loss per category; nil marks a failed training
func (r ForecastResult) Accuracy() map[Category]*float64 {
	acc := make(map[Category]*float64, len(r.Series))
	for c, s := range r.Series {
		acc[c] = s.TrainingError
	}
	return acc
}

// RegionSummary is the total registrations of one region across the timeline
type RegionSummary struct {
	Region         string  `json:"region"`
	Total          float64 `json:"total"`
	HasUnavailable bool    `json:"has_unavailable"`
}

// CategoryTotal is the total of one category over a merged forecast series
type CategoryTotal struct {
	Category    Category `json:"category"`
	Total       float64  `json:"total"`
	Unavailable bool     `json:"unavailable"`
}
