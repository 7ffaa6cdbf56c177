package service

import (
	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/pkg/utils"
)

// TotalsByRegion sums one category's history per region, in dataset order.
// domain.CategoryAll sums all four categories.
func TotalsByRegion(ds domain.Dataset, category domain.Category) []domain.RegionSummary {
	summaries := make([]domain.RegionSummary, 0, len(ds.Regions))
	for _, region := range ds.Regions {
		series := ds.Series[region]

		cats := []domain.Category{category}
		if category == domain.CategoryAll {
			cats = domain.Categories
		}

		summary := domain.RegionSummary{Region: region}
		for _, c := range cats {
			for _, s := range series[c] {
				total, missing := addFinite(summary.Total, s.Value)
				summary.Total = total
				summary.HasUnavailable = summary.HasUnavailable || missing
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// TotalsByCategory sums each category's merged historical + forecast series
func TotalsByCategory(result domain.ForecastResult) []domain.CategoryTotal {
	totals := make([]domain.CategoryTotal, 0, len(result.Series))
	for _, c := range domain.Categories {
		series, ok := result.Series[c]
		if !ok {
			continue
		}
		t := domain.CategoryTotal{Category: c, Unavailable: !series.Available}
		for _, v := range series.Values {
			total, missing := addFinite(t.Total, v)
			t.Total = total
			t.Unavailable = t.Unavailable || missing
		}
		totals = append(totals, t)
	}
	return totals
}

// addFinite adds v to sum, counting NaN and Inf as 0
func addFinite(sum, v float64) (float64, bool) {
	if !utils.IsFinite(v) {
		return sum, true
	}
	return sum + v, false
}
