package domain

import (
	"fmt"
	"strings"
)

// Category is a vehicle registration class
type Category string

const (
	CategoryAuto       Category = "Auto"
	CategoryBus        Category = "Bus"
	CategoryTruck      Category = "Truck"
	CategoryMotorcycle Category = "Motorcycle"

	// CategoryAll designates the sum of every category in region totals
	CategoryAll Category = "All"
)

// Categories lists the tracked classes in reporting order
var Categories = []Category{CategoryAuto, CategoryBus, CategoryTruck, CategoryMotorcycle}

// ParseCategory resolves a category name case-insensitively
func ParseCategory(name string) (Category, error) {
	n := strings.TrimSpace(name)
	if strings.EqualFold(n, string(CategoryAll)) {
		return CategoryAll, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(n, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("domain: unknown category %q", name)
}

// Sample is one observed (year, count) point of a category series
type Sample struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// RegionSeries holds the historical samples of every category for one region
type RegionSeries map[Category][]Sample

// RegistrationRecord is one row of the registrations feed
type RegistrationRecord struct {
	Year       int     `json:"year"`
	State      string  `json:"state"`
	Auto       float64 `json:"auto"`
	Bus        float64 `json:"bus"`
	Truck      float64 `json:"truck"`
	Motorcycle float64 `json:"motorcycle"`
}

// Value returns the count for a category
func (r RegistrationRecord) Value(c Category) float64 {
	switch c {
	case CategoryAuto:
		return r.Auto
	case CategoryBus:
		return r.Bus
	case CategoryTruck:
		return r.Truck
	case CategoryMotorcycle:
		return r.Motorcycle
	case CategoryAll:
		return r.Auto + r.Bus + r.Truck + r.Motorcycle
	}
	return 0
}

// Dataset is the full historical feed grouped by region.
// Regions keeps first-seen order so summaries are stable across runs.
type Dataset struct {
	Regions []string
	Series  map[string]RegionSeries
}

// GroupRecords builds a Dataset from feed rows
func GroupRecords(records []RegistrationRecord) Dataset {
	ds := Dataset{Series: make(map[string]RegionSeries)}
	for _, rec := range records {
		series, ok := ds.Series[rec.State]
		if !ok {
			series = make(RegionSeries, len(Categories))
			ds.Series[rec.State] = series
			ds.Regions = append(ds.Regions, rec.State)
		}
		for _, c := range Categories {
			series[c] = append(series[c], Sample{Year: rec.Year, Value: rec.Value(c)})
		}
	}
	return ds
}

// SeriesFromRecords builds the series of a single region
func SeriesFromRecords(records []RegistrationRecord) RegionSeries {
	series := make(RegionSeries, len(Categories))
	for _, c := range Categories {
		series[c] = make([]Sample, 0, len(records))
	}
	for _, rec := range records {
		for _, c := range Categories {
			series[c] = append(series[c], Sample{Year: rec.Year, Value: rec.Value(c)})
		}
	}
	return series
}
