package domain

import (
	"context"
)

// RegistrationRepository defines the interface for registration persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type RegistrationRepository interface {
	// ListRegions returns region names in first-seen order
	ListRegions(ctx context.Context) ([]string, error)

	// ListRecords returns the whole feed ordered by region then year
	ListRecords(ctx context.Context) ([]RegistrationRecord, error)

	// GetRegionSeries returns the per-category history of a region
	GetRegionSeries(ctx context.Context, region string) (RegionSeries, error)

	// GetRecord returns a single (region, year) row
	GetRecord(ctx context.Context, region string, year int) (RegistrationRecord, error)

	// SaveRecords upserts feed rows keyed by (state, year)
	SaveRecords(ctx context.Context, records []RegistrationRecord) error

	// SaveForecastLog persists a finished forecast for auditing
	SaveForecastLog(ctx context.Context, result ForecastResult) error

	// Health checks storage connectivity
	Health(ctx context.Context) error
}
