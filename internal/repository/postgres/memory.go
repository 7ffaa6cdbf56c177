package postgres

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/regforecast/backend/internal/domain"
)

// MemoryRepository implements domain.RegistrationRepository in process memory.
// Used when no database is configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	regions []string
	records map[string]map[int]domain.RegistrationRecord
	logs    []domain.ForecastResult
}

// NewMemoryRepository creates a repository seeded with records
func NewMemoryRepository(records ...domain.RegistrationRecord) *MemoryRepository {
	r := &MemoryRepository{records: make(map[string]map[int]domain.RegistrationRecord)}
	r.put(records)
	return r
}

func (r *MemoryRepository) put(records []domain.RegistrationRecord) {
	for _, rec := range records {
		byYear, ok := r.records[rec.State]
		if !ok {
			byYear = make(map[int]domain.RegistrationRecord)
			r.records[rec.State] = byYear
			r.regions = append(r.regions, rec.State)
		}
		byYear[rec.Year] = rec
	}
}

// ListRegions returns states in the order they were first saved
func (r *MemoryRepository) ListRegions(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.regions...), nil
}

// ListRecords returns every row grouped by state, years ascending
func (r *MemoryRepository) ListRecords(ctx context.Context) ([]domain.RegistrationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.RegistrationRecord
	for _, state := range r.regions {
		out = append(out, r.sortedLocked(state)...)
	}
	return out, nil
}

// GetRegionSeries returns the per-category history of a state
func (r *MemoryRepository) GetRegionSeries(ctx context.Context, region string) (domain.RegionSeries, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.records[region]; !ok {
		return nil, fmt.Errorf("memory: region %q: %w", region, domain.ErrNotFound)
	}
	return domain.SeriesFromRecords(r.sortedLocked(region)), nil
}

// GetRecord returns the registrations of a state for one year
func (r *MemoryRepository) GetRecord(ctx context.Context, region string, year int) (domain.RegistrationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[region][year]
	if !ok {
		return domain.RegistrationRecord{}, fmt.Errorf("memory: record %s/%d: %w", region, year, domain.ErrNotFound)
	}
	return rec, nil
}

// SaveRecords upserts rows keyed by (state, year)
func (r *MemoryRepository) SaveRecords(ctx context.Context, records []domain.RegistrationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(records)
	return nil
}

// SaveForecastLog keeps the result in memory
func (r *MemoryRepository) SaveForecastLog(ctx context.Context, result domain.ForecastResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, result)
	return nil
}

// ForecastLogs returns the saved forecast results
func (r *MemoryRepository) ForecastLogs() []domain.ForecastResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ForecastResult(nil), r.logs...)
}

// Health always returns nil in memory mode
func (r *MemoryRepository) Health(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) sortedLocked(state string) []domain.RegistrationRecord {
	byYear := r.records[state]
	out := make([]domain.RegistrationRecord, 0, len(byYear))
	for _, rec := range byYear {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
