package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/regforecast/backend/internal/domain"
)

// ForecastService serves region selections on top of the registrations store.
// Within a session only the latest selection may produce a result.
type ForecastService struct {
	repo         DataRepository
	orchestrator *Orchestrator
	futureYears  []int

	mu         sync.Mutex
	generation uint64
	selections map[string]*selection

	wgBg sync.WaitGroup // tracks background forecast log writes for graceful shutdown
}

type selection struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewForecastService creates a new forecast service
func NewForecastService(repo DataRepository, orchestrator *Orchestrator, futureYears []int) *ForecastService {
	return &ForecastService{
		repo:         repo,
		orchestrator: orchestrator,
		futureYears:  append([]int(nil), futureYears...),
		selections:   make(map[string]*selection),
	}
}

// FutureYears returns the configured forecast horizon
func (s *ForecastService) FutureYears() []int {
	return append([]int(nil), s.futureYears...)
}

// WaitBackground blocks until all background log writes complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *ForecastService) WaitBackground() {
	s.wgBg.Wait()
}

// Select trains and forecasts every category of region. A newer Select on the
// same session cancels this one, which then returns domain.ErrSuperseded.
func (s *ForecastService) Select(ctx context.Context, sessionID, region string) (domain.ForecastResult, error) {
	series, err := s.repo.GetRegionSeries(ctx, region)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast: failed to load region %q: %w", region, err)
	}

	runCtx, generation := s.begin(ctx, sessionID)
	defer s.finish(sessionID, generation)

	result, err := s.orchestrator.RunForRegion(runCtx, region, series, s.futureYears)
	if !s.isCurrent(sessionID, generation) {
		return domain.ForecastResult{}, domain.ErrSuperseded
	}
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast: failed to run region %q: %w", region, err)
	}

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveForecastLog(bgCtx, result); err != nil {
			log.Printf("Failed to save forecast log: %v", err)
		}
	}()

	return result, nil
}

// begin registers a new selection for the session and cancels the previous one
func (s *ForecastService) begin(ctx context.Context, sessionID string) (context.Context, uint64) {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.selections[sessionID]; ok {
		prev.cancel()
	}
	s.generation++
	s.selections[sessionID] = &selection{generation: s.generation, cancel: cancel}
	return runCtx, s.generation
}

func (s *ForecastService) isCurrent(sessionID string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[sessionID]
	return ok && sel.generation == generation
}

// finish releases the selection if it is still the latest one
func (s *ForecastService) finish(sessionID string, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel, ok := s.selections[sessionID]; ok && sel.generation == generation {
		sel.cancel()
		delete(s.selections, sessionID)
	}
}

// Regions lists the regions available for selection
func (s *ForecastService) Regions(ctx context.Context) ([]string, error) {
	return s.repo.ListRegions(ctx)
}

// History returns the recorded registrations of a region for one year
func (s *ForecastService) History(ctx context.Context, region string, year int) (domain.RegistrationRecord, error) {
	return s.repo.GetRecord(ctx, region, year)
}

// RegionTotals sums a category over the full history of every region
func (s *ForecastService) RegionTotals(ctx context.Context, category domain.Category) ([]domain.RegionSummary, error) {
	records, err := s.repo.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("forecast: failed to list records: %w", err)
	}
	return TotalsByRegion(domain.GroupRecords(records), category), nil
}
