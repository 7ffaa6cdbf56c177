package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/internal/ml"
)

// Orchestrator runs one CategoryPipeline per category and merges the results
type Orchestrator struct {
	pipeline       *CategoryPipeline
	categories     []domain.Category
	maxConcurrency int
}

// NewOrchestrator creates an orchestrator over all tracked categories.
// maxConcurrency <= 0 runs every category at once.
func NewOrchestrator(trainer ml.Trainer, maxConcurrency int) *Orchestrator {
	return &Orchestrator{
		pipeline:       NewCategoryPipeline(trainer),
		categories:     domain.Categories,
		maxConcurrency: maxConcurrency,
	}
}

// RunForRegion trains and forecasts every category of a region concurrently.
// A failing category never aborts the others; only an invalid horizon or a
// cancelled ctx fail the whole call.
func (o *Orchestrator) RunForRegion(ctx context.Context, region string, series domain.RegionSeries, futureYears []int) (domain.ForecastResult, error) {
	historicalYears := unionYears(series, o.categories)
	if err := validateHorizon(historicalYears, futureYears); err != nil {
		return domain.ForecastResult{}, err
	}

	outcomes := make([]CategoryOutcome, len(o.categories))
	var g errgroup.Group
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}
	for i, cat := range o.categories {
		i, cat := i, cat
		g.Go(func() error {
			start := time.Now()
			outcomes[i] = o.pipeline.Run(ctx, cat, series[cat], futureYears)
			logOutcome(region, outcomes[i], time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.ForecastResult{}, err
	}

	years := make([]int, 0, len(historicalYears)+len(futureYears))
	years = append(years, historicalYears...)
	years = append(years, futureYears...)

	result := domain.ForecastResult{
		ID:              uuid.NewString(),
		Region:          region,
		Years:           years,
		HistoricalYears: historicalYears,
		FutureYears:     append([]int(nil), futureYears...),
		Series:          make(map[domain.Category]domain.CategorySeries, len(outcomes)),
		GeneratedAt:     time.Now(),
	}
	for _, out := range outcomes {
		result.Series[out.Category] = mergeSeries(historicalYears, out)
	}
	return result, nil
}

// mergeSeries aligns a category's history on the region's year union and
// appends its forecast. Years the category never observed hold 0.
func mergeSeries(historicalYears []int, out CategoryOutcome) domain.CategorySeries {
	byYear := make(map[int]float64, len(out.HistoricalYears))
	for i, y := range out.HistoricalYears {
		byYear[y] = out.HistoricalValues[i]
	}

	s := domain.CategorySeries{
		Values:     make([]float64, 0, len(historicalYears)+len(out.Predicted)),
		Available:  out.Available(),
		Degenerate: out.Degenerate,
	}
	for _, y := range historicalYears {
		v, ok := byYear[y]
		if !ok {
			s.MissingYears = append(s.MissingYears, y)
		}
		s.Values = append(s.Values, v)
	}
	s.Values = append(s.Values, out.Predicted...)

	if out.Trained {
		loss := out.TrainingError
		s.TrainingError = &loss
	}
	if out.Err != nil {
		s.Error = out.Err.Error()
	}
	return s
}

func unionYears(series domain.RegionSeries, categories []domain.Category) []int {
	seen := make(map[int]struct{})
	for _, c := range categories {
		for _, s := range series[c] {
			seen[s.Year] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func validateHorizon(historicalYears, futureYears []int) error {
	if len(futureYears) == 0 {
		return fmt.Errorf("%w: no future years", domain.ErrInvalidHorizon)
	}
	for i := 1; i < len(futureYears); i++ {
		if futureYears[i] <= futureYears[i-1] {
			return fmt.Errorf("%w: %d does not follow %d", domain.ErrInvalidHorizon, futureYears[i], futureYears[i-1])
		}
	}
	if n := len(historicalYears); n > 0 && futureYears[0] <= historicalYears[n-1] {
		return fmt.Errorf("%w: %d is not after last historical year %d", domain.ErrInvalidHorizon, futureYears[0], historicalYears[n-1])
	}
	return nil
}

func logOutcome(region string, out CategoryOutcome, took time.Duration) {
	switch {
	case out.Err != nil && out.Trained:
		log.Printf("Forecast %s/%s unavailable after training (loss %.6f): %v", region, out.Category, out.TrainingError, out.Err)
	case out.Err != nil:
		log.Printf("Forecast %s/%s unavailable: %v", region, out.Category, out.Err)
	case out.Degenerate:
		log.Printf("Forecast %s/%s is constant (degenerate range), loss %.6f in %v", region, out.Category, out.TrainingError, took)
	default:
		log.Printf("Forecast %s/%s trained, loss %.6f in %v", region, out.Category, out.TrainingError, took)
	}
}
