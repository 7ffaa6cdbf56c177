package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/internal/ml"
	"github.com/regforecast/backend/internal/repository/postgres"
)

const slowMarker = 999999

func seedRecords(state string, from, to int, auto float64) []domain.RegistrationRecord {
	var recs []domain.RegistrationRecord
	for i, y := range years(from, to) {
		recs = append(recs, domain.RegistrationRecord{
			Year:       y,
			State:      state,
			Auto:       auto + float64(i)*10,
			Bus:        100 + float64(i),
			Truck:      500 + float64(i)*3,
			Motorcycle: 50,
		})
	}
	return recs
}

// blockingTrainer parks any series that starts with slowMarker until its ctx is cancelled
func blockingTrainer(started chan<- struct{}) *stubTrainer {
	linear := ml.NewLinearTrainer()
	return &stubTrainer{train: func(ctx context.Context, samples []domain.Sample) (*ml.TrainedModel, error) {
		if len(samples) > 0 && samples[0].Value == slowMarker {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return linear.Train(ctx, samples)
	}}
}

func TestForecastService_Select(t *testing.T) {
	repo := postgres.NewMemoryRepository(seedRecords("Maine", 2000, 2010, 1000)...)
	svc := NewForecastService(repo, NewOrchestrator(ml.NewLinearTrainer(), 0), years(2011, 2015))

	result, err := svc.Select(context.Background(), "s1", "Maine")
	require.NoError(t, err)
	assert.Equal(t, "Maine", result.Region)
	assert.Len(t, result.Years, 16)
	assert.InDelta(t, 1150, result.Series[domain.CategoryAuto].Values[15], 1e-6)

	svc.WaitBackground()
	logs := repo.ForecastLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, result.ID, logs[0].ID)
}

func TestForecastService_UnknownRegion(t *testing.T) {
	svc := NewForecastService(postgres.NewMemoryRepository(), NewOrchestrator(ml.NewLinearTrainer(), 0), []int{2021})

	_, err := svc.Select(context.Background(), "s1", "Atlantis")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestForecastService_LastSelectionWins(t *testing.T) {
	records := append(seedRecords("Slow", 2000, 2005, slowMarker), seedRecords("Fast", 2000, 2005, 10)...)
	repo := postgres.NewMemoryRepository(records...)
	started := make(chan struct{}, len(domain.Categories))
	svc := NewForecastService(repo, NewOrchestrator(blockingTrainer(started), 0), []int{2006})

	type outcome struct {
		result domain.ForecastResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		r, err := svc.Select(context.Background(), "tab-1", "Slow")
		first <- outcome{r, err}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("slow selection never started training")
	}

	second, err := svc.Select(context.Background(), "tab-1", "Fast")
	require.NoError(t, err)
	assert.Equal(t, "Fast", second.Region)

	select {
	case got := <-first:
		assert.True(t, errors.Is(got.err, domain.ErrSuperseded))
		assert.Empty(t, got.result.Region)
	case <-time.After(5 * time.Second):
		t.Fatal("stale selection was not cancelled")
	}

	svc.WaitBackground()
	logs := repo.ForecastLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Fast", logs[0].Region)
}

func TestForecastService_RegionTotalsAndHistory(t *testing.T) {
	records := append(seedRecords("Maine", 2000, 2001, 1000), seedRecords("Idaho", 2000, 2000, 5)...)
	svc := NewForecastService(postgres.NewMemoryRepository(records...), NewOrchestrator(ml.NewLinearTrainer(), 0), []int{2021})

	totals, err := svc.RegionTotals(context.Background(), domain.CategoryAuto)
	require.NoError(t, err)
	assert.Equal(t, []domain.RegionSummary{
		{Region: "Maine", Total: 2010},
		{Region: "Idaho", Total: 5},
	}, totals)

	rec, err := svc.History(context.Background(), "Maine", 2001)
	require.NoError(t, err)
	assert.Equal(t, 1010.0, rec.Auto)

	regions, err := svc.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Maine", "Idaho"}, regions)
}
