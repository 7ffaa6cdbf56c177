package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/internal/ml"
	"github.com/regforecast/backend/internal/repository/postgres"
	"github.com/regforecast/backend/internal/service"
)

// failingTrainer fails the series whose first value is failOn and fits the rest
type failingTrainer struct {
	ml.Trainer
	failOn float64
}

func (f failingTrainer) Train(ctx context.Context, samples []domain.Sample) (*ml.TrainedModel, error) {
	if len(samples) > 0 && samples[0].Value == f.failOn {
		return nil, domain.ErrDivergence
	}
	return f.Trainer.Train(ctx, samples)
}

func newTestApp(t *testing.T) (*postgres.MemoryRepository, *service.ForecastService, func(method, target string) (int, map[string]any)) {
	t.Helper()
	return newTestAppWith(t, ml.NewLinearTrainer())
}

func newTestAppWith(t *testing.T, trainer ml.Trainer) (*postgres.MemoryRepository, *service.ForecastService, func(method, target string) (int, map[string]any)) {
	t.Helper()

	var records []domain.RegistrationRecord
	for i, y := range []int{2018, 2019, 2020} {
		records = append(records,
			domain.RegistrationRecord{Year: y, State: "New York", Auto: 100 + float64(i)*10, Bus: 5, Truck: 40 + float64(i), Motorcycle: 3 + float64(i)},
		)
	}
	// Bus has no variation in Vermont and Auto is absent
	records = append(records, domain.RegistrationRecord{Year: 2020, State: "Vermont", Bus: 2})

	repo := postgres.NewMemoryRepository(records...)
	svc := service.NewForecastService(repo, service.NewOrchestrator(trainer, 0), []int{2021, 2022})
	app := NewApp(NewHandler(svc, repo, 0))

	do := func(method, target string) (int, map[string]any) {
		resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(body, &out), string(body))
		return resp.StatusCode, out
	}
	return repo, svc, do
}

func TestHandler_HealthAndRegions(t *testing.T) {
	_, _, do := newTestApp(t)

	code, body := do("GET", "/health")
	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", body["status"])

	code, body = do("GET", "/api/v1/regions")
	assert.Equal(t, 200, code)
	assert.Equal(t, []any{"New York", "Vermont"}, body["data"])
}

func TestHandler_History(t *testing.T) {
	_, _, do := newTestApp(t)

	code, body := do("GET", "/api/v1/regions/"+url.PathEscape("New York")+"/history?year=2019")
	require.Equal(t, 200, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, 110.0, data["auto"])

	code, _ = do("GET", "/api/v1/regions/Vermont/history?year=1999")
	assert.Equal(t, 404, code)

	code, _ = do("GET", "/api/v1/regions/Vermont/history")
	assert.Equal(t, 400, code)
}

func TestHandler_Forecast(t *testing.T) {
	_, svc, do := newTestApp(t)
	defer svc.WaitBackground()

	code, body := do("POST", "/api/v1/regions/"+url.PathEscape("New York")+"/forecast")
	require.Equal(t, 200, code)

	data := body["data"].(map[string]any)
	assert.Equal(t, []any{2018.0, 2019.0, 2020.0, 2021.0, 2022.0}, data["years"])

	auto := data["series"].(map[string]any)["Auto"].(map[string]any)
	assert.Equal(t, true, auto["available"])
	values := auto["values"].([]any)
	require.Len(t, values, 5)
	assert.InDelta(t, 140.0, values[4].(float64), 1e-6)

	totals := data["totals"].([]any)
	require.Len(t, totals, 4)
	first := totals[0].(map[string]any)
	assert.Equal(t, "Auto", first["category"])
	assert.InDelta(t, 100+110+120+130+140, first["total"].(float64), 1e-6)
}

func TestHandler_ForecastUnknownRegion(t *testing.T) {
	_, _, do := newTestApp(t)

	code, body := do("POST", "/api/v1/regions/Atlantis/forecast")
	assert.Equal(t, 404, code)
	assert.Equal(t, true, body["error"])
}

func TestHandler_RegionTotals(t *testing.T) {
	_, _, do := newTestApp(t)

	code, body := do("GET", "/api/v1/summary/regions?category=bus")
	require.Equal(t, 200, code)
	assert.Equal(t, "Bus", body["category"])

	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, 15.0, data[0].(map[string]any)["total"])
	assert.Equal(t, 2.0, data[1].(map[string]any)["total"])

	code, _ = do("GET", "/api/v1/summary/regions?category=tractor")
	assert.Equal(t, 400, code)
}

func TestHandler_ForecastUnavailableCategoryIsNull(t *testing.T) {
	// New York trucks start at 40
	_, svc, do := newTestAppWith(t, failingTrainer{Trainer: ml.NewLinearTrainer(), failOn: 40})
	defer svc.WaitBackground()

	code, body := do("POST", "/api/v1/regions/"+url.PathEscape("New York")+"/forecast")
	require.Equal(t, 200, code)
	data := body["data"].(map[string]any)

	truck := data["series"].(map[string]any)["Truck"].(map[string]any)
	assert.Equal(t, false, truck["available"])
	assert.Contains(t, truck, "training_error")
	assert.Nil(t, truck["training_error"])
	assert.Equal(t, []any{40.0, 41.0, 42.0, nil, nil}, truck["values"])

	auto := data["series"].(map[string]any)["Auto"].(map[string]any)
	assert.Equal(t, true, auto["available"])
	assert.NotNil(t, auto["training_error"])

	totals := data["totals"].([]any)
	require.Len(t, totals, 4)
	truckTotal := totals[2].(map[string]any)
	assert.Equal(t, "Truck", truckTotal["category"])
	assert.Equal(t, true, truckTotal["unavailable"])
	assert.InDelta(t, 123.0, truckTotal["total"].(float64), 1e-9)
	assert.Equal(t, false, totals[0].(map[string]any)["unavailable"])
}

func TestHandler_ForecastLogKeepsRegionAfterLaterRequests(t *testing.T) {
	repo, svc, do := newTestApp(t)

	code, _ := do("POST", "/api/v1/regions/"+url.PathEscape("New York")+"/forecast")
	require.Equal(t, 200, code)
	svc.WaitBackground()

	for i := 0; i < 5; i++ {
		code, _ = do("GET", "/api/v1/regions/Vermont/history?year=2020")
		require.Equal(t, 200, code)
	}

	logs := repo.ForecastLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "New York", logs[0].Region)
}
