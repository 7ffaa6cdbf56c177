package http

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/internal/service"
	"github.com/regforecast/backend/pkg/utils"
)

// SessionHeader identifies the selecting client; a new selection on the same
// session supersedes the previous one
const SessionHeader = "X-Session-ID"

// Handler contains all HTTP handlers
type Handler struct {
	forecastSvc *service.ForecastService
	repo        service.DataRepository
	timeout     time.Duration
}

// NewHandler creates a new handler. timeout <= 0 disables the forecast deadline.
func NewHandler(forecastSvc *service.ForecastService, repo service.DataRepository, timeout time.Duration) *Handler {
	return &Handler{
		forecastSvc: forecastSvc,
		repo:        repo,
		timeout:     timeout,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	if err := h.repo.Health(c.UserContext()); err != nil {
		log.Printf("Health check failed: %v", err)
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"service": "regforecast-backend",
		"version": "1.0.0",
	})
}

// ListRegions returns the selectable regions
func (h *Handler) ListRegions(c *fiber.Ctx) error {
	regions, err := h.forecastSvc.Regions(c.UserContext())
	if err != nil {
		return mapError(err, "Failed to list regions")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    regions,
		"count":   len(regions),
	})
}

// GetHistory returns the recorded registrations of a region for one year
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	year := c.QueryInt("year", 0)
	if year == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Query parameter year is required")
	}

	rec, err := h.forecastSvc.History(c.UserContext(), c.Params("region"), year)
	if err != nil {
		return mapError(err, "Failed to fetch history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rec,
	})
}

// Forecast trains every category of a region and returns the merged series
func (h *Handler) Forecast(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	// Both values outlive the request in the background forecast log, so they
	// must not alias fiber's pooled buffers.
	session := fiberutils.CopyString(c.Get(SessionHeader))
	if session == "" {
		session = fiberutils.CopyString(c.IP())
	}
	region := fiberutils.CopyString(c.Params("region"))

	result, err := h.forecastSvc.Select(ctx, session, region)
	if err != nil {
		return mapError(err, "Failed to forecast region")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    newForecastResponse(result),
	})
}

// GetRegionTotals returns one total per region for the requested category
func (h *Handler) GetRegionTotals(c *fiber.Ctx) error {
	category, err := domain.ParseCategory(c.Query("category", string(domain.CategoryAuto)))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	totals, err := h.forecastSvc.RegionTotals(c.UserContext(), category)
	if err != nil {
		return mapError(err, "Failed to compute region totals")
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"category": category,
		"data":     totals,
	})
}

// seriesResponse is a CategorySeries with NaN cells encoded as null
type seriesResponse struct {
	Values        []*float64 `json:"values"`
	TrainingError *float64   `json:"training_error"`
	Available     bool       `json:"available"`
	Degenerate    bool       `json:"degenerate"`
	Error         string     `json:"error,omitempty"`
	MissingYears  []int      `json:"missing_years,omitempty"`
}

type forecastResponse struct {
	ID          string                             `json:"id"`
	Region      string                             `json:"region"`
	Years       []int                              `json:"years"`
	FutureYears []int                              `json:"future_years"`
	Series      map[domain.Category]seriesResponse `json:"series"`
	Totals      []domain.CategoryTotal             `json:"totals"`
	GeneratedAt time.Time                          `json:"generated_at"`
}

func newForecastResponse(result domain.ForecastResult) forecastResponse {
	resp := forecastResponse{
		ID:          result.ID,
		Region:      result.Region,
		Years:       result.Years,
		FutureYears: result.FutureYears,
		Series:      make(map[domain.Category]seriesResponse, len(result.Series)),
		Totals:      service.TotalsByCategory(result),
		GeneratedAt: result.GeneratedAt,
	}
	for c, s := range result.Series {
		sr := seriesResponse{
			Values:       utils.NullableSlice(s.Values),
			Available:    s.Available,
			Degenerate:   s.Degenerate,
			Error:        s.Error,
			MissingYears: s.MissingYears,
		}
		if s.TrainingError != nil {
			sr.TrainingError = utils.Nullable(utils.RoundTo(*s.TrainingError, 6))
		}
		resp.Series[c] = sr
	}
	return resp
}

func mapError(err error, message string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidHorizon):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSuperseded):
		return fiber.NewError(fiber.StatusConflict, "Selection superseded by a newer request")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "Forecast timed out")
	}
	log.Printf("%s: %v", message, err)
	return fiber.NewError(fiber.StatusInternalServerError, message)
}
