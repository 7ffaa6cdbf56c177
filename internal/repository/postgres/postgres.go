package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/pkg/utils"
)

const schema = `
	CREATE TABLE IF NOT EXISTS registrations (
		state       TEXT NOT NULL,
		year        INTEGER NOT NULL,
		auto        DOUBLE PRECISION NOT NULL DEFAULT 0,
		bus         DOUBLE PRECISION NOT NULL DEFAULT 0,
		truck       DOUBLE PRECISION NOT NULL DEFAULT 0,
		motorcycle  DOUBLE PRECISION NOT NULL DEFAULT 0,
		seq         BIGSERIAL,
		PRIMARY KEY (state, year)
	);
	CREATE TABLE IF NOT EXISTS forecast_logs (
		id            UUID PRIMARY KEY,
		region        TEXT NOT NULL,
		years         JSONB NOT NULL,
		series        JSONB NOT NULL,
		generated_at  TIMESTAMPTZ NOT NULL
	);
`

// PostgresRepository implements domain.RegistrationRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the tables if they do not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	return nil
}

// ListRegions returns states in the order they were first loaded
func (r *PostgresRepository) ListRegions(ctx context.Context) ([]string, error) {
	query := `
		SELECT state FROM registrations
		GROUP BY state
		ORDER BY MIN(seq)
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query regions: %w", err)
	}
	defer rows.Close()

	var regions []string
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan region row: %w", err)
		}
		regions = append(regions, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read regions: %w", err)
	}

	return regions, nil
}

// ListRecords returns every feed row, grouped by state in load order
func (r *PostgresRepository) ListRecords(ctx context.Context) ([]domain.RegistrationRecord, error) {
	query := `
		SELECT r.year, r.state, r.auto, r.bus, r.truck, r.motorcycle
		FROM registrations r
		JOIN (SELECT state, MIN(seq) AS first FROM registrations GROUP BY state) f
		  ON f.state = r.state
		ORDER BY f.first, r.year
	`
	return r.queryRecords(ctx, query)
}

// GetRegionSeries returns the per-category history of a state
func (r *PostgresRepository) GetRegionSeries(ctx context.Context, region string) (domain.RegionSeries, error) {
	query := `
		SELECT year, state, auto, bus, truck, motorcycle
		FROM registrations
		WHERE state = $1
		ORDER BY year
	`

	records, err := r.queryRecords(ctx, query, region)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("postgres: region %q: %w", region, domain.ErrNotFound)
	}

	return domain.SeriesFromRecords(records), nil
}

// GetRecord returns the registrations of a state for one year
func (r *PostgresRepository) GetRecord(ctx context.Context, region string, year int) (domain.RegistrationRecord, error) {
	query := `
		SELECT year, state, auto, bus, truck, motorcycle
		FROM registrations
		WHERE state = $1 AND year = $2
	`

	var rec domain.RegistrationRecord
	err := r.pool.QueryRow(ctx, query, region, year).Scan(
		&rec.Year, &rec.State, &rec.Auto, &rec.Bus, &rec.Truck, &rec.Motorcycle,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RegistrationRecord{}, fmt.Errorf("postgres: record %s/%d: %w", region, year, domain.ErrNotFound)
	}
	if err != nil {
		return domain.RegistrationRecord{}, fmt.Errorf("postgres: failed to get record: %w", err)
	}

	return rec, nil
}

// SaveRecords upserts feed rows in a single batch
func (r *PostgresRepository) SaveRecords(ctx context.Context, records []domain.RegistrationRecord) error {
	query := `
		INSERT INTO registrations (state, year, auto, bus, truck, motorcycle)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (state, year) DO UPDATE SET
			auto = EXCLUDED.auto,
			bus = EXCLUDED.bus,
			truck = EXCLUDED.truck,
			motorcycle = EXCLUDED.motorcycle
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, rec.State, rec.Year, rec.Auto, rec.Bus, rec.Truck, rec.Motorcycle)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: failed to save records: %w", err)
	}

	return nil
}

// SaveForecastLog persists a finished forecast
func (r *PostgresRepository) SaveForecastLog(ctx context.Context, result domain.ForecastResult) error {
	query := `
		INSERT INTO forecast_logs (id, region, years, series, generated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	years, err := json.Marshal(result.Years)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal years: %w", err)
	}
	series, err := json.Marshal(logSeries(result))
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal series: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, result.ID, result.Region, years, series, result.GeneratedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to save forecast log: %w", err)
	}

	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]domain.RegistrationRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query registrations: %w", err)
	}
	defer rows.Close()

	var results []domain.RegistrationRecord
	for rows.Next() {
		var rec domain.RegistrationRecord
		err := rows.Scan(&rec.Year, &rec.State, &rec.Auto, &rec.Bus, &rec.Truck, &rec.Motorcycle)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan registration row: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read registrations: %w", err)
	}

	return results, nil
}

// loggedSeries is the JSON shape of one category in forecast_logs.
// NaN is not valid JSON, so unavailable cells become null.
type loggedSeries struct {
	Values        []*float64 `json:"values"`
	TrainingError *float64   `json:"training_error"`
	Available     bool       `json:"available"`
	Degenerate    bool       `json:"degenerate"`
	Error         string     `json:"error,omitempty"`
}

func logSeries(result domain.ForecastResult) map[domain.Category]loggedSeries {
	out := make(map[domain.Category]loggedSeries, len(result.Series))
	for c, s := range result.Series {
		out[c] = loggedSeries{
			Values:        utils.NullableSlice(s.Values),
			TrainingError: s.TrainingError,
			Available:     s.Available,
			Degenerate:    s.Degenerate,
			Error:         s.Error,
		}
	}
	return out
}
