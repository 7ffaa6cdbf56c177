// Package ingest turns registration feed files into domain records.
// Numeric cells that are missing or unparseable count as 0; rows without a
// state or a year are skipped.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/regforecast/backend/internal/domain"
	"github.com/regforecast/backend/pkg/utils"
)

// LoadFile reads a .csv or .xlsx feed
func LoadFile(path string) ([]domain.RegistrationRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ingest: failed to open %s: %w", path, err)
		}
		defer f.Close()
		return ParseCSV(f)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("ingest: unsupported feed format %q", filepath.Ext(path))
	}
}

// columns maps feed headers to their positions
type columns struct {
	year, state int
	category    map[domain.Category]int
}

func mapHeader(header []string) (columns, error) {
	cols := columns{year: -1, state: -1, category: make(map[domain.Category]int)}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case strings.EqualFold(name, "year"):
			cols.year = i
		case strings.EqualFold(name, "state"):
			cols.state = i
		default:
			if c, err := domain.ParseCategory(name); err == nil && c != domain.CategoryAll {
				cols.category[c] = i
			}
		}
	}
	if cols.year < 0 || cols.state < 0 {
		return cols, fmt.Errorf("ingest: header must contain year and state columns, got %v", header)
	}
	return cols, nil
}

// record converts one row; ok is false when the row has no usable key
func (c columns) record(row []string) (domain.RegistrationRecord, bool) {
	state := strings.TrimSpace(cell(row, c.state))
	year, err := parseYear(cell(row, c.year))
	if state == "" || err != nil {
		return domain.RegistrationRecord{}, false
	}

	rec := domain.RegistrationRecord{Year: year, State: state}
	for cat, idx := range c.category {
		v := parseCount(cell(row, idx))
		switch cat {
		case domain.CategoryAuto:
			rec.Auto = v
		case domain.CategoryBus:
			rec.Bus = v
		case domain.CategoryTruck:
			rec.Truck = v
		case domain.CategoryMotorcycle:
			rec.Motorcycle = v
		}
	}
	return rec, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseYear accepts integer-like values such as "2020" or "2020.0"
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("ingest: invalid year %q", s)
	}
	return int(f), nil
}

func parseCount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !utils.IsFinite(v) || v < 0 {
		return 0
	}
	return v
}
