package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/regforecast/backend/internal/domain"
)

// ParseCSV reads a header-first CSV feed
func ParseCSV(r io.Reader) ([]domain.RegistrationRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to read csv header: %w", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []domain.RegistrationRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: failed to read csv row: %w", err)
		}
		if rec, ok := cols.record(row); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
