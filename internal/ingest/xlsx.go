package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/regforecast/backend/internal/domain"
)

// LoadXLSX reads the first sheet of a workbook as a header-first feed
func LoadXLSX(path string) ([]domain.RegistrationRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("ingest: workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ingest: sheet %q is empty", sheets[0])
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	var records []domain.RegistrationRecord
	for _, row := range rows[1:] {
		if rec, ok := cols.record(row); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
