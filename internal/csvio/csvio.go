// =============================================================================
// Ticket Sheets - CSV Ingestion Module
// =============================================================================
//
// This module reads the ticketing platform's CSV export into a Dataset. It is
// a thin collaborator of the booking pipeline: the first row names the
// columns exactly as exported, every following row becomes one booking row of
// string cells. The pipeline never performs I/O itself; callers hand it the
// parsed table.
//
// The reader is configured defensively for messy real-world exports: lazy
// quoting, variable field counts and leading-space trimming.
//
// =============================================================================

package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// ErrNoHeader is returned when the input contains no rows at all.
var ErrNoHeader = errors.New("csv contains no header row")

// Read parses CSV data into a dataset of string cells.
//
// Rows shorter than the header are padded with empty cells; excess cells on a
// row are dropped. An input with a header but no data rows yields an empty
// dataset, which the pipeline reports as an empty-table condition.
func Read(r io.Reader) (*table.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	headers := records[0]
	ds := table.New(headers)

	for _, rec := range records[1:] {
		row := make(table.Row, len(headers))
		for i, col := range headers {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		ds.Append(row)
	}

	return ds, nil
}
