// Package report renders batch reports for export.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/refbundle/refbundle/internal/refs"
)

// CSV renders the report as a tabular export. It is a pure projection of the
// BatchReport: one row per reference plus a header.
func CSV(rep refs.BatchReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "title", "source_url", "status", "output_name", "error"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rep.Rows {
		record := []string{
			strconv.Itoa(row.ID),
			row.Title,
			row.SourceURL,
			string(row.Status),
			row.OutputName,
			row.Error,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", row.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
