package client

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportFileName returns the download name for a CSV export, stamped with the
// current date.
func ExportFileName() string {
	return fmt.Sprintf("material_requests_%v.csv", time.Now().Format("20060102"))
}

// WriteCSV writes the request rows as CSV in the same column layout the
// backend export endpoint produces.
func WriteCSV(w io.Writer, rows []Request) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Material", "Quantity", "Unit", "Priority", "Status", "Requested By", "Date", "Notes"}); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	for _, row := range rows {
		notes := ""
		if row.Notes != nil {
			notes = *row.Notes
		}
		record := []string{
			row.MaterialName,
			strconv.FormatFloat(row.Quantity, 'f', -1, 64),
			row.Unit,
			row.Priority,
			row.Status,
			row.RequestedByName,
			row.RequestedAt.Format("2006-01-02"),
			notes,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing csv record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
