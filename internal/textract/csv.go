package textract

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVExtractor handles CSV files. Rows are rendered as "header: value"
// lines so label-driven field extraction works on the output.
type CSVExtractor struct{}

func (e *CSVExtractor) ExtractText(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Result{Method: "csv", Pages: 1}, nil
	}

	headers := records[0]
	var buf strings.Builder
	for _, row := range records[1:] {
		for j, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			if j < len(headers) {
				buf.WriteString(headers[j] + ": " + cell)
			} else {
				buf.WriteString(cell)
			}
			buf.WriteString("\n")
		}
	}

	// Two-column files are usually label/value sheets already.
	if len(headers) == 2 {
		buf.Reset()
		for _, row := range records {
			if len(row) >= 2 && strings.TrimSpace(row[0]) != "" {
				buf.WriteString(strings.TrimSpace(row[0]) + ": " + strings.TrimSpace(row[1]) + "\n")
			}
		}
	}

	return Result{Text: buf.String(), Pages: 1, Method: "csv"}, nil
}
