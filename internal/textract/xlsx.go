package textract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor handles spreadsheet workbooks. Financial statements are
// mostly label/value layouts, so two-cell rows come out as "label: value"
// lines; wider rows are tab-joined. Each sheet becomes a page.
type XLSXExtractor struct{}

func (e *XLSXExtractor) ExtractText(ctx context.Context, path string) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	var warnings []string
	sheets := f.GetSheetList()

	for i, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("sheet %q: %v", sheet, err))
			continue
		}
		if i > 0 {
			buf.WriteString("\f")
		}
		buf.WriteString(sheet + "\n")
		for _, row := range rows {
			cells := nonEmptyCells(row)
			switch len(cells) {
			case 0:
				continue
			case 2:
				buf.WriteString(cells[0] + ": " + cells[1] + "\n")
			default:
				buf.WriteString(strings.Join(cells, "\t") + "\n")
			}
		}
	}

	return Result{
		Text:     buf.String(),
		Pages:    len(sheets),
		Method:   "xlsx",
		Warnings: warnings,
	}, nil
}

func nonEmptyCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}
