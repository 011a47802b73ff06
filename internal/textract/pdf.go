package textract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF files. It tries the Go library first,
// then falls back to pdftotext if available.
type PDFExtractor struct {
	FallbackPdftotext bool
}

func (e *PDFExtractor) ExtractText(ctx context.Context, path string) (Result, error) {
	text, pages, err := extractPDFText(path)
	if err != nil && e.FallbackPdftotext {
		fallbackText, fbErr := extractPdftotext(ctx, path)
		if fbErr == nil {
			return Result{
				Text:     fallbackText,
				Pages:    len(splitPages(fallbackText)),
				Method:   "pdf-pdftotext",
				Warnings: []string{fmt.Sprintf("native pdf extraction failed: %v", err)},
			}, nil
		}
		return Result{}, fmt.Errorf("extract pdf text: %w", err)
	}
	if err != nil {
		return Result{}, fmt.Errorf("extract pdf text: %w", err)
	}
	return Result{Text: text, Pages: pages, Method: "pdf-text"}, nil
}

func extractPDFText(path string) (string, int, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), numPages, nil
}

func extractPdftotext(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
