// Package textract pulls raw text out of the document formats a loan
// package arrives in. Extraction is lossy: downstream stages only need
// label/value text, not layout.
package textract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Result is the raw text pulled from one document.
type Result struct {
	Text     string
	Pages    int
	Method   string
	Warnings []string
}

// Extractor converts one file into raw text.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (Result, error)
}

// SupportedExtensions lists file extensions this package can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".xlsx":     true,
	".xlsm":     true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string, pdftotextFallback bool) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: pdftotextFallback}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	case ".xlsx", ".xlsm":
		return &XLSXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
