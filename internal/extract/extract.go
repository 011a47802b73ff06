// Package extract pulls typed fields out of classified loan documents.
// Pattern extractors handle the structured form types; an LLM-backed
// extractor covers free-form documents. A static registry binds
// document types to extractor implementations at startup.
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgrange/loanpipe/internal/model"
)

// Extractor turns one document into typed fields.
type Extractor interface {
	// DocumentTypes lists the types this extractor can handle.
	DocumentTypes() []model.DocumentType
	// RequiredFields lists the fields that must be present for the
	// given type; missing ones downgrade the result to partial.
	RequiredFields(docType model.DocumentType) []string
	// CanProcess reports whether this extractor accepts the file.
	CanProcess(path string, docType model.DocumentType) bool
	// Extract reads the document and returns its fields.
	Extract(ctx context.Context, path string, docType model.DocumentType) (model.ExtractionResult, error)
}

// Registry is a fixed document-type to extractor table, built once at
// startup. Lookups after construction are read-only and safe for
// concurrent use.
type Registry struct {
	byType map[model.DocumentType]Extractor
	log    *slog.Logger
}

// NewRegistry builds a registry from the given extractors. Later
// extractors win on overlapping document types.
func NewRegistry(log *slog.Logger, extractors ...Extractor) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{byType: make(map[model.DocumentType]Extractor), log: log}
	for _, ex := range extractors {
		for _, dt := range ex.DocumentTypes() {
			r.byType[dt] = ex
		}
	}
	return r
}

// DefaultRegistry wires the standard pattern extractors.
func DefaultRegistry(log *slog.Logger, pdftotextFallback bool) *Registry {
	return NewRegistry(log,
		NewPersonalStatementExtractor(log, pdftotextFallback),
		NewFinancialStatementExtractor(log, pdftotextFallback),
		NewDebtScheduleExtractor(log, pdftotextFallback),
	)
}

// ForType returns the extractor registered for a document type.
func (r *Registry) ForType(docType model.DocumentType) (Extractor, bool) {
	ex, ok := r.byType[docType]
	return ex, ok
}

// Extract resolves the extractor for the document type, probes it with
// CanProcess, and runs the extraction.
func (r *Registry) Extract(ctx context.Context, path string, docType model.DocumentType) (model.ExtractionResult, error) {
	ex, ok := r.byType[docType]
	if !ok {
		return model.ExtractionResult{}, fmt.Errorf("no extractor registered for document type %q", docType)
	}
	if !ex.CanProcess(path, docType) {
		return model.ExtractionResult{}, fmt.Errorf("extractor for %q cannot process %s", docType, path)
	}
	return ex.Extract(ctx, path, docType)
}
