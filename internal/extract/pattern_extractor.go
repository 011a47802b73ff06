package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgrange/loanpipe/internal/model"
	"github.com/dgrange/loanpipe/internal/textract"
)

// patternExtractor is the shared engine behind the form extractors:
// pull raw text, match each field pattern, then grade the result
// against the required-field list for the document type.
type patternExtractor struct {
	log               *slog.Logger
	pdftotextFallback bool
	patterns          map[model.DocumentType][]fieldPattern
	required          map[model.DocumentType][]string
	types             []model.DocumentType
}

func (p *patternExtractor) DocumentTypes() []model.DocumentType {
	return p.types
}

func (p *patternExtractor) RequiredFields(docType model.DocumentType) []string {
	return p.required[docType]
}

func (p *patternExtractor) CanProcess(path string, docType model.DocumentType) bool {
	if _, ok := p.patterns[docType]; !ok {
		return false
	}
	return textract.IsSupportedExtension(path)
}

func (p *patternExtractor) Extract(ctx context.Context, path string, docType model.DocumentType) (model.ExtractionResult, error) {
	start := time.Now()

	patterns, ok := p.patterns[docType]
	if !ok {
		return model.ExtractionResult{}, fmt.Errorf("document type %q not handled by this extractor", docType)
	}

	ex, err := textract.ForFile(path, p.pdftotextFallback)
	if err != nil {
		return model.ExtractionResult{}, err
	}
	raw, err := ex.ExtractText(ctx, path)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("extract text from %s: %w", path, err)
	}

	res := model.ExtractionResult{
		DocumentType: docType,
		RawText:      raw.Text,
		Metadata: map[string]string{
			"extraction_method": raw.Method,
			"source_path":       path,
		},
	}
	for _, w := range raw.Warnings {
		res.Errors = append(res.Errors, w)
	}

	var confSum float64
	for _, fp := range patterns {
		field, found := findField(raw.Text, fp)
		if !found {
			continue
		}
		res.Fields = append(res.Fields, field)
		confSum += field.Confidence
	}

	for _, name := range p.required[docType] {
		if res.Field(name) == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("required field %q not found", name))
		}
	}

	switch {
	case len(res.Fields) == 0:
		res.Status = model.StatusFailed
		res.Errors = append(res.Errors, "no fields matched")
	case len(res.Errors) > 0:
		res.Status = model.StatusPartial
	default:
		res.Status = model.StatusSuccess
	}
	if len(res.Fields) > 0 {
		res.ConfidenceScore = confSum / float64(len(res.Fields))
	}
	res.ProcessingTime = time.Since(start)

	p.log.Debug("pattern extraction finished",
		"path", path,
		"document_type", docType,
		"fields", len(res.Fields),
		"status", res.Status,
		"duration_ms", res.ProcessingTime.Milliseconds())
	return res, nil
}
