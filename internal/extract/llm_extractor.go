package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dgrange/loanpipe/internal/model"
	"github.com/dgrange/loanpipe/internal/textract"
)

// llmDocumentTypes are the free-form documents where fixed label
// patterns fall short and the model reads the form instead.
var llmDocumentTypes = []model.DocumentType{
	model.DocTypeTaxReturn,
	model.DocTypeTaxReturn1040,
	model.DocTypeTaxReturn1065,
	model.DocTypeTaxReturn1120S,
}

var llmRequiredFields = map[model.DocumentType][]string{
	model.DocTypeTaxReturn:      {"taxpayer_name", "tax_year"},
	model.DocTypeTaxReturn1040:  {"taxpayer_name", "tax_year", "adjusted_gross_income"},
	model.DocTypeTaxReturn1065:  {"business_name", "tax_year", "gross_receipts"},
	model.DocTypeTaxReturn1120S: {"business_name", "tax_year", "gross_receipts"},
}

// LLMExtractor extracts fields from documents the pattern extractors
// cannot handle, with retry on transient model failures.
type LLMExtractor struct {
	producer          FieldProducer
	log               *slog.Logger
	stats             *LLMStats
	pdftotextFallback bool
	maxAttempts       int
	baseBackoff       time.Duration
}

func NewLLMExtractor(producer FieldProducer, stats *LLMStats, log *slog.Logger, pdftotextFallback bool) *LLMExtractor {
	if log == nil {
		log = slog.Default()
	}
	return &LLMExtractor{
		producer:          producer,
		log:               log.With("extractor", "llm"),
		stats:             stats,
		pdftotextFallback: pdftotextFallback,
		maxAttempts:       3,
		baseBackoff:       2 * time.Second,
	}
}

func (e *LLMExtractor) DocumentTypes() []model.DocumentType {
	return llmDocumentTypes
}

func (e *LLMExtractor) RequiredFields(docType model.DocumentType) []string {
	return llmRequiredFields[docType]
}

func (e *LLMExtractor) CanProcess(path string, docType model.DocumentType) bool {
	if _, ok := llmRequiredFields[docType]; !ok {
		return false
	}
	return textract.IsSupportedExtension(path)
}

func (e *LLMExtractor) Extract(ctx context.Context, path string, docType model.DocumentType) (model.ExtractionResult, error) {
	start := time.Now()

	ex, err := textract.ForFile(path, e.pdftotextFallback)
	if err != nil {
		return model.ExtractionResult{}, err
	}
	raw, err := ex.ExtractText(ctx, path)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("extract text from %s: %w", path, err)
	}

	prompt := BuildFieldPrompt(docType, raw.Text)
	fields, err := e.produceWithRetry(ctx, docType, prompt)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("model extraction for %s: %w", path, err)
	}

	res := model.ExtractionResult{
		DocumentType: docType,
		RawText:      raw.Text,
		Metadata: map[string]string{
			"extraction_method": "llm",
			"source_path":       path,
		},
	}
	for _, wf := range fields {
		res.Fields = append(res.Fields, model.ExtractedField{
			Name:       wf.FieldName,
			Value:      wireValue(wf.Value),
			Confidence: wf.Confidence,
			RawText:    wf.RawText,
		})
	}

	var confSum float64
	for _, f := range res.Fields {
		confSum += f.Confidence
	}
	for _, name := range llmRequiredFields[docType] {
		if res.Field(name) == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("required field %q not found", name))
		}
	}
	switch {
	case len(res.Fields) == 0:
		res.Status = model.StatusFailed
		res.Errors = append(res.Errors, "model returned no fields")
	case len(res.Errors) > 0:
		res.Status = model.StatusPartial
	default:
		res.Status = model.StatusSuccess
	}
	if len(res.Fields) > 0 {
		res.ConfidenceScore = confSum / float64(len(res.Fields))
	}
	res.ProcessingTime = time.Since(start)
	return res, nil
}

// produceWithRetry retries transient model failures with exponential
// backoff and jitter. Schema rejections are permanent.
func (e *LLMExtractor) produceWithRetry(ctx context.Context, docType model.DocumentType, prompt string) ([]wireField, error) {
	backoff := e.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		callStart := time.Now()
		fields, err := e.producer.ProduceFields(ctx, prompt)
		if e.stats != nil {
			e.stats.Record(docType, time.Since(callStart).Milliseconds())
		}
		if err == nil {
			return fields, nil
		}
		lastErr = err

		var retryable *RetryableError
		if !errors.As(err, &retryable) {
			return nil, err
		}
		if attempt == e.maxAttempts {
			break
		}
		sleep := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		e.log.Warn("model call failed, retrying",
			"attempt", attempt,
			"backoff", sleep,
			"error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("model extraction failed after %d attempts: %w", e.maxAttempts, lastErr)
}

// wireValue converts a decoded JSON value into a field value.
func wireValue(v any) model.FieldValue {
	switch x := v.(type) {
	case string:
		return model.NewText(x)
	case float64:
		return model.NewNumber(x)
	case bool:
		if x {
			return model.NewText("true")
		}
		return model.NewText("false")
	default:
		return model.FieldValue{}
	}
}
