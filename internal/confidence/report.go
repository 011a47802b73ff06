package confidence

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dgrange/loanpipe/internal/model"
)

// criticalFields must be present for a document to be actionable
// downstream; their absence always produces a recommendation.
var criticalFields = map[string]bool{
	"name":              true,
	"total_assets":      true,
	"total_liabilities": true,
	"net_worth":         true,
}

// Report analyzes every field of an extraction result and aggregates
// the analyses into a document-level confidence report.
func (s *Scorer) Report(res model.ExtractionResult, documentText string) DocumentReport {
	report := DocumentReport{
		DocumentType:  res.DocumentType,
		FieldAnalyses: make(map[string]FieldAnalysis, len(res.Fields)),
		Metadata: map[string]string{
			"total_fields":      strconv.Itoa(len(res.Fields)),
			"processing_time":   res.ProcessingTime.String(),
			"extraction_status": string(res.Status),
			"error_count":       strconv.Itoa(len(res.Errors)),
		},
	}

	var sum float64
	for _, field := range res.Fields {
		analysis := s.AnalyzeField(field, res.DocumentType, res.Fields, documentText)
		report.FieldAnalyses[field.Name] = analysis
		sum += analysis.FinalConfidence

		switch {
		case analysis.FinalConfidence < s.cfg.MediumConfidenceThreshold:
			report.ConfidenceDistribution.Low++
		case analysis.FinalConfidence < s.cfg.HighConfidenceThreshold:
			report.ConfidenceDistribution.Medium++
		default:
			report.ConfidenceDistribution.High++
		}
		if analysis.RequiresManualReview {
			report.ManualReviewFields = append(report.ManualReviewFields, field.Name)
		}
	}
	sort.Strings(report.ManualReviewFields)

	if len(res.Fields) > 0 {
		report.OverallConfidence = sum / float64(len(res.Fields))
	}
	report.ExtractionQualityScore = s.qualityScore(res, report.OverallConfidence)
	report.Recommendations = s.recommendations(res, report)

	s.log.Debug("confidence report",
		"document_type", res.DocumentType,
		"overall_confidence", report.OverallConfidence,
		"quality_score", report.ExtractionQualityScore,
		"manual_review_fields", len(report.ManualReviewFields))
	return report
}

// qualityScore blends important-field completion, mean confidence,
// error pressure, and processing time into a single 0..1 score.
func (s *Scorer) qualityScore(res model.ExtractionResult, overall float64) float64 {
	var score float64

	weights, ok := fieldWeights[res.DocumentType]
	if !ok {
		weights = defaultFieldWeights
	}
	var important, present int
	for name, w := range weights {
		if w < 0.8 {
			continue
		}
		important++
		if f := res.Field(name); f != nil && !f.Value.IsZero() {
			present++
		}
	}
	if important > 0 {
		score += 0.4 * float64(present) / float64(important)
	}

	if len(res.Fields) > 0 {
		score += 0.3 * overall
	}

	errPenalty := float64(len(res.Errors)) * 0.1
	if errPenalty > 0.3 {
		errPenalty = 0.3
	}
	score += 0.2 * (1 - errPenalty)

	processing := 1.0
	if secs := res.ProcessingTime.Seconds(); secs > 30 {
		processing = 1 - (secs-30)/60
		if processing < 0.5 {
			processing = 0.5
		}
	}
	score += 0.1 * processing

	return model.Clamp01(score)
}

func (s *Scorer) recommendations(res model.ExtractionResult, report DocumentReport) []string {
	var recs []string

	if report.ConfidenceDistribution.Low > 0 {
		recs = append(recs, fmt.Sprintf("Manually review %d low-confidence field(s)", report.ConfidenceDistribution.Low))
	}

	var missing []string
	for _, name := range sortedCriticalFields() {
		if f := res.Field(name); f == nil || f.Value.IsZero() {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		recs = append(recs, fmt.Sprintf("Critical fields missing or empty: %v", missing))
	}

	if len(res.Errors) > 0 {
		recs = append(recs, fmt.Sprintf("Resolve %d extraction error(s) before relying on this document", len(res.Errors)))
	}

	if total := len(res.Fields); total > 0 {
		if ratio := float64(report.ConfidenceDistribution.Low) / float64(total); ratio > 0.3 {
			recs = append(recs, "Consider re-extracting: over 30% of fields are low confidence")
		}
	}

	if res.ProcessingTime > 60*time.Second {
		recs = append(recs, "Extraction took unusually long; check document quality")
	}
	return recs
}

func sortedCriticalFields() []string {
	names := make([]string, 0, len(criticalFields))
	for name := range criticalFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
