// Package confidence turns noisy per-field extraction signals into a
// calibrated confidence score and a manual-review decision. Five
// independently-weighted factors adjust each field's base confidence;
// a document-level report aggregates the field analyses.
package confidence

import (
	"log/slog"

	"github.com/dgrange/loanpipe/internal/model"
)

// FactorType names one confidence signal.
type FactorType string

const (
	FactorPatternMatch      FactorType = "pattern_match"
	FactorFormatValidation  FactorType = "format_validation"
	FactorContextValidation FactorType = "context_validation"
	FactorCrossField        FactorType = "cross_field_validation"
	FactorCompleteness      FactorType = "field_completeness"
)

// Fixed factor weights. Absent factors are not redistributed.
const (
	weightPattern      = 0.30
	weightFormat       = 0.25
	weightContext      = 0.20
	weightCrossField   = 0.15
	weightCompleteness = 0.10
)

// factorScale limits how much the combined factors can move a base score.
const factorScale = 0.3

// Factor is a single weighted signal from one scoring pass.
type Factor struct {
	Type        FactorType `json:"factor_type"`
	Impact      float64    `json:"impact"`
	Weight      float64    `json:"weight"`
	Description string     `json:"description"`
	Evidence    string     `json:"evidence,omitempty"`
}

// FieldAnalysis is the detailed confidence breakdown for one field.
type FieldAnalysis struct {
	FieldName            string   `json:"field_name"`
	BaseConfidence       float64  `json:"base_confidence"`
	Factors              []Factor `json:"factors"`
	FinalConfidence      float64  `json:"final_confidence"`
	Reasoning            string   `json:"reasoning"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	ValidationNotes      []string `json:"validation_notes,omitempty"`
}

// Distribution buckets field confidences as low / medium / high counts.
type Distribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// DocumentReport is the confidence report for a whole extraction.
type DocumentReport struct {
	DocumentType           model.DocumentType       `json:"document_type"`
	OverallConfidence      float64                  `json:"overall_confidence"`
	FieldAnalyses          map[string]FieldAnalysis `json:"field_analyses"`
	ExtractionQualityScore float64                  `json:"extraction_quality_score"`
	ManualReviewFields     []string                 `json:"manual_review_fields"`
	ConfidenceDistribution Distribution             `json:"confidence_distribution"`
	Recommendations        []string                 `json:"recommendations"`
	Metadata               map[string]string        `json:"metadata,omitempty"`
}

// Config holds the scorer's thresholds. The zero value is not usable;
// construct with DefaultConfig and override as needed.
type Config struct {
	HighConfidenceThreshold   float64
	MediumConfidenceThreshold float64
	ManualReviewThreshold     float64
	ImportantFieldThreshold   float64
}

func DefaultConfig() Config {
	return Config{
		HighConfidenceThreshold:   0.8,
		MediumConfidenceThreshold: 0.5,
		ManualReviewThreshold:     0.6,
		ImportantFieldThreshold:   0.75,
	}
}

// importantFields always escalate to manual review below the important-field
// threshold, regardless of the generic review threshold.
var importantFields = map[string]bool{
	"name":                   true,
	"total_assets":           true,
	"total_liabilities":      true,
	"net_worth":              true,
	"social_security_number": true,
}

// fieldWeights rank field importance per document type; weight >= 0.8
// marks a field as important for the quality score.
var fieldWeights = map[model.DocumentType]map[string]float64{
	model.DocTypePFS: {
		"name":                     1.0,
		"social_security_number":   0.9,
		"total_assets":             1.0,
		"total_liabilities":        1.0,
		"net_worth":                1.0,
		"date_of_birth":            0.7,
		"residence_address":        0.6,
		"statement_date":           0.5,
		"cash_on_hand":             0.8,
		"savings_accounts":         0.7,
		"real_estate_owned":        0.8,
		"mortgages_on_real_estate": 0.8,
		"salary":                   0.9,
	},
	model.DocTypeSBAForm413: {
		"name":                   1.0,
		"social_security_number": 0.95,
		"total_assets":           1.0,
		"total_liabilities":      1.0,
		"net_worth":              1.0,
		"statement_date":         0.7,
	},
	model.DocTypeBankStatement: {
		"account_holder_name": 1.0,
		"account_number":      0.9,
		"beginning_balance":   0.8,
		"ending_balance":      0.9,
		"statement_period":    0.8,
		"bank_name":           0.6,
	},
}

// defaultFieldWeights cover document types without their own table, so
// the quality score's completion share never silently drops to zero.
var defaultFieldWeights = map[string]float64{
	"name":              0.9,
	"business_name":     0.9,
	"taxpayer_name":     0.9,
	"company_name":      0.9,
	"total_assets":      0.9,
	"total_liabilities": 0.9,
	"net_worth":         0.8,
	"net_income":        0.8,
	"gross_revenue":     0.8,
	"total_debt":        0.8,
	"tax_year":          0.8,
	"statement_date":    0.5,
}

// Scorer computes field and document confidence. It carries no mutable
// state: identical inputs produce identical analyses.
type Scorer struct {
	cfg Config
	log *slog.Logger
}

func NewScorer(cfg Config, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.HighConfidenceThreshold <= 0 {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg, log: log}
}
