// Package model holds the shared vocabulary of the extraction pipeline:
// document types, field values, extraction and classification results.
package model

import "time"

// DocumentType identifies a supported loan-package document category.
type DocumentType string

const (
	DocTypePFS             DocumentType = "personal_financial_statement"
	DocTypeSBAForm413      DocumentType = "sba_form_413"
	DocTypeTaxReturn       DocumentType = "tax_return"
	DocTypeTaxReturn1040   DocumentType = "tax_return_1040"
	DocTypeTaxReturn1065   DocumentType = "tax_return_1065"
	DocTypeTaxReturn1120S  DocumentType = "tax_return_1120s"
	DocTypeBalanceSheet    DocumentType = "balance_sheet"
	DocTypeProfitLoss      DocumentType = "profit_loss"
	DocTypeDebtSchedule    DocumentType = "debt_schedule"
	DocTypeBankStatement   DocumentType = "bank_statement"
	DocTypeUnknown         DocumentType = "unknown"
)

// ExtractionStatus is the outcome of one extraction attempt.
type ExtractionStatus string

const (
	StatusSuccess ExtractionStatus = "success"
	StatusPartial ExtractionStatus = "partial"
	StatusFailed  ExtractionStatus = "failed"
	StatusPending ExtractionStatus = "pending"
)

// SourceLocation points back at where a field was found in the source
// document. All members are optional.
type SourceLocation struct {
	Page int    `json:"page,omitempty"`
	Line int    `json:"line,omitempty"`
	Hint string `json:"hint,omitempty"`
}

// ExtractedField is a single named value pulled from a document.
// Extractors build it once; downstream stages read it but never mutate it.
type ExtractedField struct {
	Name             string          `json:"name"`
	Value            FieldValue      `json:"value"`
	Confidence       float64         `json:"confidence"`
	RawText          string          `json:"raw_text,omitempty"`
	SourceLocation   *SourceLocation `json:"source_location,omitempty"`
	ValidationStatus string          `json:"validation_status,omitempty"`
}

// ExtractionResult is the product of one extraction attempt over one document.
type ExtractionResult struct {
	DocumentType    DocumentType      `json:"document_type"`
	Status          ExtractionStatus  `json:"status"`
	Fields          []ExtractedField  `json:"fields"`
	ConfidenceScore float64           `json:"confidence_score"`
	ProcessingTime  time.Duration     `json:"processing_time"`
	Errors          []string          `json:"errors,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RawText         string            `json:"-"`
}

// Field returns the named field, or nil when absent.
func (r *ExtractionResult) Field(name string) *ExtractedField {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i]
		}
	}
	return nil
}

// ClassificationResult is the classifier's verdict for one document.
type ClassificationResult struct {
	DocumentType     DocumentType      `json:"document_type"`
	Confidence       float64           `json:"confidence"`
	Reasoning        string            `json:"reasoning"`
	AlternativeTypes []DocumentType    `json:"alternative_types,omitempty"`
	Fingerprint      string            `json:"fingerprint"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Clamp01 bounds a confidence value to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
