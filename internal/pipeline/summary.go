package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgrange/loanpipe/internal/crossdoc"
	"github.com/dgrange/loanpipe/internal/model"
	"github.com/dgrange/loanpipe/internal/schema"
)

// FieldSummary is the per-field line item in the package summary.
type FieldSummary struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// DocumentSummary is the per-document entry in the package summary.
type DocumentSummary struct {
	File              string               `json:"file"`
	DocumentType      model.DocumentType   `json:"document_type"`
	Status            string               `json:"status"`
	Confidence        float64              `json:"confidence"`
	QualityScore      float64              `json:"quality_score,omitempty"`
	ProcessingSeconds float64              `json:"processing_seconds"`
	Fields            []FieldSummary       `json:"fields,omitempty"`
	Record            *schema.MappedRecord `json:"record,omitempty"`
	Errors            []string             `json:"errors,omitempty"`
	Warnings          []string             `json:"warnings,omitempty"`
}

// Timing aggregates per-document processing durations in seconds.
type Timing struct {
	TotalSeconds float64 `json:"total_seconds"`
	AvgSeconds   float64 `json:"avg_seconds"`
	MinSeconds   float64 `json:"min_seconds"`
	MaxSeconds   float64 `json:"max_seconds"`
}

// Statistics is the consolidated view over every document in the run.
type Statistics struct {
	TotalDocuments      int                        `json:"total_documents"`
	SuccessfulDocuments int                        `json:"successful_documents"`
	FailedDocuments     int                        `json:"failed_documents"`
	SuccessRate         float64                    `json:"success_rate"`
	DocumentTypes       map[model.DocumentType]int `json:"document_types"`
	ConfidenceBuckets   map[string]int             `json:"confidence_buckets"`
	ErrorCategories     map[string]int             `json:"error_categories,omitempty"`
	Timing              Timing                     `json:"timing"`
	Validation          schema.Summary             `json:"validation"`
}

// Metadata echoes the run configuration and records stage completion.
type Metadata struct {
	WorkerCount     int     `json:"worker_count"`
	ParallelEnabled bool    `json:"parallel_enabled"`
	CompletedStages []Stage `json:"completed_stages"`
	FailureStage    Stage   `json:"failure_stage,omitempty"`
}

// Summary is the JSON contract for one pipeline run.
type Summary struct {
	ProcessingStatus    Status            `json:"processing_status"`
	SummaryStatistics   Statistics        `json:"summary_statistics"`
	TotalProcessingTime float64           `json:"total_processing_time"`
	PipelineMetadata    Metadata          `json:"pipeline_metadata"`
	CrossDocument       *crossdoc.Report  `json:"cross_document,omitempty"`
	Errors              []string          `json:"errors,omitempty"`
	Warnings            []string          `json:"warnings,omitempty"`
	Documents           []DocumentSummary `json:"documents"`
}

// Write serializes the summary as indented JSON at path, creating
// parent directories as needed.
func (s *Summary) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
