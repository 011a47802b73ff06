// Package pipeline orchestrates loan-package processing end to end:
// discover files, classify them, extract and validate fields, map the
// results onto schema records, and consolidate everything into a
// package summary.
package pipeline

import "time"

// Stage names one phase of the pipeline, in execution order.
type Stage string

const (
	StageDiscovery      Stage = "discovery"
	StageClassification Stage = "classification"
	StageExtraction     Stage = "extraction"
	StageValidation     Stage = "validation"
	StageMapping        Stage = "mapping"
	StageConsolidation  Stage = "consolidation"
	StageFinalization   Stage = "finalization"
)

// stageOrder is the canonical execution sequence.
var stageOrder = []Stage{
	StageDiscovery,
	StageClassification,
	StageExtraction,
	StageValidation,
	StageMapping,
	StageConsolidation,
	StageFinalization,
}

// Status is the terminal state of one pipeline run.
type Status string

const (
	StatusRunning            Status = "running"
	StatusCompleted          Status = "completed"
	StatusPartiallyCompleted Status = "partially_completed"
	StatusFailed             Status = "failed"
)

// Config controls one pipeline run.
type Config struct {
	// WorkerCount sizes the long-lived worker pool.
	WorkerCount int
	// ParallelEnabled gates pooled execution; single documents always
	// run inline.
	ParallelEnabled bool
	// MaxFileSize skips larger files at discovery with a warning.
	MaxFileSize int64
	// ExcludePatterns drop discovered paths containing any of these
	// substrings.
	ExcludePatterns []string
	// OutputPath, when set, is where the JSON summary is written.
	OutputPath string
	// PdftotextFallback enables shelling out to pdftotext when the
	// native PDF reader returns no text.
	PdftotextFallback bool
	// StageTimeout bounds each stage; zero means no limit.
	StageTimeout time.Duration
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		WorkerCount:     4,
		ParallelEnabled: true,
		MaxFileSize:     100 << 20,
	}
}
