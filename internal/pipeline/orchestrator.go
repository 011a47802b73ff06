package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgrange/loanpipe/internal/classify"
	"github.com/dgrange/loanpipe/internal/confidence"
	"github.com/dgrange/loanpipe/internal/crossdoc"
	"github.com/dgrange/loanpipe/internal/extract"
	"github.com/dgrange/loanpipe/internal/model"
	"github.com/dgrange/loanpipe/internal/schema"
	"github.com/dgrange/loanpipe/internal/textract"
)

// document carries one file through the pipeline. Each stage touches a
// document from exactly one goroutine, so no locking is needed.
type document struct {
	path           string
	classification model.ClassificationResult
	extraction     *model.ExtractionResult
	report         *confidence.DocumentReport
	record         *schema.MappedRecord
	errors         []string
	warnings       []string
	excluded       bool
}

// Orchestrator runs the processing pipeline over loan packages. Its
// worker pool is created once and reused across runs; Close drains it.
type Orchestrator struct {
	cfg        Config
	classifier *classify.Classifier
	registry   *extract.Registry
	scorer     *confidence.Scorer
	mapper     *schema.Mapper
	validator  *crossdoc.Validator
	log        *slog.Logger
	pool       *pool
}

func NewOrchestrator(cfg Config, classifier *classify.Classifier, registry *extract.Registry, scorer *confidence.Scorer, mapper *schema.Mapper, validator *crossdoc.Validator, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 100 << 20
	}
	return &Orchestrator{
		cfg:        cfg,
		classifier: classifier,
		registry:   registry,
		scorer:     scorer,
		mapper:     mapper,
		validator:  validator,
		log:        log,
		pool:       newPool(cfg.WorkerCount),
	}
}

// Close drains the worker pool. The orchestrator cannot run again
// afterwards.
func (o *Orchestrator) Close() {
	o.pool.close()
}

// Run processes the given input files or directories through every
// stage and returns the package summary. A stage-fatal error marks the
// run failed with the responsible stage; per-document failures degrade
// the run to partially completed instead.
func (o *Orchestrator) Run(ctx context.Context, inputs []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		ProcessingStatus: StatusRunning,
		PipelineMetadata: Metadata{
			WorkerCount:     o.cfg.WorkerCount,
			ParallelEnabled: o.cfg.ParallelEnabled,
		},
	}

	paths, err := o.discover(inputs, summary)
	if err != nil {
		return o.fail(summary, StageDiscovery, err, start), err
	}
	o.completeStage(summary, StageDiscovery)
	o.log.Info("discovery finished", "documents", len(paths))

	docs := make([]*document, len(paths))
	for i, p := range paths {
		docs[i] = &document{path: p}
	}

	type stageFn struct {
		stage Stage
		run   func(context.Context, []*document, *Summary)
	}
	stages := []stageFn{
		{StageClassification, o.classifyStage},
		{StageExtraction, o.extractStage},
		{StageValidation, o.validateStage},
		{StageMapping, o.mapStage},
		{StageConsolidation, o.consolidateStage},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return o.fail(summary, s.stage, err, start), err
		}
		stageCtx := ctx
		var cancel context.CancelFunc
		if o.cfg.StageTimeout > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, o.cfg.StageTimeout)
		}
		s.run(stageCtx, docs, summary)
		if cancel != nil {
			cancel()
		}
		o.completeStage(summary, s.stage)
	}

	o.finalize(docs, summary, start)
	o.completeStage(summary, StageFinalization)

	if o.cfg.OutputPath != "" {
		if err := summary.Write(o.cfg.OutputPath); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			o.log.Error("summary write failed", "path", o.cfg.OutputPath, "error", err)
		}
	}
	o.log.Info("pipeline finished",
		"status", summary.ProcessingStatus,
		"documents", len(docs),
		"duration", time.Since(start))
	return summary, nil
}

func (o *Orchestrator) completeStage(summary *Summary, stage Stage) {
	summary.PipelineMetadata.CompletedStages = append(summary.PipelineMetadata.CompletedStages, stage)
}

func (o *Orchestrator) fail(summary *Summary, stage Stage, err error, start time.Time) *Summary {
	summary.ProcessingStatus = StatusFailed
	summary.PipelineMetadata.FailureStage = stage
	summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", stage, err))
	summary.TotalProcessingTime = time.Since(start).Seconds()
	o.log.Error("pipeline failed", "stage", stage, "error", err)
	return summary
}

// forEach runs fn over every non-excluded document, on the pool when
// parallel execution applies and inline otherwise.
func (o *Orchestrator) forEach(docs []*document, fn func(*document)) {
	active := make([]*document, 0, len(docs))
	for _, d := range docs {
		if !d.excluded {
			active = append(active, d)
		}
	}
	if !o.cfg.ParallelEnabled || len(active) <= 1 {
		for _, d := range active {
			fn(d)
		}
		return
	}
	var wg sync.WaitGroup
	for _, d := range active {
		wg.Add(1)
		o.pool.submit(func() {
			defer wg.Done()
			fn(d)
		})
	}
	wg.Wait()
}

// discover expands the inputs into a deduplicated, sorted list of
// processable files. Oversized and excluded files are skipped with a
// warning; an empty result is fatal.
func (o *Orchestrator) discover(inputs []string, summary *Summary) ([]string, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs given")
	}
	seen := make(map[string]bool)
	var paths []string

	consider := func(path string, size int64) {
		if seen[path] {
			return
		}
		if !textract.IsSupportedExtension(path) {
			return
		}
		for _, pat := range o.cfg.ExcludePatterns {
			if pat != "" && strings.Contains(path, pat) {
				return
			}
		}
		if size > o.cfg.MaxFileSize {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("skipping %s: size %d exceeds limit %d", path, size, o.cfg.MaxFileSize))
			return
		}
		seen[path] = true
		paths = append(paths, path)
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
		if !info.IsDir() {
			consider(input, info.Size())
			continue
		}
		err = filepath.WalkDir(input, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			consider(path, fi.Size())
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", input, err)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no processable documents under %v", inputs)
	}
	sort.Strings(paths)
	return paths, nil
}

// classifyStage assigns a document type to every file. Classification
// failures degrade to unknown rather than failing the document.
func (o *Orchestrator) classifyStage(ctx context.Context, docs []*document, _ *Summary) {
	o.forEach(docs, func(d *document) {
		d.classification = o.classifier.Classify(ctx, d.path)
		if d.classification.DocumentType == model.DocTypeUnknown {
			d.errors = append(d.errors, "classification: document type could not be determined")
		}
	})
}

// extractStage runs the registered extractor for each classified
// document. Documents without a usable extractor are excluded from the
// remaining stages.
func (o *Orchestrator) extractStage(ctx context.Context, docs []*document, _ *Summary) {
	o.forEach(docs, func(d *document) {
		docType := d.classification.DocumentType
		ex, ok := o.registry.ForType(docType)
		if !ok {
			d.errors = append(d.errors, fmt.Sprintf("no extractor registered for document type %q", docType))
			d.excluded = true
			return
		}
		if !ex.CanProcess(d.path, docType) {
			d.errors = append(d.errors, fmt.Sprintf("extractor for %q cannot process %s", docType, filepath.Base(d.path)))
			d.excluded = true
			return
		}
		res, err := ex.Extract(ctx, d.path, docType)
		if err != nil {
			d.errors = append(d.errors, fmt.Sprintf("extraction: %s", err))
			d.excluded = true
			return
		}
		d.extraction = &res
		d.errors = append(d.errors, res.Errors...)
	})
}

// validateStage scores every extracted document and surfaces fields
// needing manual review as warnings.
func (o *Orchestrator) validateStage(_ context.Context, docs []*document, _ *Summary) {
	o.forEach(docs, func(d *document) {
		if d.extraction == nil {
			return
		}
		report := o.scorer.Report(*d.extraction, d.extraction.RawText)
		d.report = &report
		for _, name := range report.ManualReviewFields {
			d.warnings = append(d.warnings, fmt.Sprintf("Field %q requires manual review", name))
		}
	})
}

// mapStage converts each extraction into its schema record. Document
// types without a schema pass through untouched.
func (o *Orchestrator) mapStage(_ context.Context, docs []*document, _ *Summary) {
	o.forEach(docs, func(d *document) {
		if d.extraction == nil {
			return
		}
		if _, ok := schema.SchemaFor(d.extraction.DocumentType); !ok {
			return
		}
		rec, err := o.mapper.Map(*d.extraction)
		if err != nil {
			d.errors = append(d.errors, fmt.Sprintf("mapping: %s", err))
			return
		}
		d.record = rec
		for _, v := range rec.Errors() {
			d.errors = append(d.errors, fmt.Sprintf("%s: %s", v.FieldName, v.Message))
		}
		for _, v := range rec.Warnings() {
			d.warnings = append(d.warnings, fmt.Sprintf("%s: %s", v.FieldName, v.Message))
		}
	})
}

// consolidateStage aggregates statistics and, when the package spans
// enough document categories, reconciles figures across documents.
func (o *Orchestrator) consolidateStage(_ context.Context, docs []*document, summary *Summary) {
	stats := Statistics{
		TotalDocuments:    len(docs),
		DocumentTypes:     make(map[model.DocumentType]int),
		ConfidenceBuckets: map[string]int{"high": 0, "medium": 0, "low": 0},
		ErrorCategories:   make(map[string]int),
	}

	var records []*schema.MappedRecord
	var durations []float64
	for _, d := range docs {
		stats.DocumentTypes[d.classification.DocumentType]++
		if o.docFailed(d) {
			stats.FailedDocuments++
		} else {
			stats.SuccessfulDocuments++
		}
		if d.report != nil {
			switch {
			case d.report.OverallConfidence >= 0.8:
				stats.ConfidenceBuckets["high"]++
			case d.report.OverallConfidence >= 0.5:
				stats.ConfidenceBuckets["medium"]++
			default:
				stats.ConfidenceBuckets["low"]++
			}
		}
		for _, e := range d.errors {
			stats.ErrorCategories[errorCategory(e)]++
		}
		if d.extraction != nil {
			durations = append(durations, d.extraction.ProcessingTime.Seconds())
		}
		if d.record != nil {
			records = append(records, d.record)
		}
	}
	if stats.TotalDocuments > 0 {
		stats.SuccessRate = float64(stats.SuccessfulDocuments) / float64(stats.TotalDocuments)
	}
	if len(durations) > 0 {
		min, max, sum := durations[0], durations[0], 0.0
		for _, s := range durations {
			sum += s
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		stats.Timing = Timing{
			TotalSeconds: sum,
			AvgSeconds:   sum / float64(len(durations)),
			MinSeconds:   min,
			MaxSeconds:   max,
		}
	}
	stats.Validation = schema.Summarize(records)
	summary.SummaryStatistics = stats

	if pkg := buildPackage(docs); pkg.Comparable() {
		report := o.validator.Validate(pkg)
		summary.CrossDocument = &report
	}
}

// finalize grades the run and fills the per-document summaries.
func (o *Orchestrator) finalize(docs []*document, summary *Summary, start time.Time) {
	for _, d := range docs {
		summary.Documents = append(summary.Documents, o.documentSummary(d))
		for _, e := range d.errors {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", filepath.Base(d.path), e))
		}
		for _, w := range d.warnings {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %s", filepath.Base(d.path), w))
		}
	}

	extracted := 0
	for _, d := range docs {
		if docExtracted(d) {
			extracted++
		}
	}
	switch {
	case summary.SummaryStatistics.FailedDocuments == 0:
		summary.ProcessingStatus = StatusCompleted
	case extracted == 0:
		summary.ProcessingStatus = StatusFailed
	default:
		summary.ProcessingStatus = StatusPartiallyCompleted
	}
	summary.TotalProcessingTime = time.Since(start).Seconds()
}

// docFailed counts against the run grade. A partial extraction that
// recorded errors (missing required fields, mapping violations) is a
// failed document even though it produced fields.
func (o *Orchestrator) docFailed(d *document) bool {
	if !docExtracted(d) {
		return true
	}
	return len(d.errors) > 0
}

// docExtracted reports whether extraction produced a usable result.
func docExtracted(d *document) bool {
	return !d.excluded && d.extraction != nil && d.extraction.Status != model.StatusFailed
}

func (o *Orchestrator) documentSummary(d *document) DocumentSummary {
	ds := DocumentSummary{
		File:         filepath.Base(d.path),
		DocumentType: d.classification.DocumentType,
		Status:       "failed",
		Confidence:   d.classification.Confidence,
		Errors:       d.errors,
		Warnings:     d.warnings,
		Record:       d.record,
	}
	if d.extraction != nil {
		ds.Status = string(d.extraction.Status)
		ds.Confidence = d.extraction.ConfidenceScore
		ds.ProcessingSeconds = d.extraction.ProcessingTime.Seconds()
		for _, f := range d.extraction.Fields {
			fs := FieldSummary{Name: f.Name, Value: f.Value.String(), Confidence: f.Confidence}
			if d.report != nil {
				if a, ok := d.report.FieldAnalyses[f.Name]; ok {
					fs.Confidence = a.FinalConfidence
				}
			}
			ds.Fields = append(ds.Fields, fs)
		}
	}
	if d.report != nil {
		ds.Confidence = d.report.OverallConfidence
		ds.QualityScore = d.report.ExtractionQualityScore
	}
	return ds
}

// buildPackage groups extractions by document category for
// cross-document validation.
func buildPackage(docs []*document) *crossdoc.Package {
	pkg := &crossdoc.Package{}
	for _, d := range docs {
		if d.extraction == nil || d.extraction.Status == model.StatusFailed {
			continue
		}
		switch d.extraction.DocumentType {
		case model.DocTypePFS, model.DocTypeSBAForm413:
			if pkg.PersonalStatement == nil {
				pkg.PersonalStatement = d.extraction
			}
		case model.DocTypeTaxReturn, model.DocTypeTaxReturn1040,
			model.DocTypeTaxReturn1065, model.DocTypeTaxReturn1120S:
			pkg.TaxReturns = append(pkg.TaxReturns, *d.extraction)
		case model.DocTypeDebtSchedule:
			if pkg.DebtSchedule == nil {
				pkg.DebtSchedule = d.extraction
			}
		case model.DocTypeBalanceSheet, model.DocTypeProfitLoss:
			if pkg.BusinessFinancials == nil {
				pkg.BusinessFinancials = d.extraction
			}
		}
	}
	return pkg
}

// errorCategory buckets a per-document error message for reporting.
func errorCategory(msg string) string {
	switch {
	case strings.HasPrefix(msg, "classification"):
		return "classification"
	case strings.HasPrefix(msg, "extraction"), strings.Contains(msg, "extractor"):
		return "extraction"
	case strings.HasPrefix(msg, "mapping"), strings.Contains(msg, "required field"):
		return "validation"
	default:
		return "other"
	}
}
