package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgrange/loanpipe/internal/classify"
	"github.com/dgrange/loanpipe/internal/confidence"
	"github.com/dgrange/loanpipe/internal/crossdoc"
	"github.com/dgrange/loanpipe/internal/extract"
	"github.com/dgrange/loanpipe/internal/schema"
)

const samplePFS = `PERSONAL FINANCIAL STATEMENT
As of: 03/15/2024

Name: Jane Q Borrower
Social Security Number: 123-45-6789
Salary: $95,000.00
Total Assets    $545,000.00
Total Liabilities    $335,000.00
Net Worth    $210,000.00
`

const sampleBalanceSheet = `ACME LLC
Balance Sheet
As of: 12/31/2023

Company Name: ACME LLC
Total Current Assets    $200,000.00
Total Assets    $1,000,000.00
Total Liabilities    $400,000.00
Total Equity    $600,000.00
`

const sampleDebtSchedule = `Business Debt Schedule
Company Name: ACME LLC
Creditor: First Bank
Monthly Payment    $4,000.00
Total Monthly Payment    $4,000.00
Total Debt    $330,000.00
`

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	log := slog.Default()
	o := NewOrchestrator(cfg,
		classify.New(log, false),
		extract.DefaultRegistry(log, false),
		confidence.NewScorer(confidence.DefaultConfig(), log),
		schema.NewMapper(log),
		crossdoc.NewValidator(log),
		log)
	t.Cleanup(o.Close)
	return o
}

func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunCompletedPackage(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"pfs_borrower.txt":   samplePFS,
		"balance_sheet.txt":  sampleBalanceSheet,
		"debt_schedule.txt":  sampleDebtSchedule,
	})
	out := filepath.Join(t.TempDir(), "summary.json")
	cfg := DefaultConfig()
	cfg.OutputPath = out

	summary, err := newTestOrchestrator(t, cfg).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %s, errors = %v", summary.ProcessingStatus, summary.Errors)
	}
	if got := len(summary.Documents); got != 3 {
		t.Fatalf("documents = %d", got)
	}
	for _, d := range summary.Documents {
		if d.ProcessingSeconds <= 0 {
			t.Fatalf("%s: processing_seconds = %v, want > 0", d.File, d.ProcessingSeconds)
		}
	}
	if len(summary.PipelineMetadata.CompletedStages) != len(stageOrder) {
		t.Fatalf("completed stages = %v", summary.PipelineMetadata.CompletedStages)
	}
	stats := summary.SummaryStatistics
	if stats.SuccessfulDocuments != 3 || stats.FailedDocuments != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.SuccessRate != 1.0 {
		t.Fatalf("success rate = %v", stats.SuccessRate)
	}

	// The summary file must exist and be valid JSON.
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("summary not valid JSON: %v", err)
	}
	if decoded.ProcessingStatus != StatusCompleted {
		t.Fatalf("decoded status = %s", decoded.ProcessingStatus)
	}
}

func TestRunPartiallyCompleted(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"pfs_borrower.txt": samplePFS,
		"mystery.txt":      "nothing classifiable in here\n",
	})
	summary, err := newTestOrchestrator(t, DefaultConfig()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ProcessingStatus != StatusPartiallyCompleted {
		t.Fatalf("status = %s", summary.ProcessingStatus)
	}
	stats := summary.SummaryStatistics
	if stats.SuccessfulDocuments != 1 || stats.FailedDocuments != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(summary.Errors) == 0 {
		t.Fatal("the failed document's errors should surface in the summary")
	}
}

func TestRunPartialExtractionCountsAsFailed(t *testing.T) {
	incomplete := strings.Replace(samplePFS, "Net Worth    $210,000.00\n", "", 1)
	dir := writePackage(t, map[string]string{
		"pfs_borrower.txt":   samplePFS,
		"pfs_incomplete.txt": incomplete,
	})
	summary, err := newTestOrchestrator(t, DefaultConfig()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ProcessingStatus != StatusPartiallyCompleted {
		t.Fatalf("status = %s, want %s for a partial extraction with errors", summary.ProcessingStatus, StatusPartiallyCompleted)
	}
	stats := summary.SummaryStatistics
	if stats.SuccessfulDocuments != 1 || stats.FailedDocuments != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	var missing bool
	for _, e := range summary.Errors {
		if strings.Contains(e, "pfs_incomplete.txt") && strings.Contains(e, "net_worth") {
			missing = true
		}
	}
	if !missing {
		t.Fatalf("missing-required error should surface, errors = %v", summary.Errors)
	}
}

func TestRunAllFailed(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"mystery.txt": "nothing classifiable in here\n",
	})
	summary, err := newTestOrchestrator(t, DefaultConfig()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ProcessingStatus != StatusFailed {
		t.Fatalf("status = %s", summary.ProcessingStatus)
	}
}

func TestRunEmptyInputIsStageFatal(t *testing.T) {
	dir := t.TempDir()
	summary, err := newTestOrchestrator(t, DefaultConfig()).Run(context.Background(), []string{dir})
	if err == nil {
		t.Fatal("empty package should fail discovery")
	}
	if summary.ProcessingStatus != StatusFailed {
		t.Fatalf("status = %s", summary.ProcessingStatus)
	}
	if summary.PipelineMetadata.FailureStage != StageDiscovery {
		t.Fatalf("failure stage = %s", summary.PipelineMetadata.FailureStage)
	}
}

func TestDiscoveryFilters(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"pfs_borrower.txt": samplePFS,
		"archive.zip":      "not extractable",
		"draft_pfs.txt":    samplePFS,
	})
	cfg := DefaultConfig()
	cfg.ExcludePatterns = []string{"draft"}
	o := newTestOrchestrator(t, cfg)

	summary, err := o.Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(summary.Documents); got != 1 {
		t.Fatalf("documents = %d, want only the non-draft statement", got)
	}
	if summary.Documents[0].File != "pfs_borrower.txt" {
		t.Fatalf("file = %s", summary.Documents[0].File)
	}
}

func TestDiscoveryOversizeWarns(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"pfs_borrower.txt": samplePFS,
		"huge.txt":         strings.Repeat("padding ", 200),
	})
	cfg := DefaultConfig()
	cfg.MaxFileSize = 1024

	summary, err := newTestOrchestrator(t, cfg).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(summary.Documents); got != 1 {
		t.Fatalf("documents = %d, want the oversize file skipped", got)
	}
	var warned bool
	for _, w := range summary.Warnings {
		if strings.Contains(w, "huge.txt") && strings.Contains(w, "exceeds limit") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("oversize skip should warn, warnings = %v", summary.Warnings)
	}
}

func TestDiscoveryDeduplicatesInputs(t *testing.T) {
	dir := writePackage(t, map[string]string{"pfs_borrower.txt": samplePFS})
	path := filepath.Join(dir, "pfs_borrower.txt")

	summary, err := newTestOrchestrator(t, DefaultConfig()).Run(context.Background(), []string{path, path, dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(summary.Documents); got != 1 {
		t.Fatalf("documents = %d, want 1 after dedupe", got)
	}
}

func TestRunSequentialMatchesParallel(t *testing.T) {
	files := map[string]string{
		"pfs_borrower.txt":  samplePFS,
		"balance_sheet.txt": sampleBalanceSheet,
		"debt_schedule.txt": sampleDebtSchedule,
	}
	dirA := writePackage(t, files)
	dirB := writePackage(t, files)

	parallel := DefaultConfig()
	sequential := DefaultConfig()
	sequential.ParallelEnabled = false

	a, err := newTestOrchestrator(t, parallel).Run(context.Background(), []string{dirA})
	if err != nil {
		t.Fatal(err)
	}
	b, err := newTestOrchestrator(t, sequential).Run(context.Background(), []string{dirB})
	if err != nil {
		t.Fatal(err)
	}
	if a.ProcessingStatus != b.ProcessingStatus {
		t.Fatalf("status differs: %s vs %s", a.ProcessingStatus, b.ProcessingStatus)
	}
	if len(a.Documents) != len(b.Documents) {
		t.Fatalf("document count differs: %d vs %d", len(a.Documents), len(b.Documents))
	}
	for i := range a.Documents {
		if a.Documents[i].File != b.Documents[i].File {
			t.Fatalf("document order differs at %d: %s vs %s", i, a.Documents[i].File, b.Documents[i].File)
		}
		if a.Documents[i].DocumentType != b.Documents[i].DocumentType {
			t.Fatalf("type differs for %s", a.Documents[i].File)
		}
	}
}

func TestCrossDocumentValidationRuns(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"pfs_borrower.txt":  samplePFS,
		"debt_schedule.txt": sampleDebtSchedule,
	})
	summary, err := newTestOrchestrator(t, DefaultConfig()).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CrossDocument == nil {
		t.Fatal("cross-document validation should run with two categories present")
	}
	// 330000 is within 2% of the stated 335000 liabilities.
	for _, c := range summary.CrossDocument.Checks {
		if c.Name == "liabilities_consistency" && !c.Passed {
			t.Fatalf("liabilities check should pass: %+v", c)
		}
	}
}

func TestCancelledContextFailsRun(t *testing.T) {
	dir := writePackage(t, map[string]string{"pfs_borrower.txt": samplePFS})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestOrchestrator(t, DefaultConfig()).Run(ctx, []string{dir})
	if err == nil {
		t.Fatal("cancelled context should fail the run")
	}
	if summary.ProcessingStatus != StatusFailed {
		t.Fatalf("status = %s", summary.ProcessingStatus)
	}
	if summary.PipelineMetadata.FailureStage == "" {
		t.Fatal("failure stage should be recorded")
	}
}
