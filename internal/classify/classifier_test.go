package classify

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgrange/loanpipe/internal/model"
)

func testClassifier() *Classifier {
	return New(slog.Default(), false)
}

func TestClassifyContentByType(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		content string
		want    model.DocumentType
	}{
		{
			"personal financial statement",
			"statement.txt",
			"PERSONAL FINANCIAL STATEMENT\nAssets\nCash: $10,000\nLiabilities\nNet Worth: $50,000\n",
			model.DocTypePFS,
		},
		{
			"balance sheet",
			"q4.txt",
			"ACME LLC\nBalance Sheet\nAs of December 31, 2023\nTotal Assets: $1,000,000\n",
			model.DocTypeBalanceSheet,
		},
		{
			"profit and loss",
			"q4.txt",
			"ACME LLC\nIncome Statement\nFor the year ended December 31, 2023\n",
			model.DocTypeProfitLoss,
		},
		{
			"form 1040",
			"return.txt",
			"Form 1040\nU.S. Individual Income Tax Return\nTax Year 2023\n",
			model.DocTypeTaxReturn1040,
		},
		{
			"debt schedule",
			"debts.txt",
			"Business Debt Schedule\nCreditor  Original Balance  Monthly Payment\n",
			model.DocTypeDebtSchedule,
		},
		{
			"bank statement",
			"stmt.txt",
			"Account Statement\nBeginning Balance: $5,000\nEnding Balance: $6,200\n",
			model.DocTypeBankStatement,
		},
		{
			"unrecognized",
			"notes.txt",
			"meeting notes from tuesday\n",
			model.DocTypeUnknown,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := testClassifier().ClassifyContent(tc.path, tc.content)
			if got.DocumentType != tc.want {
				t.Fatalf("type = %s (%s), want %s", got.DocumentType, got.Reasoning, tc.want)
			}
			if tc.want != model.DocTypeUnknown && got.Confidence <= 0 {
				t.Fatalf("confidence = %v", got.Confidence)
			}
		})
	}
}

func TestFilenameSignalWins(t *testing.T) {
	// Content is ambiguous; the filename carries the signal.
	got := testClassifier().ClassifyContent("acme_debt_schedule_2024.pdf", "some scanned text without labels")
	if got.DocumentType != model.DocTypeDebtSchedule {
		t.Fatalf("type = %s", got.DocumentType)
	}
	if got.Confidence != 0.75 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
}

func TestContentAgreementBoostsFilename(t *testing.T) {
	c := testClassifier()
	plain := c.ClassifyContent("pfs_smith.pdf", "unrelated text")
	agreed := c.ClassifyContent("pfs_smith.pdf", "Personal Financial Statement\nNet Worth: $1\n")
	if agreed.Confidence <= plain.Confidence {
		t.Fatalf("agreement should boost confidence: %v vs %v", agreed.Confidence, plain.Confidence)
	}
	if agreed.Confidence > 0.95 {
		t.Fatalf("confidence cap exceeded: %v", agreed.Confidence)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := testClassifier()
	content := "Balance Sheet\nStatement of Financial Position\n"
	first := c.ClassifyContent("doc.txt", content)
	second := c.ClassifyContent("doc.txt", content)
	if first.DocumentType != second.DocumentType || first.Confidence != second.Confidence {
		t.Fatalf("non-deterministic classification: %+v vs %+v", first, second)
	}
	if first.Fingerprint == "" || first.Fingerprint != second.Fingerprint {
		t.Fatalf("fingerprint mismatch: %q vs %q", first.Fingerprint, second.Fingerprint)
	}
}

func TestFingerprintNormalizesWhitespace(t *testing.T) {
	a := Fingerprint("Total  Assets\n$100")
	b := Fingerprint("total assets $100")
	if a != b {
		t.Fatal("fingerprint should ignore case and whitespace runs")
	}
}

func TestClassifyReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.txt")
	content := "PERSONAL FINANCIAL STATEMENT\nAssets\nLiabilities\nNet Worth\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got := testClassifier().Classify(context.Background(), path)
	if got.DocumentType != model.DocTypePFS {
		t.Fatalf("type = %s", got.DocumentType)
	}
}

func TestClassifyMissingFileDegrades(t *testing.T) {
	got := testClassifier().Classify(context.Background(), "/does/not/exist.txt")
	if got.DocumentType != model.DocTypeUnknown {
		t.Fatalf("missing file should classify as unknown, got %s", got.DocumentType)
	}
}
