package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

const samplePFS = `PERSONAL FINANCIAL STATEMENT
As of: 03/15/2024

Name: Jane Q Borrower
Social Security Number: 123-45-6789
Date of Birth: 07/04/1980

ASSETS
Cash on Hand and in Banks    $25,000.00
Savings Accounts             $40,000.00
Real Estate Owned            $450,000.00
Automobiles                  $30,000.00

LIABILITIES
Mortgages on Real Estate     $320,000.00
Notes Payable to Banks and Others  $15,000.00

Salary: $95,000.00
Total Assets                 $545,000.00
Total Liabilities            $335,000.00
Net Worth                    $210,000.00
`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPersonalStatementExtraction(t *testing.T) {
	path := writeDoc(t, "pfs.txt", samplePFS)
	ex := NewPersonalStatementExtractor(slog.Default(), false)

	res, err := ex.Extract(context.Background(), path, model.DocTypePFS)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Status != model.StatusSuccess {
		t.Fatalf("status = %s, errors = %v", res.Status, res.Errors)
	}

	name := res.Field("name")
	if name == nil {
		t.Fatal("name not extracted")
	}
	if got, _ := name.Value.Text(); got != "Jane Q Borrower" {
		t.Fatalf("name = %q", got)
	}

	assets := res.Field("total_assets")
	if assets == nil {
		t.Fatal("total_assets not extracted")
	}
	d, ok := assets.Value.AsDecimal()
	if !ok || !d.Equal(decimal.NewFromInt(545000)) {
		t.Fatalf("total_assets = %v", assets.Value)
	}

	ssn := res.Field("social_security_number")
	if ssn == nil {
		t.Fatal("SSN not extracted")
	}
	if got, _ := ssn.Value.Text(); got != "123-45-6789" {
		t.Fatalf("ssn = %q", got)
	}

	dob := res.Field("date_of_birth")
	if dob == nil {
		t.Fatal("date_of_birth not extracted")
	}
	if d, _ := dob.Value.Date(); d.Year() != 1980 {
		t.Fatalf("date_of_birth = %v", d)
	}
	if res.ConfidenceScore <= 0 {
		t.Fatalf("confidence score = %v", res.ConfidenceScore)
	}
}

func TestPersonalStatementMissingRequiredIsPartial(t *testing.T) {
	path := writeDoc(t, "pfs.txt", "Name: Jane Q Borrower\nCash on Hand: $1,000\n")
	ex := NewPersonalStatementExtractor(slog.Default(), false)

	res, err := ex.Extract(context.Background(), path, model.DocTypePFS)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Status != model.StatusPartial {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Errors) == 0 {
		t.Fatal("missing required fields should be recorded as errors")
	}
}

func TestNoFieldsIsFailed(t *testing.T) {
	path := writeDoc(t, "blank.txt", "nothing of interest here\n")
	ex := NewDebtScheduleExtractor(slog.Default(), false)

	res, err := ex.Extract(context.Background(), path, model.DocTypeDebtSchedule)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Status != model.StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
}

func TestParenthesizedAmountIsNegative(t *testing.T) {
	path := writeDoc(t, "pl.txt", "Total Revenue  $100,000.00\nNet Income  ($12,500.00)\n")
	ex := NewFinancialStatementExtractor(slog.Default(), false)

	res, err := ex.Extract(context.Background(), path, model.DocTypeProfitLoss)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	ni := res.Field("net_income")
	if ni == nil {
		t.Fatal("net_income not extracted")
	}
	d, ok := ni.Value.AsDecimal()
	if !ok || !d.Equal(decimal.NewFromFloat(-12500)) {
		t.Fatalf("net_income = %v", ni.Value)
	}
}

func TestRegistryRouting(t *testing.T) {
	reg := DefaultRegistry(slog.Default(), false)

	cases := []struct {
		docType model.DocumentType
		want    bool
	}{
		{model.DocTypePFS, true},
		{model.DocTypeSBAForm413, true},
		{model.DocTypeBalanceSheet, true},
		{model.DocTypeDebtSchedule, true},
		{model.DocTypeUnknown, false},
		{model.DocTypeTaxReturn1040, false},
	}
	for _, tc := range cases {
		if _, ok := reg.ForType(tc.docType); ok != tc.want {
			t.Errorf("ForType(%s) = %v, want %v", tc.docType, ok, tc.want)
		}
	}
}

func TestRegistryUnsupportedFile(t *testing.T) {
	reg := DefaultRegistry(slog.Default(), false)
	_, err := reg.Extract(context.Background(), "/tmp/form.xyz", model.DocTypePFS)
	if err == nil {
		t.Fatal("unsupported extension should fail the CanProcess probe")
	}
}

func TestParseCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$1,234.56", "1234.56", true},
		{"1234", "1234", true},
		{"($500.00)", "-500", true},
		{"$ 42", "42", true},
		{"", "", false},
		{"n/a", "", false},
	}
	for _, tc := range cases {
		got, ok := parseCurrency(tc.in)
		if ok != tc.ok {
			t.Errorf("parseCurrency(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got.String() != tc.want {
			t.Errorf("parseCurrency(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
