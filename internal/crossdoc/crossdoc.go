// Package crossdoc reconciles figures across the documents of one loan
// package: the personal financial statement, tax returns, debt
// schedule, and business financials. Checks compare independent
// sources of the same number and flag material disagreement.
package crossdoc

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

// Status is the package-level verdict.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Check is one cross-document comparison.
type Check struct {
	Name        string `json:"name"`
	Passed      bool   `json:"passed"`
	Warning     bool   `json:"warning,omitempty"`
	Message     string `json:"message"`
	Discrepancy string `json:"discrepancy,omitempty"`
}

// Report is the outcome of validating one document package.
type Report struct {
	Status          Status   `json:"status"`
	Checks          []Check  `json:"checks"`
	RedFlags        []string `json:"red_flags,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Confidence      float64  `json:"confidence"`
}

// Package groups the extraction results of one loan application by
// document category.
type Package struct {
	PersonalStatement  *model.ExtractionResult
	TaxReturns         []model.ExtractionResult
	DebtSchedule       *model.ExtractionResult
	BusinessFinancials *model.ExtractionResult
}

// categories counts how many document categories are populated.
func (p *Package) categories() int {
	var n int
	if p.PersonalStatement != nil {
		n++
	}
	if len(p.TaxReturns) > 0 {
		n++
	}
	if p.DebtSchedule != nil {
		n++
	}
	if p.BusinessFinancials != nil {
		n++
	}
	return n
}

// Comparable reports whether the package holds enough document
// categories for cross-document checks to be meaningful.
func (p *Package) Comparable() bool {
	return p.categories() >= 2
}

// Tolerances for each comparison, as fractions of the reference value.
var (
	incomeTolerance      = decimal.NewFromFloat(0.10)
	liabilitiesTolerance = decimal.NewFromFloat(0.02)
	revenueTolerance     = decimal.NewFromFloat(0.05)
	minDebtServiceRatio  = decimal.NewFromFloat(1.25)
	hundred              = decimal.NewFromInt(100)
)

// Validator runs cross-document consistency checks.
type Validator struct {
	log *slog.Logger
}

func NewValidator(log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{log: log}
}

// Validate runs every applicable check against the package and grades
// the result. Checks whose inputs are absent are skipped silently;
// checks whose inputs are present but unreadable produce warnings.
func (v *Validator) Validate(pkg *Package) Report {
	var report Report

	v.checkIncome(pkg, &report)
	v.checkLiabilities(pkg, &report)
	v.checkRevenue(pkg, &report)
	v.checkDebtService(pkg, &report)
	v.collectRedFlags(pkg, &report)

	var passed, failed int
	for _, c := range report.Checks {
		if c.Passed {
			passed++
		} else if !c.Warning {
			failed++
		}
	}
	switch {
	case failed > 0:
		report.Status = StatusFail
	case len(report.RedFlags) > 0 || hasWarnings(report.Checks):
		report.Status = StatusWarning
	default:
		report.Status = StatusPass
	}
	if passed+failed > 0 {
		report.Confidence = float64(passed) / float64(passed+failed)
	} else {
		report.Confidence = 1
	}
	report.Recommendations = recommendations(report)

	v.log.Info("cross-document validation finished",
		"status", report.Status,
		"checks", len(report.Checks),
		"red_flags", len(report.RedFlags),
		"confidence", report.Confidence)
	return report
}

func hasWarnings(checks []Check) bool {
	for _, c := range checks {
		if c.Warning {
			return true
		}
	}
	return false
}

// fieldDecimal reads a decimal field from an extraction result.
func fieldDecimal(res *model.ExtractionResult, name string) (decimal.Decimal, bool) {
	if res == nil {
		return decimal.Zero, false
	}
	f := res.Field(name)
	if f == nil {
		return decimal.Zero, false
	}
	return f.Value.AsDecimal()
}

// mostRecentReturn picks the tax return with the latest tax year.
// Returns without a readable year sort last.
func mostRecentReturn(returns []model.ExtractionResult) *model.ExtractionResult {
	if len(returns) == 0 {
		return nil
	}
	idx := make([]int, len(returns))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return taxYear(&returns[idx[a]]) > taxYear(&returns[idx[b]])
	})
	return &returns[idx[0]]
}

func taxYear(res *model.ExtractionResult) int {
	if d, ok := fieldDecimal(res, "tax_year"); ok {
		return int(d.IntPart())
	}
	return 0
}

// withinTolerance reports whether actual is within tol (a fraction of
// expected) of expected, plus the absolute difference.
func withinTolerance(expected, actual, tol decimal.Decimal) (bool, decimal.Decimal) {
	diff := expected.Sub(actual).Abs()
	if expected.IsZero() {
		return actual.IsZero(), diff
	}
	return diff.LessThanOrEqual(expected.Abs().Mul(tol)), diff
}

func pctDiff(expected, diff decimal.Decimal) string {
	if expected.IsZero() {
		return "n/a"
	}
	return diff.Div(expected.Abs()).Mul(hundred).StringFixed(1) + "%"
}
