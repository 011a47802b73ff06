package crossdoc

import (
	"log/slog"
	"testing"

	"github.com/dgrange/loanpipe/internal/model"
)

func numField(name string, v float64) model.ExtractedField {
	return model.ExtractedField{Name: name, Value: model.NewNumber(v), Confidence: 0.9}
}

func pfs(salary, liabilities, netWorth float64) *model.ExtractionResult {
	return &model.ExtractionResult{
		DocumentType: model.DocTypePFS,
		Status:       model.StatusSuccess,
		Fields: []model.ExtractedField{
			numField("salary", salary),
			numField("total_liabilities", liabilities),
			numField("net_worth", netWorth),
		},
	}
}

func taxReturn(year, wages float64) model.ExtractionResult {
	return model.ExtractionResult{
		DocumentType: model.DocTypeTaxReturn1040,
		Status:       model.StatusSuccess,
		Fields: []model.ExtractedField{
			numField("tax_year", year),
			numField("wages", wages),
			numField("total_income", wages),
		},
	}
}

func debtSchedule(totalDebt, monthly float64) *model.ExtractionResult {
	return &model.ExtractionResult{
		DocumentType: model.DocTypeDebtSchedule,
		Status:       model.StatusSuccess,
		Fields: []model.ExtractedField{
			numField("total_debt", totalDebt),
			numField("total_monthly_payment", monthly),
		},
	}
}

func checkByName(r Report, name string) *Check {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

func TestComparable(t *testing.T) {
	cases := []struct {
		name string
		pkg  Package
		want bool
	}{
		{"empty", Package{}, false},
		{"only pfs", Package{PersonalStatement: pfs(95000, 100000, 200000)}, false},
		{"pfs and returns", Package{
			PersonalStatement: pfs(95000, 100000, 200000),
			TaxReturns:        []model.ExtractionResult{taxReturn(2023, 95000)},
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pkg.Comparable(); got != tc.want {
				t.Fatalf("Comparable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIncomeConsistencyWithinTolerance(t *testing.T) {
	v := NewValidator(slog.Default())
	pkg := &Package{
		PersonalStatement: pfs(95000, 100000, 200000),
		TaxReturns:        []model.ExtractionResult{taxReturn(2023, 98000)},
	}
	report := v.Validate(pkg)
	check := checkByName(report, "income_consistency")
	if check == nil || !check.Passed {
		t.Fatalf("income within 10%% should pass, got %+v", check)
	}
	if report.Status != StatusPass {
		t.Fatalf("status = %s", report.Status)
	}
	if report.Confidence != 1 {
		t.Fatalf("confidence = %v", report.Confidence)
	}
}

func TestIncomeDiscrepancyFails(t *testing.T) {
	v := NewValidator(slog.Default())
	pkg := &Package{
		PersonalStatement: pfs(150000, 100000, 200000),
		TaxReturns:        []model.ExtractionResult{taxReturn(2023, 95000)},
	}
	report := v.Validate(pkg)
	check := checkByName(report, "income_consistency")
	if check == nil || check.Passed {
		t.Fatalf("income off by over 50%% should fail, got %+v", check)
	}
	if report.Status != StatusFail {
		t.Fatalf("status = %s", report.Status)
	}
	if len(report.Recommendations) == 0 {
		t.Fatal("failed check should produce a recommendation")
	}
}

func TestMostRecentReturnWins(t *testing.T) {
	v := NewValidator(slog.Default())
	pkg := &Package{
		PersonalStatement: pfs(95000, 100000, 200000),
		TaxReturns: []model.ExtractionResult{
			taxReturn(2021, 40000),
			taxReturn(2023, 95000),
			taxReturn(2022, 80000),
		},
	}
	report := v.Validate(pkg)
	check := checkByName(report, "income_consistency")
	if check == nil || !check.Passed {
		t.Fatalf("salary should be compared against the 2023 return, got %+v", check)
	}
}

func TestLiabilitiesTwoPercentTolerance(t *testing.T) {
	v := NewValidator(slog.Default())
	cases := []struct {
		name       string
		stated     float64
		scheduled  float64
		wantPassed bool
	}{
		{"exact", 100000, 100000, true},
		{"within 2%", 100000, 101500, true},
		{"beyond 2%", 100000, 110000, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pkg := &Package{
				PersonalStatement: pfs(95000, tc.stated, 200000),
				DebtSchedule:      debtSchedule(tc.scheduled, 1200),
			}
			check := checkByName(v.Validate(pkg), "liabilities_consistency")
			if check == nil || check.Passed != tc.wantPassed {
				t.Fatalf("passed = %+v, want %v", check, tc.wantPassed)
			}
		})
	}
}

func TestDebtServiceCoverage(t *testing.T) {
	v := NewValidator(slog.Default())
	business := func(netIncome float64) *model.ExtractionResult {
		return &model.ExtractionResult{
			DocumentType: model.DocTypeProfitLoss,
			Fields:       []model.ExtractedField{numField("net_income", netIncome)},
		}
	}
	// Annual debt service is 12 * 1000 = 12000; 1.25x requires 15000.
	cases := []struct {
		name       string
		netIncome  float64
		wantPassed bool
	}{
		{"comfortable coverage", 30000, true},
		{"exactly at minimum", 15000, true},
		{"below minimum", 12000, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pkg := &Package{
				BusinessFinancials: business(tc.netIncome),
				DebtSchedule:       debtSchedule(50000, 1000),
			}
			check := checkByName(v.Validate(pkg), "debt_service_coverage")
			if check == nil || check.Passed != tc.wantPassed {
				t.Fatalf("passed = %+v, want %v", check, tc.wantPassed)
			}
		})
	}
}

func TestUnreadableInputsWarnNotFail(t *testing.T) {
	v := NewValidator(slog.Default())
	pkg := &Package{
		BusinessFinancials: &model.ExtractionResult{DocumentType: model.DocTypeProfitLoss},
		DebtSchedule:       &model.ExtractionResult{DocumentType: model.DocTypeDebtSchedule},
	}
	report := v.Validate(pkg)
	check := checkByName(report, "debt_service_coverage")
	if check == nil || !check.Warning {
		t.Fatalf("unreadable inputs should warn, got %+v", check)
	}
	if report.Status != StatusWarning {
		t.Fatalf("status = %s", report.Status)
	}
}

func TestRedFlags(t *testing.T) {
	v := NewValidator(slog.Default())
	pkg := &Package{
		PersonalStatement: pfs(20000, 150000, -5000),
		TaxReturns: []model.ExtractionResult{
			taxReturn(2022, 100000),
			taxReturn(2023, 60000),
		},
	}
	report := v.Validate(pkg)
	if len(report.RedFlags) < 3 {
		t.Fatalf("want negative net worth, income decline, and debt-to-income flags, got %v", report.RedFlags)
	}
	if report.Status == StatusPass {
		t.Fatalf("red flags should not leave the package at pass, status = %s", report.Status)
	}
}
