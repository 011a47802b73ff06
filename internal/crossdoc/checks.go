package crossdoc

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

// checkIncome compares the salary stated on the personal financial
// statement against the most recent tax return.
func (v *Validator) checkIncome(pkg *Package, report *Report) {
	salary, ok := fieldDecimal(pkg.PersonalStatement, "salary")
	if !ok {
		return
	}
	recent := mostRecentReturn(pkg.TaxReturns)
	if recent == nil {
		return
	}
	income, ok := fieldDecimal(recent, "wages")
	if !ok {
		income, ok = fieldDecimal(recent, "total_income")
	}
	if !ok {
		report.Checks = append(report.Checks, Check{
			Name:    "income_consistency",
			Warning: true,
			Message: "tax return income could not be read, salary not verified",
		})
		return
	}

	within, diff := withinTolerance(income, salary, incomeTolerance)
	check := Check{Name: "income_consistency", Passed: within}
	if within {
		check.Message = "stated salary agrees with the most recent tax return"
	} else {
		check.Message = fmt.Sprintf("stated salary %s differs from tax return income %s by %s",
			salary.StringFixed(2), income.StringFixed(2), pctDiff(income, diff))
		check.Discrepancy = diff.StringFixed(2)
	}
	report.Checks = append(report.Checks, check)
}

// checkLiabilities compares total liabilities on the personal
// statement against the debt schedule total.
func (v *Validator) checkLiabilities(pkg *Package, report *Report) {
	liabilities, ok := fieldDecimal(pkg.PersonalStatement, "total_liabilities")
	if !ok || pkg.DebtSchedule == nil {
		return
	}
	total, ok := fieldDecimal(pkg.DebtSchedule, "total_debt")
	if !ok {
		total, ok = fieldDecimal(pkg.DebtSchedule, "current_balance")
	}
	if !ok {
		report.Checks = append(report.Checks, Check{
			Name:    "liabilities_consistency",
			Warning: true,
			Message: "debt schedule total could not be read, liabilities not verified",
		})
		return
	}

	within, diff := withinTolerance(liabilities, total, liabilitiesTolerance)
	check := Check{Name: "liabilities_consistency", Passed: within}
	if within {
		check.Message = "total liabilities agree with the debt schedule"
	} else {
		check.Message = fmt.Sprintf("total liabilities %s differ from debt schedule total %s by %s",
			liabilities.StringFixed(2), total.StringFixed(2), pctDiff(liabilities, diff))
		check.Discrepancy = diff.StringFixed(2)
	}
	report.Checks = append(report.Checks, check)
}

// checkRevenue compares business revenue against gross receipts on the
// business tax return.
func (v *Validator) checkRevenue(pkg *Package, report *Report) {
	revenue, ok := fieldDecimal(pkg.BusinessFinancials, "gross_revenue")
	if !ok {
		return
	}
	recent := mostRecentReturn(pkg.TaxReturns)
	if recent == nil {
		return
	}
	receipts, ok := fieldDecimal(recent, "gross_receipts")
	if !ok {
		return
	}

	within, diff := withinTolerance(receipts, revenue, revenueTolerance)
	check := Check{Name: "revenue_consistency", Passed: within}
	if within {
		check.Message = "stated revenue agrees with tax return gross receipts"
	} else {
		check.Message = fmt.Sprintf("stated revenue %s differs from gross receipts %s by %s",
			revenue.StringFixed(2), receipts.StringFixed(2), pctDiff(receipts, diff))
		check.Discrepancy = diff.StringFixed(2)
	}
	report.Checks = append(report.Checks, check)
}

// checkDebtService verifies the debt service coverage ratio: net
// operating income over annual debt service must clear 1.25.
func (v *Validator) checkDebtService(pkg *Package, report *Report) {
	if pkg.DebtSchedule == nil || pkg.BusinessFinancials == nil {
		return
	}
	noi, okIncome := fieldDecimal(pkg.BusinessFinancials, "net_income")
	monthly, okDebt := fieldDecimal(pkg.DebtSchedule, "total_monthly_payment")
	if !okDebt {
		monthly, okDebt = fieldDecimal(pkg.DebtSchedule, "monthly_payment")
	}
	if !okIncome || !okDebt {
		report.Checks = append(report.Checks, Check{
			Name:    "debt_service_coverage",
			Warning: true,
			Message: "debt service coverage could not be computed from the provided documents",
		})
		return
	}
	annualDebt := monthly.Mul(decimal.NewFromInt(12))
	if annualDebt.IsZero() || annualDebt.IsNegative() {
		report.Checks = append(report.Checks, Check{
			Name:    "debt_service_coverage",
			Warning: true,
			Message: "annual debt service is zero or negative, ratio not meaningful",
		})
		return
	}

	ratio := noi.Div(annualDebt)
	check := Check{
		Name:   "debt_service_coverage",
		Passed: ratio.GreaterThanOrEqual(minDebtServiceRatio),
	}
	if check.Passed {
		check.Message = fmt.Sprintf("debt service coverage ratio %s meets the %s minimum",
			ratio.StringFixed(2), minDebtServiceRatio.StringFixed(2))
	} else {
		check.Message = fmt.Sprintf("debt service coverage ratio %s is below the %s minimum",
			ratio.StringFixed(2), minDebtServiceRatio.StringFixed(2))
		check.Discrepancy = minDebtServiceRatio.Sub(ratio).StringFixed(2)
	}
	report.Checks = append(report.Checks, check)
}

// collectRedFlags scans the package for underwriting red flags that
// are not strict pass/fail checks.
func (v *Validator) collectRedFlags(pkg *Package, report *Report) {
	if nw, ok := fieldDecimal(pkg.PersonalStatement, "net_worth"); ok && nw.IsNegative() {
		report.RedFlags = append(report.RedFlags, "negative net worth on personal financial statement")
	}

	// Year-over-year income decline above 20% across tax returns.
	if series := incomeSeries(pkg.TaxReturns); len(series) >= 2 {
		prev := series[len(series)-2]
		last := series[len(series)-1]
		if prev.income.IsPositive() {
			decline := prev.income.Sub(last.income).Div(prev.income)
			if decline.GreaterThan(decimal.NewFromFloat(0.20)) {
				report.RedFlags = append(report.RedFlags,
					fmt.Sprintf("income declined %s%% from %d to %d",
						decline.Mul(hundred).StringFixed(1), prev.year, last.year))
			}
		}
	}

	// Debt-to-income above 5x annual income.
	if liabilities, ok := fieldDecimal(pkg.PersonalStatement, "total_liabilities"); ok {
		if salary, ok := fieldDecimal(pkg.PersonalStatement, "salary"); ok && salary.IsPositive() {
			if liabilities.Div(salary).GreaterThan(decimal.NewFromInt(5)) {
				report.RedFlags = append(report.RedFlags, "total liabilities exceed five times annual income")
			}
		}
	}

	if pkg.DebtSchedule != nil {
		if f := pkg.DebtSchedule.Field("is_past_due"); f != nil {
			if t, ok := f.Value.Text(); ok && t == "true" {
				report.RedFlags = append(report.RedFlags, "debt schedule reports past-due obligations")
			}
		}
	}
}

type yearIncome struct {
	year   int
	income decimal.Decimal
}

// incomeSeries collects readable (tax year, income) pairs sorted by
// year ascending.
func incomeSeries(returns []model.ExtractionResult) []yearIncome {
	var series []yearIncome
	for i := range returns {
		r := &returns[i]
		income, ok := fieldDecimal(r, "total_income")
		if !ok {
			income, ok = fieldDecimal(r, "gross_receipts")
		}
		if year := taxYear(r); ok && year > 0 {
			series = append(series, yearIncome{year: year, income: income})
		}
	}
	sort.Slice(series, func(a, b int) bool { return series[a].year < series[b].year })
	return series
}

// recommendations derives follow-up actions from the report findings.
func recommendations(report Report) []string {
	var recs []string
	for _, c := range report.Checks {
		if c.Passed || c.Warning {
			continue
		}
		switch c.Name {
		case "income_consistency":
			recs = append(recs, "Request pay stubs or W-2s to resolve the income discrepancy")
		case "liabilities_consistency":
			recs = append(recs, "Request an updated debt schedule reconciling stated liabilities")
		case "revenue_consistency":
			recs = append(recs, "Request bank statements supporting the stated business revenue")
		case "debt_service_coverage":
			recs = append(recs, "Debt service coverage is below policy; consider a smaller loan amount")
		}
	}
	for _, c := range report.Checks {
		if c.Warning {
			recs = append(recs, "Some figures could not be verified; request the missing source documents")
			break
		}
	}
	if len(report.RedFlags) > 0 {
		recs = append(recs, "Escalate red flags to an underwriter before approval")
	}
	return recs
}
