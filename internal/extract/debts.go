package extract

import (
	"log/slog"
	"regexp"

	"github.com/dgrange/loanpipe/internal/model"
)

var debtSchedulePatterns = []fieldPattern{
	{name: "business_name", labels: []*regexp.Regexp{label(`(?:business|company|borrower)\s+name\s*[:.]`)}, kind: valueText, baseConf: 0.85},
	{name: "as_of_date", labels: []*regexp.Regexp{label(`as\s+of\s*[:.]?`)}, kind: valueDate, baseConf: 0.8},
	{name: "creditor_name", labels: []*regexp.Regexp{label(`(?:creditor|lender)\s*(?:name)?\s*[:.]`)}, kind: valueText, baseConf: 0.8},
	{name: "original_amount", labels: []*regexp.Regexp{label(`original\s+(?:amount|balance)`)}, kind: valueCurrency, baseConf: 0.8},
	{name: "current_balance", labels: []*regexp.Regexp{label(`(?:current|outstanding|present)\s+balance`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "monthly_payment", labels: []*regexp.Regexp{label(`monthly\s+payment`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "interest_rate", labels: []*regexp.Regexp{label(`(?:interest\s+)?rate\s*(?:\(%\))?\s*[:.]?`)}, kind: valuePercent, baseConf: 0.75},
	{name: "maturity_date", labels: []*regexp.Regexp{label(`maturity\s+date\s*[:.]?`)}, kind: valueDate, baseConf: 0.8},
	{name: "total_monthly_payment", labels: []*regexp.Regexp{label(`total\s+monthly\s+payments?`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "total_debt", labels: []*regexp.Regexp{label(`total\s+(?:debt|balance|indebtedness)`)}, kind: valueCurrency, baseConf: 0.85},
}

// NewDebtScheduleExtractor handles business debt schedules.
func NewDebtScheduleExtractor(log *slog.Logger, pdftotextFallback bool) Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &patternExtractor{
		log:               log.With("extractor", "debt_schedule"),
		pdftotextFallback: pdftotextFallback,
		patterns: map[model.DocumentType][]fieldPattern{
			model.DocTypeDebtSchedule: debtSchedulePatterns,
		},
		required: map[model.DocumentType][]string{
			model.DocTypeDebtSchedule: {"total_debt"},
		},
		types: []model.DocumentType{model.DocTypeDebtSchedule},
	}
}
