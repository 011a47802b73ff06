package extract

import (
	"log/slog"
	"regexp"

	"github.com/dgrange/loanpipe/internal/model"
)

var balanceSheetPatterns = []fieldPattern{
	{name: "business_name", labels: []*regexp.Regexp{label(`(?:business|company)\s+name\s*[:.]`)}, kind: valueText, baseConf: 0.85},
	{name: "statement_date", labels: []*regexp.Regexp{label(`(?:statement\s+date|as\s+of|for\s+the\s+period\s+end(?:ed|ing))\s*[:.]?`)}, kind: valueDate, baseConf: 0.8},
	{name: "current_assets", labels: []*regexp.Regexp{label(`total\s+current\s+assets?`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "current_liabilities", labels: []*regexp.Regexp{label(`total\s+current\s+liabilit(?:y|ies)`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "total_assets", labels: []*regexp.Regexp{label(`total\s+assets?`)}, kind: valueCurrency, baseConf: 0.9},
	// Matches the first "Total Liabilities" line, which precedes the
	// "Total Liabilities and Equity" footer on standard layouts.
	{name: "total_liabilities", labels: []*regexp.Regexp{label(`total\s+liabilit(?:y|ies)`)}, kind: valueCurrency, baseConf: 0.9},
	{name: "total_equity", labels: []*regexp.Regexp{label(`total\s+(?:shareholders?'?|owners?'?|stockholders?'?)?\s*equity`)}, kind: valueCurrency, baseConf: 0.85},
}

var profitLossPatterns = []fieldPattern{
	{name: "business_name", labels: []*regexp.Regexp{label(`(?:business|company)\s+name\s*[:.]`)}, kind: valueText, baseConf: 0.85},
	{name: "statement_date", labels: []*regexp.Regexp{label(`for\s+the\s+(?:year|period)\s+end(?:ed|ing)\s*[:.]?`)}, kind: valueDate, baseConf: 0.75},
	{name: "gross_revenue", labels: []*regexp.Regexp{label(`(?:gross\s+revenue|total\s+(?:revenue|sales|income))`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "cost_of_goods_sold", labels: []*regexp.Regexp{label(`cost\s+of\s+(?:goods\s+sold|sales)|cogs`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "gross_profit", labels: []*regexp.Regexp{label(`gross\s+profit`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "operating_expenses", labels: []*regexp.Regexp{label(`total\s+(?:operating\s+)?expenses`)}, kind: valueCurrency, baseConf: 0.8},
	{name: "net_income", labels: []*regexp.Regexp{label(`net\s+(?:income|profit|earnings)`)}, kind: valueCurrency, baseConf: 0.9},
}

var bankStatementPatterns = []fieldPattern{
	{name: "account_holder_name", labels: []*regexp.Regexp{label(`(?:account\s+holder|customer)\s*(?:name)?\s*[:.]`)}, kind: valueText, baseConf: 0.8},
	{name: "account_number", labels: []*regexp.Regexp{label(`account\s+(?:number|no\.?|#)\s*[:.]?`)}, kind: valueText, baseConf: 0.85},
	{name: "bank_name", labels: []*regexp.Regexp{label(`bank\s+name\s*[:.]`)}, kind: valueText, baseConf: 0.7},
	{name: "statement_period", labels: []*regexp.Regexp{label(`statement\s+period\s*[:.]?`)}, kind: valueText, baseConf: 0.75},
	{name: "beginning_balance", labels: []*regexp.Regexp{label(`(?:beginning|opening|previous)\s+balance`)}, kind: valueCurrency, baseConf: 0.85},
	{name: "ending_balance", labels: []*regexp.Regexp{label(`(?:ending|closing|new)\s+balance`)}, kind: valueCurrency, baseConf: 0.85},
}

// NewFinancialStatementExtractor handles business financial documents:
// balance sheets, profit and loss statements, and bank statements.
func NewFinancialStatementExtractor(log *slog.Logger, pdftotextFallback bool) Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &patternExtractor{
		log:               log.With("extractor", "financial_statement"),
		pdftotextFallback: pdftotextFallback,
		patterns: map[model.DocumentType][]fieldPattern{
			model.DocTypeBalanceSheet:  balanceSheetPatterns,
			model.DocTypeProfitLoss:    profitLossPatterns,
			model.DocTypeBankStatement: bankStatementPatterns,
		},
		required: map[model.DocumentType][]string{
			model.DocTypeBalanceSheet:  {"total_assets", "total_liabilities"},
			model.DocTypeProfitLoss:    {"gross_revenue", "net_income"},
			model.DocTypeBankStatement: {"ending_balance"},
		},
		types: []model.DocumentType{
			model.DocTypeBalanceSheet,
			model.DocTypeProfitLoss,
			model.DocTypeBankStatement,
		},
	}
}
