package extract

import (
	"log/slog"
	"regexp"

	"github.com/dgrange/loanpipe/internal/model"
)

// personalStatementPatterns cover SBA Form 413 and generic personal
// financial statement layouts. Labels are matched per line; the value
// is read from the remainder of the matching line.
var personalStatementPatterns = []fieldPattern{
	{
		name:     "name",
		labels:   []*regexp.Regexp{label(`(?:^|\b)name\s*(?:of\s+(?:individual|applicant))?\s*[:.]`)},
		kind:     valueText,
		baseConf: 0.85,
	},
	{
		name:     "social_security_number",
		labels:   []*regexp.Regexp{label(`(?:social\s+security|ssn)\s*(?:number|no\.?)?\s*[:.]?`)},
		kind:     valueSSN,
		baseConf: 0.9,
	},
	{
		name:     "date_of_birth",
		labels:   []*regexp.Regexp{label(`(?:date\s+of\s+birth|dob)\s*[:.]?`)},
		kind:     valueDate,
		baseConf: 0.85,
	},
	{
		name:     "residence_address",
		labels:   []*regexp.Regexp{label(`(?:residence|home)\s+address\s*[:.]`)},
		kind:     valueText,
		baseConf: 0.75,
	},
	{
		name:     "statement_date",
		labels:   []*regexp.Regexp{label(`(?:statement\s+date|as\s+of)\s*[:.]?`)},
		kind:     valueDate,
		baseConf: 0.8,
	},
	{
		name:     "cash_on_hand",
		labels:   []*regexp.Regexp{label(`cash\s+(?:on\s+hand|in\s+banks?)(?:\s+(?:and|&)\s+in\s+banks?)?`)},
		kind:     valueCurrency,
		baseConf: 0.8,
	},
	{
		name:     "savings_accounts",
		labels:   []*regexp.Regexp{label(`savings\s+accounts?`)},
		kind:     valueCurrency,
		baseConf: 0.8,
	},
	{
		name:     "retirement_accounts",
		labels:   []*regexp.Regexp{label(`(?:ira|retirement)\s+(?:or\s+other\s+retirement\s+)?accounts?`)},
		kind:     valueCurrency,
		baseConf: 0.75,
	},
	{
		name:     "accounts_receivable",
		labels:   []*regexp.Regexp{label(`accounts?\s+(?:and\s+notes\s+)?receivable`)},
		kind:     valueCurrency,
		baseConf: 0.75,
	},
	{
		name:     "life_insurance_value",
		labels:   []*regexp.Regexp{label(`life\s+insurance\s*(?:[-(]?\s*cash\s+surrender\s+value(?:\s+only)?\s*\)?)?`)},
		kind:     valueCurrency,
		baseConf: 0.7,
	},
	{
		name:     "stocks_and_bonds",
		labels:   []*regexp.Regexp{label(`stocks?\s+(?:and|&)\s+bonds?`)},
		kind:     valueCurrency,
		baseConf: 0.8,
	},
	{
		name:     "real_estate_owned",
		labels:   []*regexp.Regexp{label(`real\s+estate(?:\s+owned)?`)},
		kind:     valueCurrency,
		baseConf: 0.8,
	},
	{
		name:     "automobiles",
		labels:   []*regexp.Regexp{label(`automobiles?(?:\s*[-(]\s*present\s+value\s*\)?)?`)},
		kind:     valueCurrency,
		baseConf: 0.75,
	},
	{
		name:     "other_assets",
		labels:   []*regexp.Regexp{label(`other\s+assets?`)},
		kind:     valueCurrency,
		baseConf: 0.7,
	},
	{
		name:     "accounts_payable",
		labels:   []*regexp.Regexp{label(`accounts?\s+payable`)},
		kind:     valueCurrency,
		baseConf: 0.75,
	},
	{
		name:     "notes_payable",
		labels:   []*regexp.Regexp{label(`notes\s+payable(?:\s+to\s+banks?\s+and\s+others)?`)},
		kind:     valueCurrency,
		baseConf: 0.75,
	},
	{
		name:     "auto_loans",
		labels:   []*regexp.Regexp{label(`(?:installment\s+account\s*\(auto\)|auto\s+loans?)`)},
		kind:     valueCurrency,
		baseConf: 0.7,
	},
	{
		name:     "mortgages_on_real_estate",
		labels:   []*regexp.Regexp{label(`mortgages?\s+on\s+real\s+estate`)},
		kind:     valueCurrency,
		baseConf: 0.8,
	},
	{
		name:     "unpaid_taxes",
		labels:   []*regexp.Regexp{label(`unpaid\s+taxes`)},
		kind:     valueCurrency,
		baseConf: 0.75,
	},
	{
		name:     "other_liabilities",
		labels:   []*regexp.Regexp{label(`other\s+liabilit(?:y|ies)`)},
		kind:     valueCurrency,
		baseConf: 0.7,
	},
	{
		name:     "salary",
		labels:   []*regexp.Regexp{label(`(?:^|\b)salary\s*[:.]?`)},
		kind:     valueCurrency,
		baseConf: 0.8,
	},
	{
		name:     "total_assets",
		labels:   []*regexp.Regexp{label(`total\s+assets?`)},
		kind:     valueCurrency,
		baseConf: 0.9,
	},
	{
		name:     "total_liabilities",
		labels:   []*regexp.Regexp{label(`total\s+liabilit(?:y|ies)(?:\s+and\s+net\s+worth)?`)},
		kind:     valueCurrency,
		baseConf: 0.9,
	},
	{
		name:     "net_worth",
		labels:   []*regexp.Regexp{label(`net\s+worth`)},
		kind:     valueCurrency,
		baseConf: 0.9,
	},
}

var personalRequiredFields = []string{"name", "total_assets", "total_liabilities", "net_worth"}

// NewPersonalStatementExtractor handles personal financial statements
// and SBA Form 413 filings.
func NewPersonalStatementExtractor(log *slog.Logger, pdftotextFallback bool) Extractor {
	if log == nil {
		log = slog.Default()
	}
	types := []model.DocumentType{model.DocTypePFS, model.DocTypeSBAForm413}
	patterns := make(map[model.DocumentType][]fieldPattern, len(types))
	required := make(map[model.DocumentType][]string, len(types))
	for _, t := range types {
		patterns[t] = personalStatementPatterns
		required[t] = personalRequiredFields
	}
	return &patternExtractor{
		log:               log.With("extractor", "personal_statement"),
		pdftotextFallback: pdftotextFallback,
		patterns:          patterns,
		required:          required,
		types:             types,
	}
}
