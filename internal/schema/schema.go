// Package schema maps extracted fields onto persistence-ready records
// and validates them field by field: type coercion, value constraints,
// format checks, required fields, and cross-field consistency.
package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

// Name identifies a target record schema.
type Name string

const (
	SchemaPersonalFinancialStatement Name = "PersonalFinancialStatement"
	SchemaBeneficialOwner            Name = "BeneficialOwner"
	SchemaBusinessFinancialStatement Name = "BusinessFinancialStatement"
	SchemaLoanApplication            Name = "LoanApplication"
	SchemaDebtSchedule               Name = "DebtSchedule"
	SchemaDocumentRecord             Name = "DocumentRecord"
)

// ValidationStatus classifies one validation finding.
type ValidationStatus string

const (
	StatusValid           ValidationStatus = "valid"
	StatusInvalid         ValidationStatus = "invalid"
	StatusWarning         ValidationStatus = "warning"
	StatusMissingRequired ValidationStatus = "missing_required"
)

// ValidationResult is one finding about one schema field.
type ValidationResult struct {
	FieldName string           `json:"field_name"`
	Status    ValidationStatus `json:"status"`
	Message   string           `json:"message,omitempty"`
}

type coerceKind int

const (
	coerceString coerceKind = iota
	coerceInt
	coerceFloat
	coerceDecimal
	coerceBool
	coerceDate
	coerceDateTime
)

// fieldSpec describes one schema field: target type plus optional
// range and format constraints.
type fieldSpec struct {
	kind     coerceKind
	required bool
	min, max *decimal.Decimal
	pattern  *regexp.Regexp
}

func dec(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

var (
	ssnFormatRe   = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	emailFormatRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	phoneFormatRe = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
	zipFormatRe   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

var schemaFields = map[Name]map[string]fieldSpec{
	SchemaPersonalFinancialStatement: {
		"name":                     {kind: coerceString, required: true},
		"social_security_number":   {kind: coerceString, pattern: ssnFormatRe},
		"date_of_birth":            {kind: coerceDate},
		"residence_address":        {kind: coerceString},
		"residence_zip":            {kind: coerceString, pattern: zipFormatRe},
		"phone":                    {kind: coerceString, pattern: phoneFormatRe},
		"email":                    {kind: coerceString, pattern: emailFormatRe},
		"statement_date":           {kind: coerceDate},
		"cash_on_hand":             {kind: coerceDecimal},
		"savings_accounts":         {kind: coerceDecimal},
		"retirement_accounts":      {kind: coerceDecimal},
		"accounts_receivable":      {kind: coerceDecimal},
		"life_insurance_value":     {kind: coerceDecimal},
		"stocks_and_bonds":         {kind: coerceDecimal},
		"real_estate_owned":        {kind: coerceDecimal},
		"automobiles":              {kind: coerceDecimal},
		"other_personal_property":  {kind: coerceDecimal},
		"other_assets":             {kind: coerceDecimal},
		"accounts_payable":         {kind: coerceDecimal},
		"notes_payable":            {kind: coerceDecimal},
		"auto_loans":               {kind: coerceDecimal},
		"other_installment_loans":  {kind: coerceDecimal},
		"mortgages_on_real_estate": {kind: coerceDecimal},
		"unpaid_taxes":             {kind: coerceDecimal},
		"other_liabilities":        {kind: coerceDecimal},
		"salary":                   {kind: coerceDecimal, min: dec(0)},
		"total_assets":             {kind: coerceDecimal, required: true, min: dec(0)},
		"total_liabilities":        {kind: coerceDecimal, required: true, min: dec(0)},
		"net_worth":                {kind: coerceDecimal, required: true},
		"confidence_score":         {kind: coerceFloat, min: dec(0), max: dec(1)},
	},
	SchemaBeneficialOwner: {
		"name":                   {kind: coerceString, required: true},
		"title":                  {kind: coerceString},
		"ownership_percentage":   {kind: coerceFloat, required: true, min: dec(0), max: dec(100)},
		"social_security_number": {kind: coerceString, pattern: ssnFormatRe},
		"date_of_birth":          {kind: coerceDate},
		"address":                {kind: coerceString},
		"email":                  {kind: coerceString, pattern: emailFormatRe},
		"is_control_person":      {kind: coerceBool},
	},
	SchemaBusinessFinancialStatement: {
		"business_name":      {kind: coerceString, required: true},
		"statement_date":     {kind: coerceDate},
		"fiscal_year_end":    {kind: coerceDate},
		"total_assets":       {kind: coerceDecimal, required: true, min: dec(0)},
		"total_liabilities":  {kind: coerceDecimal, required: true, min: dec(0)},
		"total_equity":       {kind: coerceDecimal},
		"current_assets":     {kind: coerceDecimal},
		"current_liabilities": {kind: coerceDecimal},
		"gross_revenue":      {kind: coerceDecimal, min: dec(0)},
		"cost_of_goods_sold": {kind: coerceDecimal, min: dec(0)},
		"gross_profit":       {kind: coerceDecimal},
		"operating_expenses": {kind: coerceDecimal, min: dec(0)},
		"net_income":         {kind: coerceDecimal},
	},
	SchemaLoanApplication: {
		"application_number":    {kind: coerceString, required: true},
		"application_date":      {kind: coerceDate},
		"loan_amount":           {kind: coerceDecimal, required: true, min: dec(0)},
		"loan_purpose":          {kind: coerceString},
		"primary_borrower_name": {kind: coerceString, required: true},
		"business_name":         {kind: coerceString},
		"debt_to_income_ratio":  {kind: coerceFloat, min: dec(0), max: dec(10)},
		"requested_term_months": {kind: coerceInt, min: dec(0)},
	},
	SchemaDebtSchedule: {
		"business_name":        {kind: coerceString},
		"as_of_date":           {kind: coerceDate},
		"creditor_name":        {kind: coerceString},
		"original_amount":      {kind: coerceDecimal, min: dec(0)},
		"current_balance":      {kind: coerceDecimal, min: dec(0)},
		"monthly_payment":      {kind: coerceDecimal, min: dec(0)},
		"interest_rate":        {kind: coerceFloat, min: dec(0), max: dec(100)},
		"maturity_date":        {kind: coerceDate},
		"total_monthly_payment": {kind: coerceDecimal, min: dec(0)},
		"total_debt":           {kind: coerceDecimal, min: dec(0)},
		"is_past_due":          {kind: coerceBool},
	},
	SchemaDocumentRecord: {
		"file_name":        {kind: coerceString, required: true},
		"document_type":    {kind: coerceString, required: true},
		"page_count":       {kind: coerceInt, min: dec(0)},
		"processed_at":     {kind: coerceDateTime},
		"confidence_score": {kind: coerceFloat, min: dec(0), max: dec(1)},
	},
}

var truthy = map[string]bool{"true": true, "yes": true, "1": true, "on": true}

// coerce converts a field value into the schema field's target type.
// A failed coercion returns an error and the caller keeps the raw value.
func coerce(v model.FieldValue, kind coerceKind) (any, error) {
	switch kind {
	case coerceString:
		if t, ok := v.Text(); ok {
			return strings.TrimSpace(t), nil
		}
		return v.String(), nil
	case coerceInt:
		if n, ok := v.Number(); ok {
			return int64(n), nil
		}
		if d, ok := v.AsDecimal(); ok {
			return d.IntPart(), nil
		}
		if t, ok := v.Text(); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to int", t)
			}
			return int64(f), nil
		}
		return nil, fmt.Errorf("cannot coerce %s to int", v.Kind())
	case coerceFloat:
		if n, ok := v.Number(); ok {
			return n, nil
		}
		if d, ok := v.AsDecimal(); ok {
			f, _ := d.Float64()
			return f, nil
		}
		return nil, fmt.Errorf("cannot coerce %s to float", v.Kind())
	case coerceDecimal:
		if d, ok := v.AsDecimal(); ok {
			// Round-trip through the string form so scale is stable.
			out, err := decimal.NewFromString(d.String())
			if err != nil {
				return nil, err
			}
			return out, nil
		}
		return nil, fmt.Errorf("cannot coerce %s to decimal", v.Kind())
	case coerceBool:
		if t, ok := v.Text(); ok {
			return truthy[strings.ToLower(strings.TrimSpace(t))], nil
		}
		if n, ok := v.Number(); ok {
			return n != 0, nil
		}
		return nil, fmt.Errorf("cannot coerce %s to bool", v.Kind())
	case coerceDate:
		if d, ok := v.Date(); ok {
			return d, nil
		}
		if t, ok := v.Text(); ok {
			return parseDate(t)
		}
		return nil, fmt.Errorf("cannot coerce %s to date", v.Kind())
	case coerceDateTime:
		if d, ok := v.Date(); ok {
			return d, nil
		}
		if t, ok := v.Text(); ok {
			if dt, err := time.Parse(time.RFC3339, strings.TrimSpace(t)); err == nil {
				return dt.UTC(), nil
			}
			return parseDate(t)
		}
		return nil, fmt.Errorf("cannot coerce %s to datetime", v.Kind())
	}
	return nil, fmt.Errorf("unknown coercion kind %d", kind)
}

// parseDate tries ISO format first, then the US slash form.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", s)
}
