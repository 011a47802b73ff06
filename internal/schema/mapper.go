package schema

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

// MappedRecord is a schema-shaped record ready for persistence,
// together with every validation finding produced while mapping.
type MappedRecord struct {
	Schema      Name                   `json:"schema"`
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Fields      map[string]any         `json:"fields"`
	Validations []ValidationResult     `json:"validations"`
}

// Errors returns the findings that block persistence.
func (r *MappedRecord) Errors() []ValidationResult {
	return r.filter(StatusInvalid, StatusMissingRequired)
}

// Warnings returns the non-blocking findings.
func (r *MappedRecord) Warnings() []ValidationResult {
	return r.filter(StatusWarning)
}

func (r *MappedRecord) filter(statuses ...ValidationStatus) []ValidationResult {
	var out []ValidationResult
	for _, v := range r.Validations {
		for _, s := range statuses {
			if v.Status == s {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// schemaForDocType binds each document type to its target schema.
// Types without an entry are not persisted as structured records.
var schemaForDocType = map[model.DocumentType]Name{
	model.DocTypePFS:          SchemaPersonalFinancialStatement,
	model.DocTypeSBAForm413:   SchemaPersonalFinancialStatement,
	model.DocTypeBalanceSheet: SchemaBusinessFinancialStatement,
	model.DocTypeProfitLoss:   SchemaBusinessFinancialStatement,
	model.DocTypeDebtSchedule: SchemaDebtSchedule,
}

// aliases rename known extractor field names onto schema field names.
// Fields not present in the target schema are dropped.
var aliases = map[model.DocumentType]map[string]string{
	model.DocTypePFS: {
		"ssn":          "social_security_number",
		"address":      "residence_address",
		"annual_salary": "salary",
	},
	model.DocTypeSBAForm413: {
		"ssn": "social_security_number",
	},
	model.DocTypeBalanceSheet: {
		"company_name": "business_name",
	},
	model.DocTypeProfitLoss: {
		"company_name": "business_name",
		"revenue":      "gross_revenue",
	},
	model.DocTypeDebtSchedule: {
		"company_name": "business_name",
	},
}

// Mapper maps extraction results onto schema records.
type Mapper struct {
	log *slog.Logger
	now func() time.Time
}

func NewMapper(log *slog.Logger) *Mapper {
	if log == nil {
		log = slog.Default()
	}
	return &Mapper{log: log, now: time.Now}
}

// SchemaFor reports the target schema for a document type, if any.
func SchemaFor(docType model.DocumentType) (Name, bool) {
	name, ok := schemaForDocType[docType]
	return name, ok
}

// Map converts one extraction result into a record of the schema bound
// to its document type. Coercion failures keep the raw value and record
// an invalid finding; the record itself is always returned.
func (m *Mapper) Map(res model.ExtractionResult) (*MappedRecord, error) {
	schemaName, ok := schemaForDocType[res.DocumentType]
	if !ok {
		return nil, fmt.Errorf("no schema bound to document type %q", res.DocumentType)
	}
	specs := schemaFields[schemaName]

	rec := m.newRecord(schemaName)
	for _, field := range res.Fields {
		target := m.targetField(res.DocumentType, field.Name)
		spec, known := specs[target]
		if !known {
			continue
		}
		m.mapField(rec, target, field.Value, spec)
	}
	m.checkRequired(rec, specs)
	m.crossFieldChecks(rec, schemaName)

	m.log.Debug("mapped record",
		"schema", schemaName,
		"fields", len(rec.Fields),
		"errors", len(rec.Errors()),
		"warnings", len(rec.Warnings()))
	return rec, nil
}

func (m *Mapper) newRecord(schemaName Name) *MappedRecord {
	now := m.now().UTC()
	return &MappedRecord{
		Schema:    schemaName,
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    make(map[string]any),
	}
}

func (m *Mapper) targetField(docType model.DocumentType, name string) string {
	if renames, ok := aliases[docType]; ok {
		if target, ok := renames[name]; ok {
			return target
		}
	}
	return name
}

// mapField coerces, range-checks, and format-checks a single value.
func (m *Mapper) mapField(rec *MappedRecord, name string, value model.FieldValue, spec fieldSpec) {
	if value.IsZero() {
		return
	}
	coerced, err := coerce(value, spec.kind)
	if err != nil {
		rec.Fields[name] = value.String()
		rec.Validations = append(rec.Validations, ValidationResult{
			FieldName: name,
			Status:    StatusInvalid,
			Message:   err.Error(),
		})
		return
	}
	rec.Fields[name] = coerced

	if spec.min != nil || spec.max != nil {
		if d, ok := asDecimal(coerced); ok {
			if spec.min != nil && d.LessThan(*spec.min) {
				rec.Validations = append(rec.Validations, ValidationResult{
					FieldName: name,
					Status:    StatusInvalid,
					Message:   fmt.Sprintf("value %s below minimum %s", d, spec.min),
				})
			}
			if spec.max != nil && d.GreaterThan(*spec.max) {
				rec.Validations = append(rec.Validations, ValidationResult{
					FieldName: name,
					Status:    StatusInvalid,
					Message:   fmt.Sprintf("value %s above maximum %s", d, spec.max),
				})
			}
		}
	}
	if spec.pattern != nil {
		if s, ok := coerced.(string); ok && !spec.pattern.MatchString(s) {
			rec.Validations = append(rec.Validations, ValidationResult{
				FieldName: name,
				Status:    StatusInvalid,
				Message:   fmt.Sprintf("value does not match required format %s", spec.pattern),
			})
		}
	}
}

// checkRequired records one missing_required finding per absent or
// blank required field, in deterministic order.
func (m *Mapper) checkRequired(rec *MappedRecord, specs map[string]fieldSpec) {
	names := make([]string, 0, len(specs))
	for name, spec := range specs {
		if spec.required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		v, present := rec.Fields[name]
		if !present || isBlank(v) {
			rec.Validations = append(rec.Validations, ValidationResult{
				FieldName: name,
				Status:    StatusMissingRequired,
				Message:   "required field is missing or blank",
			})
		}
	}
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && s == ""
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case int64:
		return decimal.NewFromInt(x), true
	}
	return decimal.Zero, false
}

func recDecimal(rec *MappedRecord, name string) (decimal.Decimal, bool) {
	v, ok := rec.Fields[name]
	if !ok {
		return decimal.Zero, false
	}
	return asDecimal(v)
}

var one = decimal.NewFromInt(1)

// crossFieldChecks runs schema-specific consistency checks. Findings
// here are warnings: plausible data that deserves a second look.
func (m *Mapper) crossFieldChecks(rec *MappedRecord, schemaName Name) {
	switch schemaName {
	case SchemaPersonalFinancialStatement:
		m.checkPersonalStatement(rec)
	case SchemaBusinessFinancialStatement:
		m.checkBusinessStatement(rec)
	}
}

func (m *Mapper) checkPersonalStatement(rec *MappedRecord) {
	assets, okA := recDecimal(rec, "total_assets")
	liabilities, okL := recDecimal(rec, "total_liabilities")
	netWorth, okN := recDecimal(rec, "net_worth")

	if okA && okL && okN {
		computed := assets.Sub(liabilities)
		if diff := computed.Sub(netWorth).Abs(); diff.GreaterThan(one) {
			rec.Validations = append(rec.Validations, ValidationResult{
				FieldName: "net_worth",
				Status:    StatusWarning,
				Message: fmt.Sprintf("net worth %s differs from assets minus liabilities %s by %s",
					netWorth.StringFixed(2), computed.StringFixed(2), diff.StringFixed(2)),
			})
		}
	}
	if okA && assets.IsNegative() {
		rec.Validations = append(rec.Validations, ValidationResult{
			FieldName: "total_assets",
			Status:    StatusWarning,
			Message:   "total assets are negative",
		})
	}

	// Itemized assets should roughly add up to the stated total.
	if okA && assets.IsPositive() {
		items := []string{
			"cash_on_hand", "savings_accounts", "retirement_accounts",
			"accounts_receivable", "life_insurance_value", "stocks_and_bonds",
			"real_estate_owned", "automobiles", "other_personal_property", "other_assets",
		}
		sum := decimal.Zero
		var counted int
		for _, item := range items {
			if d, ok := recDecimal(rec, item); ok {
				sum = sum.Add(d)
				counted++
			}
		}
		if counted > 0 {
			tolerance := assets.Mul(decimal.NewFromFloat(0.1))
			if sum.Sub(assets).Abs().GreaterThan(tolerance) {
				rec.Validations = append(rec.Validations, ValidationResult{
					FieldName: "total_assets",
					Status:    StatusWarning,
					Message: fmt.Sprintf("itemized assets %s differ from total assets %s by more than 10%%",
						sum.StringFixed(2), assets.StringFixed(2)),
				})
			}
		}
	}
}

func (m *Mapper) checkBusinessStatement(rec *MappedRecord) {
	assets, okA := recDecimal(rec, "total_assets")
	liabilities, okL := recDecimal(rec, "total_liabilities")
	equity, okE := recDecimal(rec, "total_equity")

	if okA && okL && okE {
		computed := assets.Sub(liabilities)
		if diff := computed.Sub(equity).Abs(); diff.GreaterThan(one) {
			rec.Validations = append(rec.Validations, ValidationResult{
				FieldName: "total_equity",
				Status:    StatusWarning,
				Message: fmt.Sprintf("equity %s does not balance assets minus liabilities %s",
					equity.StringFixed(2), computed.StringFixed(2)),
			})
		}
	}

	revenue, okR := recDecimal(rec, "gross_revenue")
	cogs, okC := recDecimal(rec, "cost_of_goods_sold")
	grossProfit, okG := recDecimal(rec, "gross_profit")
	if okR && okC && okG {
		computed := revenue.Sub(cogs)
		if diff := computed.Sub(grossProfit).Abs(); diff.GreaterThan(one) {
			rec.Validations = append(rec.Validations, ValidationResult{
				FieldName: "gross_profit",
				Status:    StatusWarning,
				Message: fmt.Sprintf("gross profit %s does not equal revenue minus cost of goods sold %s",
					grossProfit.StringFixed(2), computed.StringFixed(2)),
			})
		}
	}
}
