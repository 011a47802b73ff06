package schema

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

var (
	fullOwnership = decimal.NewFromInt(100)
	minExpectedOwnership = decimal.NewFromInt(75)
)

// MapOwners maps a batch of beneficial owners into one combined record.
// Each owner's fields are validated against the BeneficialOwner schema
// and stored under an owner_{i}_ prefix; the batch as a whole is then
// checked for plausible total ownership.
func (m *Mapper) MapOwners(owners [][]model.ExtractedField) *MappedRecord {
	rec := m.newRecord(SchemaBeneficialOwner)
	specs := schemaFields[SchemaBeneficialOwner]

	totalOwnership := decimal.Zero
	for i, fields := range owners {
		prefix := fmt.Sprintf("owner_%d_", i)
		sub := m.newRecord(SchemaBeneficialOwner)
		for _, field := range fields {
			spec, known := specs[field.Name]
			if !known {
				continue
			}
			m.mapField(sub, field.Name, field.Value, spec)
		}
		m.checkRequired(sub, specs)

		for name, v := range sub.Fields {
			rec.Fields[prefix+name] = v
		}
		for _, res := range sub.Validations {
			res.FieldName = prefix + res.FieldName
			rec.Validations = append(rec.Validations, res)
		}
		if pct, ok := recDecimal(sub, "ownership_percentage"); ok {
			totalOwnership = totalOwnership.Add(pct)
		}
	}
	rec.Fields["owner_count"] = int64(len(owners))
	rec.Fields["total_ownership_percentage"] = totalOwnership

	if totalOwnership.GreaterThan(fullOwnership) {
		rec.Validations = append(rec.Validations, ValidationResult{
			FieldName: "total_ownership_percentage",
			Status:    StatusWarning,
			Message:   fmt.Sprintf("combined ownership %s%% exceeds 100%%", totalOwnership.StringFixed(2)),
		})
	} else if len(owners) > 1 && totalOwnership.LessThan(minExpectedOwnership) {
		rec.Validations = append(rec.Validations, ValidationResult{
			FieldName: "total_ownership_percentage",
			Status:    StatusWarning,
			Message:   fmt.Sprintf("combined ownership %s%% is below the expected 75%% minimum", totalOwnership.StringFixed(2)),
		})
	}
	return rec
}

// Summary aggregates validation findings across a set of mapped records.
type Summary struct {
	Records         int     `json:"records"`
	ValidRecords    int     `json:"valid_records"`
	TotalErrors     int     `json:"total_errors"`
	TotalWarnings   int     `json:"total_warnings"`
	ValidationScore float64 `json:"validation_score"`
}

// Summarize computes aggregate validation statistics. The score is the
// fraction of records with no blocking findings.
func Summarize(records []*MappedRecord) Summary {
	s := Summary{Records: len(records)}
	for _, rec := range records {
		errs := len(rec.Errors())
		s.TotalErrors += errs
		s.TotalWarnings += len(rec.Warnings())
		if errs == 0 {
			s.ValidRecords++
		}
	}
	if s.Records > 0 {
		s.ValidationScore = float64(s.ValidRecords) / float64(s.Records)
	}
	return s
}
