package confidence

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

var (
	ocrArtifactRe = regexp.MustCompile(`[^\w\s$.,()/-]`)
	ssnRe         = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	allAlphaRe    = regexp.MustCompile(`^[A-Za-z\s.'-]+$`)
)

// expectedLabels are the label patterns that should appear near a field
// in the source text when the extraction landed on the right spot.
var expectedLabels = map[string]*regexp.Regexp{
	"name":                   regexp.MustCompile(`(?i)name\s*[:.]`),
	"social_security_number": regexp.MustCompile(`(?i)(social\s+security|ssn)\s*(number|no\.?)?\s*[:.]`),
	"total_assets":           regexp.MustCompile(`(?i)total\s+assets?\s*[:.]?`),
	"total_liabilities":      regexp.MustCompile(`(?i)total\s+liabilit(y|ies)\s*[:.]?`),
	"net_worth":              regexp.MustCompile(`(?i)net\s+worth\s*[:.]?`),
	"salary":                 regexp.MustCompile(`(?i)salary\s*[:.]?`),
	"date_of_birth":          regexp.MustCompile(`(?i)(date\s+of\s+birth|dob|born)\s*[:.]?`),
	"statement_date":         regexp.MustCompile(`(?i)(statement\s+date|as\s+of|dated?)\s*[:.]?`),
	"cash_on_hand":           regexp.MustCompile(`(?i)cash\s+(on\s+hand|in\s+bank)`),
}

var totalFieldNames = map[string]bool{
	"total_assets":      true,
	"total_liabilities": true,
	"net_worth":         true,
}

var currencyFieldNames = map[string]bool{
	"total_assets":             true,
	"total_liabilities":        true,
	"net_worth":                true,
	"cash_on_hand":             true,
	"savings_accounts":         true,
	"real_estate_owned":        true,
	"mortgages_on_real_estate": true,
	"salary":                   true,
	"loan_amount":              true,
	"beginning_balance":        true,
	"ending_balance":           true,
}

// AnalyzeField scores one extracted field against its siblings and the
// document text. The result is deterministic for identical inputs.
// Without document text the context factor is omitted entirely, so the
// remaining factors carry proportionally more weight.
func (s *Scorer) AnalyzeField(field model.ExtractedField, docType model.DocumentType, siblings []model.ExtractedField, documentText string) FieldAnalysis {
	factors := []Factor{
		s.patternFactor(field),
		s.formatFactor(field),
	}
	if documentText != "" {
		factors = append(factors, s.contextFactor(field, documentText))
	}
	factors = append(factors,
		s.crossFieldFactor(field, siblings),
		s.completenessFactor(field),
	)

	final := applyFactors(field.Confidence, factors)

	analysis := FieldAnalysis{
		FieldName:       field.Name,
		BaseConfidence:  field.Confidence,
		Factors:         factors,
		FinalConfidence: final,
		Reasoning:       s.reasoning(field.Confidence, final, factors),
		ValidationNotes: s.validationNotes(field, factors),
	}
	analysis.RequiresManualReview = s.needsReview(field, final, factors)
	return analysis
}

// applyFactors nudges the base confidence by the weighted mean factor
// impact, scaled so factors can move a score by at most factorScale.
func applyFactors(base float64, factors []Factor) float64 {
	var sum, weight float64
	for _, f := range factors {
		sum += f.Impact * f.Weight
		weight += f.Weight
	}
	if weight == 0 {
		return model.Clamp01(base)
	}
	return model.Clamp01(base + factorScale*(sum/weight))
}

func (s *Scorer) patternFactor(field model.ExtractedField) Factor {
	f := Factor{Type: FactorPatternMatch, Weight: weightPattern, Description: "Pattern match quality"}

	if len(field.RawText) > 5 && strings.Contains(field.RawText, ":") {
		f.Impact += 0.1
		f.Evidence = appendEvidence(f.Evidence, "labeled value in source text")
	}
	if len(ocrArtifactRe.FindAllString(field.RawText, -1)) > 2 {
		f.Impact -= 0.2
		f.Evidence = appendEvidence(f.Evidence, "OCR artifacts in source text")
	}
	if totalFieldNames[field.Name] {
		if d, ok := field.Value.AsDecimal(); ok && d.IsPositive() {
			f.Impact += 0.15
			f.Evidence = appendEvidence(f.Evidence, "positive total amount")
		}
	}
	return f
}

func (s *Scorer) formatFactor(field model.ExtractedField) Factor {
	f := Factor{Type: FactorFormatValidation, Weight: weightFormat, Description: "Format validation"}

	if field.Value.IsZero() {
		f.Impact = -0.5
		f.Evidence = "no value extracted"
		return f
	}

	switch {
	case currencyFieldNames[field.Name]:
		d, ok := field.Value.AsDecimal()
		switch {
		case !ok:
			f.Impact = -0.3
			f.Evidence = "currency field is not numeric"
		case d.IsNegative():
			f.Impact = -0.1
			f.Evidence = "negative currency amount"
		default:
			f.Impact = 0.2
			f.Evidence = "well-formed currency amount"
		}
	case strings.Contains(field.Name, "date"):
		if d, ok := field.Value.Date(); ok {
			if y := d.Year(); y >= 1900 && y <= time.Now().Year()+1 {
				f.Impact = 0.2
				f.Evidence = "date in plausible range"
			} else {
				f.Impact = -0.2
				f.Evidence = fmt.Sprintf("implausible year %d", y)
			}
		} else {
			f.Impact = -0.3
			f.Evidence = "date field does not parse as a date"
		}
	case strings.Contains(field.Name, "name"):
		if text, ok := field.Value.Text(); ok {
			if len(strings.Fields(text)) >= 2 {
				f.Impact += 0.2
			}
			if allAlphaRe.MatchString(text) {
				f.Impact += 0.1
			} else {
				f.Impact -= 0.1
				f.Evidence = "name contains non-alphabetic characters"
			}
		} else {
			f.Impact = -0.3
			f.Evidence = "name field is not text"
		}
	case field.Name == "social_security_number":
		text, _ := field.Value.Text()
		if ssnRe.MatchString(text) {
			f.Impact = 0.3
			f.Evidence = "SSN matches NNN-NN-NNNN"
		} else {
			f.Impact = -0.4
			f.Evidence = "SSN format mismatch"
		}
	}
	return f
}

func (s *Scorer) contextFactor(field model.ExtractedField, documentText string) Factor {
	f := Factor{Type: FactorContextValidation, Weight: weightContext, Description: "Surrounding context"}

	if field.RawText == "" || documentText == "" {
		f.Evidence = "no context available"
		return f
	}
	idx := strings.Index(documentText, field.RawText)
	if idx < 0 {
		f.Evidence = "source text not found in document"
		return f
	}
	start := idx - 200
	if start < 0 {
		start = 0
	}
	end := idx + len(field.RawText) + 200
	if end > len(documentText) {
		end = len(documentText)
	}
	window := documentText[start:end]

	if re, ok := expectedLabels[field.Name]; ok {
		if re.MatchString(window) {
			f.Impact += 0.15
			f.Evidence = appendEvidence(f.Evidence, "expected label near value")
		} else {
			f.Impact -= 0.1
			f.Evidence = appendEvidence(f.Evidence, "expected label missing near value")
		}
	}
	if strings.Contains(window, "\t") || strings.Contains(window, "  ") {
		f.Impact += 0.1
		f.Evidence = appendEvidence(f.Evidence, "tabular structure around value")
	}
	return f
}

func (s *Scorer) crossFieldFactor(field model.ExtractedField, siblings []model.ExtractedField) Factor {
	f := Factor{Type: FactorCrossField, Weight: weightCrossField, Description: "Cross-field consistency"}

	switch {
	case field.Name == "net_worth":
		assets, okA := siblingDecimal(siblings, "total_assets")
		liabilities, okL := siblingDecimal(siblings, "total_liabilities")
		nw, okN := field.Value.AsDecimal()
		if okA && okL && okN {
			diff := assets.Sub(liabilities).Sub(nw).Abs()
			switch {
			case diff.LessThanOrEqual(decimal.NewFromInt(1)):
				f.Impact += 0.3
				f.Evidence = "net worth equals assets minus liabilities"
			case diff.LessThanOrEqual(decimal.NewFromInt(100)):
				f.Impact += 0.1
				f.Evidence = "net worth close to assets minus liabilities"
			default:
				f.Impact -= 0.2
				f.Evidence = fmt.Sprintf("net worth off by %s from assets minus liabilities", diff.StringFixed(2))
			}
		}
	case strings.Contains(field.Name, "name"):
		names := []string{}
		if t, ok := field.Value.Text(); ok && t != "" {
			names = append(names, normalizeName(t))
		}
		for _, sib := range siblings {
			if sib.Name == field.Name || !strings.Contains(sib.Name, "name") {
				continue
			}
			if t, ok := sib.Value.Text(); ok && t != "" {
				names = append(names, normalizeName(t))
			}
		}
		if len(names) >= 2 {
			consistent := true
			for _, n := range names[1:] {
				if n != names[0] {
					consistent = false
					break
				}
			}
			if consistent {
				f.Impact += 0.2
				f.Evidence = "name fields agree"
			} else {
				f.Impact -= 0.1
				f.Evidence = "name fields disagree"
			}
		}
	case strings.Contains(field.Name, "date"):
		years := []int{}
		if d, ok := field.Value.Date(); ok {
			years = append(years, d.Year())
		}
		for _, sib := range siblings {
			if sib.Name == field.Name || !strings.Contains(sib.Name, "date") {
				continue
			}
			if d, ok := sib.Value.Date(); ok {
				years = append(years, d.Year())
			}
		}
		if len(years) >= 2 {
			sort.Ints(years)
			if years[len(years)-1]-years[0] <= 5 {
				f.Impact += 0.1
				f.Evidence = "date fields within a plausible span"
			}
		}
	}
	return f
}

func (s *Scorer) completenessFactor(field model.ExtractedField) Factor {
	f := Factor{Type: FactorCompleteness, Weight: weightCompleteness, Description: "Field completeness"}

	if !field.Value.IsZero() {
		f.Impact += 0.2
	} else {
		f.Impact -= 0.3
	}
	if field.RawText != "" {
		f.Impact += 0.1
	}
	switch field.ValidationStatus {
	case "valid":
		f.Impact += 0.2
	case "invalid":
		f.Impact -= 0.3
	case "questionable":
		f.Impact -= 0.1
	}
	return f
}

func (s *Scorer) needsReview(field model.ExtractedField, final float64, factors []Factor) bool {
	if final < s.cfg.ManualReviewThreshold {
		return true
	}
	for _, f := range factors {
		if f.Type == FactorFormatValidation && f.Impact < -0.2 {
			return true
		}
	}
	if importantFields[field.Name] && final < s.cfg.ImportantFieldThreshold {
		return true
	}
	return false
}

func (s *Scorer) reasoning(base, final float64, factors []Factor) string {
	var positives, negatives []string
	for _, f := range factors {
		if f.Impact > 0 {
			positives = append(positives, f.Description)
		} else if f.Impact < 0 {
			negatives = append(negatives, f.Description)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Base confidence: %.2f.", base)
	if len(positives) > 0 {
		fmt.Fprintf(&b, " Positive: %s.", strings.Join(positives, ", "))
	}
	if len(negatives) > 0 {
		fmt.Fprintf(&b, " Negative: %s.", strings.Join(negatives, ", "))
	}
	switch {
	case final >= s.cfg.HighConfidenceThreshold:
		b.WriteString(" High confidence extraction.")
	case final >= s.cfg.MediumConfidenceThreshold:
		b.WriteString(" Medium confidence extraction.")
	default:
		b.WriteString(" Low confidence extraction.")
	}
	return b.String()
}

func (s *Scorer) validationNotes(field model.ExtractedField, factors []Factor) []string {
	var notes []string
	for _, f := range factors {
		if f.Impact < -0.1 && f.Evidence != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", f.Description, f.Evidence))
		}
	}
	if field.Name == "net_worth" {
		if d, ok := field.Value.AsDecimal(); ok && d.IsNegative() {
			notes = append(notes, "net worth is negative")
		}
	}
	if totalFieldNames[field.Name] {
		if d, ok := field.Value.AsDecimal(); ok && d.IsZero() {
			notes = append(notes, "total amount is zero")
		}
	}
	return notes
}

func siblingDecimal(siblings []model.ExtractedField, name string) (decimal.Decimal, bool) {
	for _, f := range siblings {
		if f.Name == name {
			return f.Value.AsDecimal()
		}
	}
	return decimal.Zero, false
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func appendEvidence(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
