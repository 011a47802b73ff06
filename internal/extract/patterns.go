package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dgrange/loanpipe/internal/model"
)

// fieldPattern binds a field name to the label regexes that locate it
// and the kind of value expected after the label.
type fieldPattern struct {
	name     string
	labels   []*regexp.Regexp
	kind     valueKind
	baseConf float64
}

type valueKind int

const (
	valueText valueKind = iota
	valueCurrency
	valueDate
	valueSSN
	valuePercent
)

// currencyRe matches amounts like $1,234.56, 1234, or (1,234.56) for
// negatives, as they appear after a label on the same line.
var currencyRe = regexp.MustCompile(`\(?\$?\s*-?[\d,]+(?:\.\d{1,2})?\)?`)

var ssnValueRe = regexp.MustCompile(`\d{3}-\d{2}-\d{4}`)

var dateValueRe = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|(?i:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`)

func label(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

// parseCurrency interprets an amount token; parentheses mean negative.
func parseCurrency(token string) (decimal.Decimal, bool) {
	token = strings.TrimSpace(token)
	negative := strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")")
	token = strings.Trim(token, "()")
	token = strings.ReplaceAll(token, "$", "")
	token = strings.ReplaceAll(token, ",", "")
	token = strings.TrimSpace(token)
	if token == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

var dateLayouts = []string{"1/2/2006", "01/02/2006", "2006-01-02", "January 2, 2006", "January 2 2006"}

func parseDateToken(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, token); err == nil {
			return d.UTC(), true
		}
	}
	return time.Time{}, false
}

// findField scans the document line by line for the first label match
// and reads the value from the remainder of that line.
func findField(text string, fp fieldPattern) (model.ExtractedField, bool) {
	for _, line := range strings.Split(text, "\n") {
		for _, re := range fp.labels {
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			rest := line[loc[1]:]
			value, ok := parseValue(rest, fp.kind)
			if !ok {
				continue
			}
			return model.ExtractedField{
				Name:       fp.name,
				Value:      value,
				Confidence: fp.baseConf,
				RawText:    strings.TrimSpace(line),
			}, true
		}
	}
	return model.ExtractedField{}, false
}

func parseValue(rest string, kind valueKind) (model.FieldValue, bool) {
	rest = strings.TrimLeft(rest, " \t:.-")
	switch kind {
	case valueCurrency:
		token := currencyRe.FindString(rest)
		if token == "" {
			return model.FieldValue{}, false
		}
		d, ok := parseCurrency(token)
		if !ok {
			return model.FieldValue{}, false
		}
		return model.NewDecimal(d), true
	case valueDate:
		token := dateValueRe.FindString(rest)
		if token == "" {
			return model.FieldValue{}, false
		}
		d, ok := parseDateToken(token)
		if !ok {
			return model.FieldValue{}, false
		}
		return model.NewDate(d), true
	case valueSSN:
		token := ssnValueRe.FindString(rest)
		if token == "" {
			return model.FieldValue{}, false
		}
		return model.NewText(token), true
	case valuePercent:
		token := currencyRe.FindString(strings.TrimSuffix(rest, "%"))
		if token == "" {
			return model.FieldValue{}, false
		}
		d, ok := parseCurrency(strings.TrimSuffix(token, "%"))
		if !ok {
			return model.FieldValue{}, false
		}
		f, _ := d.Float64()
		return model.NewNumber(f), true
	default:
		text := strings.TrimSpace(rest)
		// Stop a free-text value at a run of spaces so column two of a
		// form row does not bleed into the value.
		if idx := strings.Index(text, "   "); idx > 0 {
			text = strings.TrimSpace(text[:idx])
		}
		if text == "" {
			return model.FieldValue{}, false
		}
		return model.NewText(text), true
	}
}
