package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind identifies the shape carried by a FieldValue.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindText
	KindNumber
	KindDecimal
	KindDate
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "none"
	}
}

// FieldValue is a tagged union over the shapes an extractor may produce.
// The zero value is the absent value (KindNone).
type FieldValue struct {
	kind ValueKind
	text string
	num  float64
	dec  decimal.Decimal
	date time.Time
	list []FieldValue
	mp   map[string]FieldValue
}

func NewText(s string) FieldValue        { return FieldValue{kind: KindText, text: s} }
func NewNumber(n float64) FieldValue     { return FieldValue{kind: KindNumber, num: n} }
func NewDecimal(d decimal.Decimal) FieldValue { return FieldValue{kind: KindDecimal, dec: d} }
func NewDate(t time.Time) FieldValue {
	return FieldValue{kind: KindDate, date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}
func NewList(items []FieldValue) FieldValue        { return FieldValue{kind: KindList, list: items} }
func NewMap(m map[string]FieldValue) FieldValue    { return FieldValue{kind: KindMap, mp: m} }

// Kind returns the shape tag of the value.
func (v FieldValue) Kind() ValueKind { return v.kind }

// IsZero reports whether the value is absent.
func (v FieldValue) IsZero() bool { return v.kind == KindNone }

func (v FieldValue) Text() (string, bool)   { return v.text, v.kind == KindText }
func (v FieldValue) Number() (float64, bool) { return v.num, v.kind == KindNumber }
func (v FieldValue) Decimal() (decimal.Decimal, bool) { return v.dec, v.kind == KindDecimal }
func (v FieldValue) Date() (time.Time, bool) { return v.date, v.kind == KindDate }
func (v FieldValue) List() ([]FieldValue, bool) { return v.list, v.kind == KindList }
func (v FieldValue) Map() (map[string]FieldValue, bool) { return v.mp, v.kind == KindMap }

// AsDecimal converts numeric shapes to a decimal. Text is accepted when it
// parses as a plain or currency-formatted number.
func (v FieldValue) AsDecimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindDecimal:
		return v.dec, true
	case KindNumber:
		return decimal.NewFromFloat(v.num), true
	case KindText:
		s := strings.TrimSpace(v.text)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		neg := false
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			neg = true
			s = strings.Trim(s, "()")
			s = strings.TrimPrefix(s, "$")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		if neg {
			d = d.Neg()
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// String renders the value for summaries and logs.
func (v FieldValue) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDecimal:
		return v.dec.String()
	case KindDate:
		return v.date.Format("2006-01-02")
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, len(v.mp))
		for k, item := range v.mp {
			parts = append(parts, fmt.Sprintf("%s=%s", k, item.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// MarshalJSON emits the natural JSON shape for each kind. Decimals are
// emitted as strings to avoid float truncation.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindDecimal:
		return json.Marshal(v.dec.String())
	case KindDate:
		return json.Marshal(v.date.Format("2006-01-02"))
	case KindList:
		return json.Marshal(v.list)
	case KindMap:
		return json.Marshal(v.mp)
	default:
		return []byte("null"), nil
	}
}
