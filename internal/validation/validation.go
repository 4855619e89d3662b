// Package validation checks raw request fields against a fixed schema of
// field name → parser + range rules.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindDecimal Kind = iota
	KindInt
	KindString
)

// Error is returned for malformed or out-of-range input; Field names the offending field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Rule describes one field. Min/Max bound decimals and ints; for strings they bound length.
type Rule struct {
	Name      string
	Kind      Kind
	Required  bool
	Min       *decimal.Decimal
	Max       *decimal.Decimal
	MinExcl   bool
	MaxPlaces int32
	Default   string
}

type Schema []Rule

// Values holds parsed fields keyed by rule name.
type Values struct {
	decimals map[string]decimal.Decimal
	ints     map[string]int64
	strings  map[string]string
}

func (v Values) Decimal(name string) decimal.Decimal { return v.decimals[name] }
func (v Values) Int(name string) int64 { return v.ints[name] }
func (v Values) String(name string) string { return v.strings[name] }

func (v Values) Has(name string) bool {
	if _, ok := v.decimals[name]; ok {
		return true
	}
	if _, ok := v.ints[name]; ok {
		return true
	}
	_, ok := v.strings[name]
	return ok
}

// Validate parses every rule in order and stops at the first failing field.
func (s Schema) Validate(input map[string]string) (Values, error) {
	out := Values{
		decimals: map[string]decimal.Decimal{},
		ints:     map[string]int64{},
		strings:  map[string]string{},
	}
	for _, rule := range s {
		raw := strings.TrimSpace(input[rule.Name])
		if raw == "" {
			raw = rule.Default
		}
		if raw == "" {
			if rule.Required {
				return Values{}, &Error{Field: rule.Name, Reason: "required"}
			}
			continue
		}
		switch rule.Kind {
		case KindDecimal:
			d, err := parseDecimal(rule, raw)
			if err != nil {
				return Values{}, err
			}
			out.decimals[rule.Name] = d
		case KindInt:
			n, err := parseInt(rule, raw)
			if err != nil {
				return Values{}, err
			}
			out.ints[rule.Name] = n
		case KindString:
			if err := checkRange(rule, decimal.NewFromInt(int64(len([]rune(raw))))); err != nil {
				return Values{}, &Error{Field: rule.Name, Reason: "length " + err.Error()}
			}
			out.strings[rule.Name] = raw
		}
	}
	return out, nil
}

func parseDecimal(rule Rule, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &Error{Field: rule.Name, Reason: "not a number"}
	}
	if rule.MaxPlaces > 0 && d.Exponent() < -rule.MaxPlaces {
		// Trailing zeros beyond the allowed precision are harmless ("10.500").
		if !d.Equal(d.Truncate(rule.MaxPlaces)) {
			return decimal.Zero, &Error{Field: rule.Name, Reason: fmt.Sprintf("at most %d decimal places", rule.MaxPlaces)}
		}
		d = d.Truncate(rule.MaxPlaces)
	}
	if err := checkRange(rule, d); err != nil {
		return decimal.Zero, &Error{Field: rule.Name, Reason: err.Error()}
	}
	return d, nil
}

func parseInt(rule Rule, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &Error{Field: rule.Name, Reason: "not an integer"}
	}
	if err := checkRange(rule, decimal.NewFromInt(n)); err != nil {
		return 0, &Error{Field: rule.Name, Reason: err.Error()}
	}
	return n, nil
}

func checkRange(rule Rule, v decimal.Decimal) error {
	if rule.Min != nil {
		if rule.MinExcl && v.LessThanOrEqual(*rule.Min) {
			return fmt.Errorf("must be greater than %s", rule.Min.String())
		}
		if v.LessThan(*rule.Min) {
			return fmt.Errorf("must be at least %s", rule.Min.String())
		}
	}
	if rule.Max != nil && v.GreaterThan(*rule.Max) {
		return fmt.Errorf("must be at most %s", rule.Max.String())
	}
	return nil
}

func Dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
