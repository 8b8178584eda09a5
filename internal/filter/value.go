package filter

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Value is a comparable attribute or operand. Text that looks like an
// integer or a single-dot decimal also carries its numeric form.
type Value struct {
	text    string
	num     decimal.Decimal
	numeric bool
}

func TextValue(s string) Value {
	s = strings.TrimSpace(s)
	v := Value{text: s}
	if numericPattern.MatchString(s) {
		if d, err := decimal.NewFromString(s); err == nil {
			v.num = d
			v.numeric = true
		}
	}
	return v
}

func NumberValue(d decimal.Decimal) Value {
	return Value{text: d.String(), num: d, numeric: true}
}

func BoolValue(b bool) Value {
	if b {
		return NumberValue(decimal.NewFromInt(1))
	}
	return NumberValue(decimal.Zero)
}

func (v Value) String() string { return v.text }

// compare orders v against o numerically when both are numbers, otherwise by text.
func (v Value) compare(o Value) int {
	if v.numeric && o.numeric {
		return v.num.Cmp(o.num)
	}
	return strings.Compare(v.text, o.text)
}

func (v Value) equal(o Value) bool {
	return v.compare(o) == 0
}
