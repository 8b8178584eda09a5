// Package filter evaluates the predicate groups that map raw usage rows to
// billable services.
package filter

import (
	"errors"
	"fmt"
	"strings"

	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
)

var (
	ErrUnknownField      = errors.New("unknown_filter_field")
	ErrUnknownComparator = errors.New("unknown_filter_comparator")
	ErrInvalidFilterRule = errors.New("invalid_filter_rule")
)

type Comparator string

const (
	Gt      Comparator = "gt"
	Gte     Comparator = "gte"
	Lt      Comparator = "lt"
	Lte     Comparator = "lte"
	Eq      Comparator = "eq"
	NotEq   Comparator = "not_eq"
	Incl    Comparator = "incl"
	NotIncl Comparator = "not_incl"
)

func ParseComparator(name string) (Comparator, error) {
	c := Comparator(strings.ToLower(strings.TrimSpace(name)))
	switch c {
	case Gt, Gte, Lt, Lte, Eq, NotEq, Incl, NotIncl:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownComparator, name)
}

// RuleConfig is one stored rule, keyed by field and comparator.
type RuleConfig struct {
	Field      string
	Comparator string
	Operand    string
}

// ParseKey splits the stored "field__func" key form.
func ParseKey(key, operand string) RuleConfig {
	field, comparator, _ := strings.Cut(key, "__")
	return RuleConfig{Field: field, Comparator: comparator, Operand: operand}
}

// Rule compares one event attribute against an operand.
type Rule struct {
	field      Field
	comparator Comparator
	operands   []Value
}

func NewRule(cfg RuleConfig) (Rule, error) {
	field, err := ParseField(cfg.Field)
	if err != nil {
		return Rule{}, err
	}
	comparator, err := ParseComparator(cfg.Comparator)
	if err != nil {
		return Rule{}, err
	}

	var operands []Value
	switch comparator {
	case Incl, NotIncl:
		for _, part := range strings.Split(cfg.Operand, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			operands = append(operands, TextValue(part))
		}
		if len(operands) == 0 {
			return Rule{}, fmt.Errorf("%w: empty list for %s__%s", ErrInvalidFilterRule, field, comparator)
		}
	default:
		operands = []Value{TextValue(cfg.Operand)}
	}

	return Rule{field: field, comparator: comparator, operands: operands}, nil
}

func (r Rule) Field() Field { return r.field }

// Evaluate is false when the event lacks the attribute.
func (r Rule) Evaluate(ev *usagedomain.UsageEvent) bool {
	got, ok := r.field.read(ev)
	if !ok {
		return false
	}

	switch r.comparator {
	case Gt:
		return got.compare(r.operands[0]) > 0
	case Gte:
		return got.compare(r.operands[0]) >= 0
	case Lt:
		return got.compare(r.operands[0]) < 0
	case Lte:
		return got.compare(r.operands[0]) <= 0
	case Eq:
		return got.equal(r.operands[0])
	case NotEq:
		return !got.equal(r.operands[0])
	case Incl:
		return r.contains(got)
	case NotIncl:
		return !r.contains(got)
	}
	return false
}

func (r Rule) contains(v Value) bool {
	for _, op := range r.operands {
		if v.equal(op) {
			return true
		}
	}
	return false
}

func (r Rule) String() string {
	parts := make([]string, 0, len(r.operands))
	for _, op := range r.operands {
		parts = append(parts, op.String())
	}
	return fmt.Sprintf("%s__%s=%s", r.field, r.comparator, strings.Join(parts, ","))
}
