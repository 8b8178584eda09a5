package filter

import (
	"fmt"

	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
)

// Group is a conjunction of rules.
type Group struct {
	rules []Rule
}

// NewGroup builds a group from stored rules. In strict mode the first bad
// rule fails the whole group; otherwise bad rules are dropped and counted.
func NewGroup(cfgs []RuleConfig, strict bool) (Group, int, error) {
	rules := make([]Rule, 0, len(cfgs))
	dropped := 0
	for _, cfg := range cfgs {
		rule, err := NewRule(cfg)
		if err != nil {
			if strict {
				return Group{}, 0, fmt.Errorf("%w: %w", ErrInvalidFilterRule, err)
			}
			dropped++
			continue
		}
		rules = append(rules, rule)
	}
	return Group{rules: rules}, dropped, nil
}

func (g Group) Len() int { return len(g.rules) }

// ApplyAll is true iff every rule matches, so a group without rules
// matches every event.
func (g Group) ApplyAll(ev *usagedomain.UsageEvent) bool {
	for _, rule := range g.rules {
		if !rule.Evaluate(ev) {
			return false
		}
	}
	return true
}
