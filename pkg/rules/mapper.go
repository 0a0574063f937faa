package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// DefaultRuleConfidence is used for rules that do not set one.
const DefaultRuleConfidence = 0.5

// Rule maps a description to an account by keyword or pattern.
type Rule struct {
	Keywords   []string         `yaml:"keywords"` // case-insensitive substring match
	Pattern    string           `yaml:"pattern,omitempty"`
	Account    string           `yaml:"account"`
	Direction  ledger.Direction `yaml:"direction,omitempty"` // empty matches every direction
	Confidence float64          `yaml:"confidence,omitempty"`
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp
}

// Mapper applies keyword rules in order; the first matching rule wins.
type Mapper struct {
	rules []compiledRule
}

// NewMapper compiles the rules.
func NewMapper(rules []Rule) (*Mapper, error) {
	m := &Mapper{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		cr := compiledRule{Rule: r}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("failed to compile rules[%d] pattern: %w", i, err)
			}
			cr.pattern = re
		}
		if cr.Confidence <= 0 {
			cr.Confidence = DefaultRuleConfidence
		}
		m.rules = append(m.rules, cr)
	}
	return m, nil
}

// Len returns the number of rules.
func (m *Mapper) Len() int {
	return len(m.rules)
}

// Match returns the account and confidence of the first rule matching the counterparty,
// then of the first rule matching the description.
func (m *Mapper) Match(d ledger.Direction, description, counterparty string) (string, float64, bool) {
	if counterparty = strings.TrimSpace(counterparty); counterparty != "" {
		if r, ok := m.find(d, counterparty); ok {
			return r.Account, r.Confidence, true
		}
	}
	if r, ok := m.find(d, description); ok {
		return r.Account, r.Confidence, true
	}
	return "", 0, false
}

func (m *Mapper) find(d ledger.Direction, text string) (compiledRule, bool) {
	if strings.TrimSpace(text) == "" {
		return compiledRule{}, false
	}
	lower := strings.ToLower(text)
	for _, r := range m.rules {
		if r.Direction != "" && r.Direction != d {
			continue
		}
		if r.pattern != nil && r.pattern.MatchString(text) {
			return r, true
		}
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return r, true
			}
		}
	}
	return compiledRule{}, false
}
