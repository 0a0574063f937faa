// Package rules holds the chart-of-accounts defaults and the keyword rules used as a cheap
// first opinion before historical mining.
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// Defaults are the accounts used when no evidence exists at all.
type Defaults struct {
	Cash     string `yaml:"cash"`
	Expense  string `yaml:"expense"`
	Revenue  string `yaml:"revenue"`
	Transfer string `yaml:"transfer"`
	TaxIn    string `yaml:"tax_in"`  // output tax on sales
	TaxOut   string `yaml:"tax_out"` // input tax on purchases
}

// Series are the default voucher series per direction.
type Series struct {
	In       string `yaml:"in"`
	Out      string `yaml:"out"`
	Transfer string `yaml:"transfer"`
}

// Chart is the chart-of-accounts configuration.
type Chart struct {
	Prefixes ledger.AccountRanges `yaml:"prefixes"`
	Defaults Defaults             `yaml:"defaults"`
	Series   Series               `yaml:"series"`
	Rules    []Rule               `yaml:"rules"`
}

// DefaultChart is used when no chart file is configured.
func DefaultChart() *Chart {
	return &Chart{
		Prefixes: ledger.AccountRanges{
			Cash:    []string{"11"},
			Revenue: []string{"4"},
			Expense: []string{"5", "6"},
		},
		Defaults: Defaults{
			Cash:     "1101",
			Expense:  "6199",
			Revenue:  "4101",
			Transfer: "1102",
			TaxIn:    "2130",
			TaxOut:   "1170",
		},
		Series: Series{In: "BKM", Out: "BKK", Transfer: "JU"},
	}
}

// Load reads a chart from a YAML file. Missing sections keep the DefaultChart values.
func Load(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart file: %w", err)
	}

	chart := DefaultChart()
	if err := yaml.Unmarshal(data, chart); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := chart.Validate(); err != nil {
		return nil, err
	}
	return chart, nil
}

// Validate checks that every default the engine may fall back to is set.
func (c *Chart) Validate() error {
	required := []struct{ key, value string }{
		{"defaults.cash", c.Defaults.Cash},
		{"defaults.expense", c.Defaults.Expense},
		{"defaults.revenue", c.Defaults.Revenue},
		{"defaults.transfer", c.Defaults.Transfer},
		{"defaults.tax_in", c.Defaults.TaxIn},
		{"defaults.tax_out", c.Defaults.TaxOut},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("chart: %s is required", r.key)
		}
	}
	for i, r := range c.Rules {
		if strings.TrimSpace(r.Account) == "" {
			return fmt.Errorf("chart: rules[%d].account is required", i)
		}
		if len(r.Keywords) == 0 && r.Pattern == "" {
			return fmt.Errorf("chart: rules[%d] needs keywords or a pattern", i)
		}
	}
	return nil
}

// DefaultAccount is the allocation account of last resort for a direction.
func (c *Chart) DefaultAccount(d ledger.Direction) string {
	switch d {
	case ledger.DirectionIn:
		return c.Defaults.Revenue
	case ledger.DirectionTransfer:
		return c.Defaults.Transfer
	default:
		return c.Defaults.Expense
	}
}

// DefaultCashAccount is the cash account of last resort.
func (c *Chart) DefaultCashAccount() string {
	return c.Defaults.Cash
}

// DefaultTaxAccount is the tax account of last resort for a direction.
func (c *Chart) DefaultTaxAccount(d ledger.Direction) string {
	if d == ledger.DirectionIn {
		return c.Defaults.TaxIn
	}
	return c.Defaults.TaxOut
}

// DefaultSeries is the voucher series of last resort for a direction.
func (c *Chart) DefaultSeries(d ledger.Direction) string {
	switch d {
	case ledger.DirectionIn:
		return c.Series.In
	case ledger.DirectionTransfer:
		return c.Series.Transfer
	default:
		return c.Series.Out
	}
}

// IsCash reports whether code is in a cash/bank range.
func (c *Chart) IsCash(code string) bool {
	return c.Prefixes.IsCash(code)
}
