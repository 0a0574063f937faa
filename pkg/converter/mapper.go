// Package converter maps freee deals and journals onto ledger rows.
package converter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// AccountMapping maps a freee account item name to a chart code.
type AccountMapping struct {
	Freee string `yaml:"freee"`
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
}

// WalletableMapping maps a freee walletable to a cash/bank chart code.
// A zero ID matches every walletable of the type.
type WalletableMapping struct {
	Type string `yaml:"type"`
	ID   int64  `yaml:"id"`
	Code string `yaml:"code"`
}

// TaxCodeMapping represents a tax code mapping.
type TaxCodeMapping struct {
	Code        int     `yaml:"code"`
	Rate        float64 `yaml:"rate"`
	Description string  `yaml:"description"`
	Account     *string `yaml:"account"`
}

// AccountMappingConfig represents the complete account mapping configuration.
type AccountMappingConfig struct {
	Assets      []AccountMapping    `yaml:"assets"`
	Liabilities []AccountMapping    `yaml:"liabilities"`
	Equity      []AccountMapping    `yaml:"equity"`
	Income      []AccountMapping    `yaml:"income"`
	Expenses    []AccountMapping    `yaml:"expenses"`
	Walletables []WalletableMapping `yaml:"walletables"`
	TaxCodes    []TaxCodeMapping    `yaml:"tax_codes"`
}

// Mapper maps freee account names, walletables and tax codes to chart codes.
type Mapper struct {
	config      AccountMappingConfig
	freeeToCode map[string]string
	accounts    []ledger.Account
	taxCodeMap  map[int]TaxCodeMapping
}

// NewMapper creates a new Mapper from a YAML configuration file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config AccountMappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return NewMapperFromConfig(config), nil
}

// NewMapperFromConfig creates a Mapper from an in-memory configuration.
func NewMapperFromConfig(config AccountMappingConfig) *Mapper {
	m := &Mapper{
		config:      config,
		freeeToCode: make(map[string]string),
		taxCodeMap:  make(map[int]TaxCodeMapping),
	}

	groups := []struct {
		kind     string
		mappings []AccountMapping
	}{
		{"asset", config.Assets},
		{"liability", config.Liabilities},
		{"equity", config.Equity},
		{"income", config.Income},
		{"expense", config.Expenses},
	}
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, mapping := range g.mappings {
			m.freeeToCode[mapping.Freee] = mapping.Code
			if seen[mapping.Code] {
				continue
			}
			seen[mapping.Code] = true
			name := mapping.Name
			if name == "" {
				name = mapping.Freee
			}
			m.accounts = append(m.accounts, ledger.Account{Code: mapping.Code, Name: name, Kind: g.kind})
		}
	}

	for _, taxCode := range config.TaxCodes {
		m.taxCodeMap[taxCode.Code] = taxCode
	}

	return m
}

// GetCode returns the chart code for a freee account name, or "" when unmapped.
func (m *Mapper) GetCode(freeeName string) string {
	return m.freeeToCode[freeeName]
}

// HasMapping checks if a mapping exists for a freee account.
func (m *Mapper) HasMapping(freeeName string) bool {
	_, ok := m.freeeToCode[freeeName]
	return ok
}

// GetWalletableCode returns the cash/bank code of a walletable. An exact ID match beats a
// type-wide entry. It returns "" when nothing matches.
func (m *Mapper) GetWalletableCode(walletableType string, walletableID int64) string {
	fallback := ""
	for _, w := range m.config.Walletables {
		if w.Type != walletableType {
			continue
		}
		if w.ID == walletableID && w.ID != 0 {
			return w.Code
		}
		if w.ID == 0 && fallback == "" {
			fallback = w.Code
		}
	}
	return fallback
}

// GetTaxCode returns tax code mapping information.
func (m *Mapper) GetTaxCode(taxCode int) *TaxCodeMapping {
	if mapping, ok := m.taxCodeMap[taxCode]; ok {
		return &mapping
	}
	return nil
}

// GetTaxAccount returns the tax account configured for a tax code.
// Returns "" if exempt or not configured.
func (m *Mapper) GetTaxAccount(taxCode int) string {
	if mapping, ok := m.taxCodeMap[taxCode]; ok && mapping.Account != nil {
		return *mapping.Account
	}
	return ""
}

// Accounts returns the chart-of-accounts rows named by the mapping, in file order.
func (m *Mapper) Accounts() []ledger.Account {
	return append([]ledger.Account(nil), m.accounts...)
}
