// Package config provides configuration management for ledger-suggest.
// It loads .env files, environment variables and an optional YAML tuning file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/evidence"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/suggest"
)

// TuningFileEnv names the environment variable pointing at the YAML tuning file.
const TuningFileEnv = "LEDGER_CONFIG"

// Config represents the application configuration.
type Config struct {
	Freee  FreeeConfig    `mapstructure:"freee"`
	Ledger LedgerConfig   `mapstructure:"ledger"`
	Server ServerConfig   `mapstructure:"server"`
	Engine suggest.Config `mapstructure:"engine"`
	Debug  bool           `mapstructure:"debug"`
}

// FreeeConfig represents freee API configuration.
type FreeeConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	AccessToken  string `mapstructure:"access_token"`
	CompanyID    int64  `mapstructure:"company_id"`
	APIURL       string `mapstructure:"api_url"`
}

// LedgerConfig locates the ledger database and its YAML companions.
type LedgerConfig struct {
	Root        string `mapstructure:"root"`
	DBPath      string `mapstructure:"db_path"`
	ChartFile   string `mapstructure:"chart_file"`
	MappingFile string `mapstructure:"mapping_file"`
}

// ServerConfig represents HTTP API settings.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path. Keys map to env vars by
// upper-casing and replacing dots with underscores (engine.override_threshold is
// ENGINE_OVERRIDE_THRESHOLD). LEDGER_CONFIG names an optional YAML file read beneath
// the environment.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(TuningFileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read tuning file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("freee.client_id", "")
	v.SetDefault("freee.client_secret", "")
	v.SetDefault("freee.redirect_uri", "")
	v.SetDefault("freee.access_token", "")
	v.SetDefault("freee.company_id", 0)
	v.SetDefault("freee.api_url", "http://localhost:8080")

	v.SetDefault("ledger.root", "./ledger")
	v.SetDefault("ledger.db_path", "")
	v.SetDefault("ledger.chart_file", "")
	v.SetDefault("ledger.mapping_file", "")

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.request_timeout", "15s")

	v.SetDefault("debug", false)

	e := suggest.DefaultConfig()
	v.SetDefault("engine.static_bonus", e.StaticBonus)
	v.SetDefault("engine.seed_bonus", e.SeedBonus)
	v.SetDefault("engine.strong_weight", e.StrongWeight)
	v.SetDefault("engine.max_tokens", e.MaxTokens)
	v.SetDefault("engine.override_threshold", e.OverrideThreshold)
	v.SetDefault("engine.rank_limit", e.RankLimit)
	v.SetDefault("engine.timeout", e.Timeout.String())
	v.SetDefault("engine.usage_periods", e.UsagePeriods)
	v.SetDefault("engine.evidence_sample", e.EvidenceSample)

	l := evidence.DefaultLimits()
	v.SetDefault("engine.limits.overlap", l.Overlap)
	v.SetDefault("engine.limits.linked_invoices", l.LinkedInvoices)
	v.SetDefault("engine.limits.text_with_counterparty", l.TextWithCounterparty)
	v.SetDefault("engine.limits.text", l.Text)
	v.SetDefault("engine.limits.terms", l.Terms)
	v.SetDefault("engine.limits.journal", l.Journal)
	v.SetDefault("engine.limits.journal_years", l.JournalYears)
	v.SetDefault("engine.limits.min_text_coverage", l.MinTextCoverage)
	v.SetDefault("engine.limits.min_text_support", l.MinTextSupport)

	c := evidence.AllCapabilities()
	v.SetDefault("engine.capabilities.source_documents", c.SourceDocuments)
	v.SetDefault("engine.capabilities.linked_invoices", c.LinkedInvoices)
	v.SetDefault("engine.capabilities.journal", c.Journal)
	v.SetDefault("engine.capabilities.usage_weights", c.UsageWeights)
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "freee":
			switch path[1] {
			case "clientId":
				value = c.Freee.ClientID
			case "clientSecret":
				value = c.Freee.ClientSecret
			case "redirectUri":
				value = c.Freee.RedirectURI
			case "accessToken":
				value = c.Freee.AccessToken
			case "companyId":
				if c.Freee.CompanyID != 0 {
					value = "set"
				}
			case "apiUrl":
				value = c.Freee.APIURL
			}
		case "ledger":
			switch path[1] {
			case "root":
				value = c.Ledger.Root
			case "dbPath":
				value = c.Ledger.DBPath
			case "chartFile":
				value = c.Ledger.ChartFile
			case "mappingFile":
				value = c.Ledger.MappingFile
			}
		case "server":
			if path[1] == "addr" {
				value = c.Server.Addr
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}
