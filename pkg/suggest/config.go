package suggest

import (
	"time"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/evidence"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ranking"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/textmatch"
)

// Engine defaults. The bonus and threshold values carry no derivation; they are kept
// configurable rather than tuned.
const (
	DefaultOverrideThreshold = 0.35
	DefaultTimeout           = 5 * time.Second
	DefaultUsagePeriods      = 12
	DefaultEvidenceSample    = 5
)

// Config tunes the engine.
type Config struct {
	StaticBonus       float64               `mapstructure:"static_bonus"`
	SeedBonus         float64               `mapstructure:"seed_bonus"`
	StrongWeight      float64               `mapstructure:"strong_weight"`
	MaxTokens         int                   `mapstructure:"max_tokens"`
	OverrideThreshold float64               `mapstructure:"override_threshold"`
	RankLimit         int                   `mapstructure:"rank_limit"`
	Timeout           time.Duration         `mapstructure:"timeout"`
	UsagePeriods      int                   `mapstructure:"usage_periods"`
	EvidenceSample    int                   `mapstructure:"evidence_sample"`
	Limits            evidence.Limits       `mapstructure:"limits"`
	Capabilities      evidence.Capabilities `mapstructure:"capabilities"`
}

// DefaultConfig returns the engine defaults with every source enabled.
func DefaultConfig() Config {
	return Config{
		StaticBonus:       ranking.DefaultStaticBonus,
		SeedBonus:         ranking.DefaultSeedBonus,
		StrongWeight:      textmatch.DefaultStrongWeight,
		MaxTokens:         textmatch.DefaultMaxTokens,
		OverrideThreshold: DefaultOverrideThreshold,
		RankLimit:         ranking.MaxLimit,
		Timeout:           DefaultTimeout,
		UsagePeriods:      DefaultUsagePeriods,
		EvidenceSample:    DefaultEvidenceSample,
		Limits:            evidence.DefaultLimits(),
		Capabilities:      evidence.AllCapabilities(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StaticBonus < 0 {
		c.StaticBonus = d.StaticBonus
	}
	if c.SeedBonus <= 0 {
		c.SeedBonus = d.SeedBonus
	}
	if c.StrongWeight <= 0 {
		c.StrongWeight = d.StrongWeight
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.OverrideThreshold <= 0 || c.OverrideThreshold > 1 {
		c.OverrideThreshold = d.OverrideThreshold
	}
	if c.RankLimit <= 0 {
		c.RankLimit = d.RankLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.UsagePeriods <= 0 {
		c.UsagePeriods = d.UsagePeriods
	}
	if c.EvidenceSample <= 0 {
		c.EvidenceSample = d.EvidenceSample
	}
	return c
}
