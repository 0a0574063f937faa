package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/suggest"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(TuningFileEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Freee.APIURL)
	assert.Equal(t, "./ledger", cfg.Ledger.Root)
	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, suggest.DefaultConfig(), cfg.Engine)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(TuningFileEnv, "")
	t.Setenv("FREEE_COMPANY_ID", "12345")
	t.Setenv("FREEE_ACCESS_TOKEN", "token")
	t.Setenv("LEDGER_DB_PATH", "/tmp/ledger.db")
	t.Setenv("DEBUG", "true")
	t.Setenv("ENGINE_OVERRIDE_THRESHOLD", "0.5")
	t.Setenv("ENGINE_TIMEOUT", "250ms")
	t.Setenv("ENGINE_CAPABILITIES_JOURNAL", "false")
	t.Setenv("ENGINE_LIMITS_TEXT", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(12345), cfg.Freee.CompanyID)
	assert.Equal(t, "token", cfg.Freee.AccessToken)
	assert.Equal(t, "/tmp/ledger.db", cfg.Ledger.DBPath)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 0.5, cfg.Engine.OverrideThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.Timeout)
	assert.False(t, cfg.Engine.Capabilities.Journal)
	assert.True(t, cfg.Engine.Capabilities.LinkedInvoices)
	assert.Equal(t, 50, cfg.Engine.Limits.Text)
}

func TestLoadTuningFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	content := `
engine:
  seed_bonus: 80
  limits:
    journal_years: 5
    min_text_support: 3
server:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv(TuningFileEnv, path)
	t.Setenv("SERVER_ADDR", ":9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Engine.SeedBonus)
	assert.Equal(t, 5, cfg.Engine.Limits.JournalYears)
	assert.Equal(t, 3, cfg.Engine.Limits.MinTextSupport)
	assert.Equal(t, 0.3, cfg.Engine.Limits.MinTextCoverage)
	assert.Equal(t, ":9100", cfg.Server.Addr, "environment wins over the tuning file")
}

func TestLoadMissingFiles(t *testing.T) {
	t.Setenv(TuningFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	t.Setenv(TuningFileEnv, "")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv(TuningFileEnv, "")
	// Registered so the variable is restored after godotenv sets it.
	t.Setenv("LEDGER_CHART_FILE", "")
	os.Unsetenv("LEDGER_CHART_FILE")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGER_CHART_FILE=/etc/chart.yaml\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/chart.yaml", cfg.Ledger.ChartFile)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Freee:  FreeeConfig{AccessToken: "token"},
		Ledger: LedgerConfig{Root: "./ledger"},
	}

	require.NoError(t, cfg.Validate([]string{"freee", "accessToken"}, []string{"ledger", "root"}))

	err := cfg.Validate(
		[]string{"freee", "accessToken"},
		[]string{"freee", "companyId"},
		[]string{"ledger", "dbPath"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "freee.companyId")
	assert.Contains(t, err.Error(), "ledger.dbPath")
	assert.NotContains(t, err.Error(), "accessToken")
}
