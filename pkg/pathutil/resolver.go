// Package pathutil provides centralized path management for the ledger data directory.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PathResolver manages paths for the ledger database, YAML configuration and draft files.
type PathResolver struct {
	dataRoot    string
	dbPath      string
	chartFile   string
	mappingFile string
	draftsDir   string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataRoot is the root directory for ledger data (e.g., ~/accounting/ledger)
	DataRoot string
	// DatabasePath is the SQLite ledger database file
	DatabasePath string
	// ChartFile is the chart-of-accounts and keyword rules YAML
	ChartFile string
	// MappingFile is the freee account mapping YAML
	MappingFile string
	// DraftsDir holds rendered Beancount drafts
	DraftsDir string
}

// New creates a new PathResolver with the given configuration.
// Empty paths default to files under DataRoot:
// ledger.db, chart.yaml, account-mapping.yaml and drafts/.
func New(config Config) *PathResolver {
	root := config.DataRoot
	if root == "" {
		root = "."
	}

	return &PathResolver{
		dataRoot:    root,
		dbPath:      orJoin(config.DatabasePath, root, "ledger.db"),
		chartFile:   orJoin(config.ChartFile, root, "chart.yaml"),
		mappingFile: orJoin(config.MappingFile, root, "account-mapping.yaml"),
		draftsDir:   orJoin(config.DraftsDir, root, "drafts"),
	}
}

func orJoin(path, root, name string) string {
	if path != "" {
		return path
	}
	return filepath.Join(root, name)
}

// GetDataRoot returns the data root directory.
func (p *PathResolver) GetDataRoot() string {
	return p.dataRoot
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.dbPath
}

// GetChartFile returns the chart YAML path.
func (p *PathResolver) GetChartFile() string {
	return p.chartFile
}

// GetMappingFile returns the account mapping YAML path.
func (p *PathResolver) GetMappingFile() string {
	return p.mappingFile
}

// GetDraftFilePath returns the monthly draft file for a date.
// Example: drafts/2024/2024-01.beancount
func (p *PathResolver) GetDraftFilePath(date time.Time) (string, error) {
	if date.IsZero() {
		return "", fmt.Errorf("draft date is required")
	}
	yearMonth := date.Format("2006-01")
	return filepath.Join(p.draftsDir, date.Format("2006"), yearMonth+".beancount"), nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a regular file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}
