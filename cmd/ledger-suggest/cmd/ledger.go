package cmd

import (
	"fmt"
	"log/slog"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/config"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/db"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/pathutil"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/rules"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/suggest"
)

// loadConfig loads the configuration and checks the ledger location plus any extra
// required paths.
func loadConfig(required ...[]string) (*config.Config, *pathutil.PathResolver) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	required = append([][]string{{"ledger", "root"}}, required...)
	exitOnError(cfg.Validate(required...), "invalid configuration")

	return cfg, pathutil.New(pathutil.Config{
		DataRoot:     cfg.Ledger.Root,
		DatabasePath: cfg.Ledger.DBPath,
		ChartFile:    cfg.Ledger.ChartFile,
		MappingFile:  cfg.Ledger.MappingFile,
	})
}

// openDatabase opens (and migrates) the ledger database.
func openDatabase(pathResolver *pathutil.PathResolver) *db.Connection {
	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	return conn
}

// loadChart reads the chart file, or returns the built-in chart when none exists.
func loadChart(pathResolver *pathutil.PathResolver) (*rules.Chart, error) {
	path := pathResolver.GetChartFile()
	if !pathResolver.FileExists(path) {
		slog.Debug("No chart file, using built-in chart", "path", path)
		return rules.DefaultChart(), nil
	}

	chart, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", path, err)
	}
	slog.Debug("Loaded chart", "path", path, "rules", len(chart.Rules))
	return chart, nil
}

// newEngine wires the suggestion engine to the ledger database.
func newEngine(cfg *config.Config, pathResolver *pathutil.PathResolver, conn *db.Connection) *suggest.Engine {
	chart, err := loadChart(pathResolver)
	exitOnError(err, "failed to load chart")

	heuristic, err := rules.NewMapper(chart.Rules)
	exitOnError(err, "failed to compile keyword rules")

	opts := []suggest.Option{suggest.WithLogger(slog.Default())}
	if heuristic.Len() > 0 {
		opts = append(opts, suggest.WithHeuristic(heuristic))
	}

	return suggest.New(db.NewLedgerRepository(conn), chart, cfg.Engine, opts...)
}
