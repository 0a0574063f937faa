package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/db"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display ledger and import statistics",
	Long: `Display statistics about the ledger database.

Shows:
- Imported freee deals and journals
- Ledger rows, journal lines and invoices the engine learns from
- Schema version and last import timestamp

Example:
  ledger-suggest stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	_, pathResolver := loadConfig()
	conn := openDatabase(pathResolver)
	defer conn.Close()

	ctx := context.Background()
	stats, err := db.NewImportHistory(conn).GetStats(ctx)
	exitOnError(err, "failed to get statistics")

	version, dirty, err := db.SchemaVersion(pathResolver.GetDatabasePath())
	exitOnError(err, "failed to read schema version")

	printStats(os.Stdout, stats, version, dirty)

	slog.Info("Statistics displayed successfully")
}

func printStats(w io.Writer, stats *db.Stats, version uint, dirty bool) {
	fmt.Fprintln(w, "\n=== Ledger Statistics ===")
	fmt.Fprintf(w, "Imported deals:        %d\n", stats.TotalDeals)
	fmt.Fprintf(w, "Imported journals:     %d\n", stats.TotalJournals)
	fmt.Fprintf(w, "Ledger entries:        %d\n", stats.LedgerEntries)
	fmt.Fprintf(w, "Journal lines:         %d\n", stats.JournalLines)
	fmt.Fprintf(w, "Invoices:              %d (%d posted)\n", stats.Invoices, stats.PostedInvoices)
	fmt.Fprintf(w, "Accounts:              %d\n", stats.Accounts)

	schema := fmt.Sprintf("%d", version)
	if dirty {
		schema += " (dirty)"
	}
	fmt.Fprintf(w, "Schema version:        %s\n", schema)

	if stats.LastImport.Valid {
		fmt.Fprintf(w, "Last import:           %s\n", stats.LastImport.String)
	} else {
		fmt.Fprintf(w, "Last import:           (never)\n")
	}

	fmt.Fprintln(w)
}
