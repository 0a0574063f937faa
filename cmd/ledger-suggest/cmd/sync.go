package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/converter"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/db"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/freee"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

const metadataLastSync = "last_sync"

var (
	dateFrom string
	dateTo   string
	dryRun   bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import freee transactions into the ledger database",
	Long: `Import transactions from freee Accounting API into the ledger database
the suggestion engine learns from.

This command:
1. Fetches deals and journals from freee API
2. Filters out already imported items
3. Converts deals to ledger rows (and invoices) and journals to journal lines
4. Stores them and refreshes the monthly account usage
5. Records import history in SQLite

Example:
  ledger-suggest sync --from 2024-01-01 --to 2024-01-31
  ledger-suggest sync --from 2024-01-01 --to 2024-01-31 --dry-run`,
	Run: runSync,
}

func init() {
	// Flags
	syncCmd.Flags().StringVar(&dateFrom, "from", "", "Start date (YYYY-MM-DD) (required)")
	syncCmd.Flags().StringVar(&dateTo, "to", "", "End date (YYYY-MM-DD) (required)")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no database writes)")

	syncCmd.MarkFlagRequired("from")
	syncCmd.MarkFlagRequired("to")
}

// importBatch is the converted result of one sync run.
type importBatch struct {
	deals    []dealImport
	journals []journalImport
}

type dealImport struct {
	deal   freee.Deal
	result converter.DealResult
}

type journalImport struct {
	journal freee.Journal
	lines   []ledger.JournalLine
}

// periods returns the sorted months (YYYY-MM) touched by the batch's journal lines.
func (b importBatch) periods() []string {
	seen := make(map[string]bool)
	for _, j := range b.journals {
		for _, l := range j.lines {
			seen[l.Date.Format("2006-01")] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func runSync(cmd *cobra.Command, args []string) {
	slog.Info("Starting sync", "from", dateFrom, "to", dateTo, "dry_run", dryRun)

	for _, d := range []string{dateFrom, dateTo} {
		if _, err := time.Parse(ledger.DateLayout, d); err != nil {
			exitOnError(fmt.Errorf("date %q must be YYYY-MM-DD", d), "invalid arguments")
		}
	}

	cfg, pathResolver := loadConfig(
		[]string{"freee", "apiUrl"},
		[]string{"freee", "accessToken"},
		[]string{"freee", "companyId"},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn := openDatabase(pathResolver)
	defer conn.Close()

	importHistory := db.NewImportHistory(conn)

	// Initialize freee API client
	freeeClient := freee.NewClient(freee.ClientConfig{
		APIURL:      cfg.Freee.APIURL,
		AccessToken: cfg.Freee.AccessToken,
		CompanyID:   cfg.Freee.CompanyID,
		Timeout:     30 * time.Second,
	})

	// Initialize account mapper and converter
	mappingFilePath := pathResolver.GetMappingFile()
	mapper, err := converter.NewMapper(mappingFilePath)
	exitOnError(err, "failed to load account mapping")

	chart, err := loadChart(pathResolver)
	exitOnError(err, "failed to load chart")

	cvtr := converter.NewConverter(mapper, chart)

	items, err := freeeClient.ListAccountItems(ctx)
	exitOnError(err, "failed to fetch account items")
	for _, item := range items {
		if !mapper.HasMapping(item.Name) {
			slog.Debug("freee account item has no mapping", "name", item.Name, "category", item.AccountCategory)
		}
	}

	// Fetch deals and journals from freee
	slog.Info("Fetching deals from freee", "from", dateFrom, "to", dateTo)
	allDeals, err := freeeClient.FetchAllDeals(ctx, dateFrom, dateTo)
	exitOnError(err, "failed to fetch deals")
	slog.Info("Fetched deals", "count", len(allDeals))

	slog.Info("Fetching journals from freee", "from", dateFrom, "to", dateTo)
	allJournals, err := freeeClient.FetchAllJournals(ctx, dateFrom, dateTo)
	exitOnError(err, "failed to fetch journals")
	slog.Info("Fetched journals", "count", len(allJournals))

	// Filter out already imported items
	importedDeals, err := importHistory.ImportedIDs(ctx, db.ImportTypeDeal)
	exitOnError(err, "failed to get imported deal IDs")
	importedJournals, err := importHistory.ImportedIDs(ctx, db.ImportTypeJournal)
	exitOnError(err, "failed to get imported journal IDs")

	batch := convertAll(cvtr, allDeals, allJournals, importedDeals, importedJournals)

	slog.Info("New items to import",
		"new_deals", len(batch.deals),
		"new_journals", len(batch.journals),
		"skipped_deals", len(allDeals)-len(batch.deals),
		"skipped_journals", len(allJournals)-len(batch.journals),
	)
	if unmapped := cvtr.Unmapped(); len(unmapped) > 0 {
		slog.Warn("Accounts without mapping fell back to chart defaults", "accounts", unmapped)
	}

	if len(batch.deals) == 0 && len(batch.journals) == 0 {
		fmt.Println("No new items to import")
		return
	}

	if dryRun {
		printBatch(batch)
		return
	}

	exitOnError(storeBatch(ctx, conn, mapper, batch), "failed to store imported items")

	// Display final statistics
	stats, err := importHistory.GetStats(ctx)
	if err == nil {
		fmt.Println("\n=== Import Statistics ===")
		fmt.Printf("Total imported deals:    %d\n", stats.TotalDeals)
		fmt.Printf("Total imported journals: %d\n", stats.TotalJournals)
		fmt.Printf("Ledger entries:          %d\n", stats.LedgerEntries)
		fmt.Println()
	}

	slog.Info("Sync completed",
		"new_deals", len(batch.deals),
		"new_journals", len(batch.journals),
	)
}

// convertAll converts every item not yet imported. Items that fail to convert are logged
// and skipped.
func convertAll(cvtr *converter.Converter, deals []freee.Deal, journals []freee.Journal, importedDeals, importedJournals map[int64]bool) importBatch {
	var batch importBatch
	for _, deal := range deals {
		if importedDeals[deal.ID] {
			continue
		}
		result, err := cvtr.ConvertDeal(deal)
		if err != nil {
			slog.Error("Failed to convert deal", "deal_id", deal.ID, "error", err)
			continue
		}
		batch.deals = append(batch.deals, dealImport{deal: deal, result: result})
	}

	for _, journal := range journals {
		if importedJournals[journal.ID] {
			continue
		}
		lines, err := cvtr.ConvertJournal(journal)
		if err != nil {
			slog.Error("Failed to convert journal", "journal_id", journal.ID, "error", err)
			continue
		}
		batch.journals = append(batch.journals, journalImport{journal: journal, lines: lines})
	}
	return batch
}

// storeBatch writes the batch to the ledger, refreshes usage for the touched months and
// records the import history under one batch id. Everything is written in one transaction,
// so a failed run leaves nothing behind and the same items are picked up again next time.
func storeBatch(ctx context.Context, conn *db.Connection, mapper *converter.Mapper, batch importBatch) error {
	batchID := uuid.NewString()

	return conn.Transaction(ctx, func(tx *sql.Tx) error {
		repo := db.NewLedgerRepository(conn).WithTx(tx)
		history := db.NewImportHistory(conn).WithTx(tx)

		if err := repo.SaveAccounts(ctx, mapper.Accounts()); err != nil {
			return err
		}

		entries := make([]ledger.HistoricalEntry, 0, len(batch.deals))
		for _, d := range batch.deals {
			entries = append(entries, d.result.Entry)
		}
		if err := repo.SaveEntries(ctx, entries); err != nil {
			return err
		}

		for _, d := range batch.deals {
			if inv := d.result.Invoice; inv != nil {
				if err := repo.SaveInvoice(ctx, *inv); err != nil {
					return err
				}
				if inv.PONumber != "" && len(inv.ItemKeys) > 0 {
					if err := repo.AddPOItems(ctx, inv.PONumber, inv.ItemKeys); err != nil {
						return err
					}
				}
			}
			if err := history.RecordImport(ctx, db.ImportRecord{
				ImportType: db.ImportTypeDeal,
				FreeeID:    d.deal.ID,
				IssueDate:  d.deal.IssueDate,
				Amount:     d.result.Amount,
				Voucher:    d.result.Entry.Voucher,
				BatchID:    batchID,
			}); err != nil {
				return err
			}
		}

		var lines []ledger.JournalLine
		for _, j := range batch.journals {
			lines = append(lines, j.lines...)
		}
		if err := repo.ReplaceJournal(ctx, lines); err != nil {
			return err
		}

		for _, j := range batch.journals {
			var amount decimal.Decimal
			voucher := ""
			for _, l := range j.lines {
				amount = amount.Add(l.Debit)
				voucher = l.JournalID
			}
			if err := history.RecordImport(ctx, db.ImportRecord{
				ImportType: db.ImportTypeJournal,
				FreeeID:    j.journal.ID,
				IssueDate:  j.journal.IssueDate,
				Amount:     amount,
				Voucher:    voucher,
				BatchID:    batchID,
			}); err != nil {
				return err
			}
		}

		for _, period := range batch.periods() {
			monthLines, err := repo.JournalLines(ctx, period)
			if err != nil {
				return err
			}
			if err := repo.SetUsage(ctx, period, converter.Usage(monthLines)[period]); err != nil {
				return err
			}
			slog.Debug("Refreshed account usage", "period", period, "lines", len(monthLines))
		}

		return history.SetMetadata(ctx, metadataLastSync, time.Now().UTC().Format(time.RFC3339))
	})
}

func printBatch(batch importBatch) {
	fmt.Println("[DRY RUN] Would import:")
	for _, d := range batch.deals {
		e := d.result.Entry
		fmt.Printf("  %s %s %-10s %s\n", e.Date.Format(ledger.DateLayout), e.Direction, e.Voucher, e.Description)
		for _, s := range e.Slots {
			if !s.Empty() {
				fmt.Printf("      %-8s %-6s %s\n", s.Account, s.Type, s.Amount.StringFixed(2))
			}
		}
	}
	for _, j := range batch.journals {
		fmt.Printf("  %s journal %d (%d lines)\n", j.journal.IssueDate, j.journal.ID, len(j.lines))
	}
}
