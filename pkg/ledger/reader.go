package ledger

import (
	"context"
	"time"
)

// EntrySearch selects historical ledger rows by description text.
type EntrySearch struct {
	Direction    Direction
	Terms        []string // OR-chained substring predicates over the description
	Counterparty string   // optional substring restriction
	Limit        int
}

// JournalTotalsQuery aggregates journal amounts per account.
type JournalTotalsQuery struct {
	Side            EntryType // Debit sums debit amounts, Credit sums credit amounts
	Since           time.Time
	Remark          string   // optional remark substring filter
	ExcludePrefixes []string // account code prefixes to leave out (cash/bank ranges)
	Limit           int
}

// Reader is the read-only view of the ledger store the suggestion engine consumes.
// Implementations must return rows most-recent first wherever a limit applies.
type Reader interface {
	// OverlappingInvoices returns posted vouchers of invoices sharing line-item keys with
	// the given purchase order, ordered by overlap count.
	OverlappingInvoices(ctx context.Context, poNumber string, limit int) ([]InvoiceOverlap, error)

	// EntriesByVouchers loads the ledger rows for the given vouchers.
	EntriesByVouchers(ctx context.Context, vouchers []string) ([]HistoricalEntry, error)

	// PostedInvoices returns invoices of a counterparty that already resulted in a voucher.
	PostedInvoices(ctx context.Context, counterparty string, limit int) ([]Invoice, error)

	// SearchEntries returns ledger rows whose description matches any of the terms.
	SearchEntries(ctx context.Context, q EntrySearch) ([]HistoricalEntry, error)

	// JournalTotals aggregates journal debit or credit totals per account.
	JournalTotals(ctx context.Context, q JournalTotalsQuery) ([]AccountTotal, error)

	// Accounts returns the chart of accounts ordered by code.
	Accounts(ctx context.Context) ([]Account, error)

	// UsageWeights returns absolute balance magnitudes per account over the most recent
	// periods of the usage table.
	UsageWeights(ctx context.Context, periods int) (map[string]float64, error)

	// CashAccountCounts counts cash accounts used by past entries of a direction,
	// optionally restricted to a counterparty.
	CashAccountCounts(ctx context.Context, direction Direction, counterparty string) ([]AccountCount, error)

	// TaxAccountCounts counts tax-slot accounts across past rows that posted tax,
	// optionally restricted to a counterparty.
	TaxAccountCounts(ctx context.Context, counterparty string) ([]AccountCount, error)
}
