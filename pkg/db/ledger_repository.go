package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// LedgerRepository is the SQL-backed ledger.Reader plus the write paths used by importers.
type LedgerRepository struct {
	conn *Connection
	tx   *sql.Tx
}

var _ ledger.Reader = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// WithTx returns a repository bound to tx. Its writes join tx instead of committing on
// their own.
func (r *LedgerRepository) WithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{conn: r.conn, tx: tx}
}

func (r *LedgerRepository) db() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.conn
}

func (r *LedgerRepository) write(ctx context.Context, fn func(querier) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.conn.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(tx)
	})
}

const entryColumns = `voucher, entry_date, direction, description, cash_account,
	account1, amount1, type1, account2, amount2, type2, account3, amount3, type3,
	counterparty, document_ref, taxed`

// OverlappingInvoices returns posted vouchers whose invoices share item keys with the PO.
func (r *LedgerRepository) OverlappingInvoices(ctx context.Context, poNumber string, limit int) ([]ledger.InvoiceOverlap, error) {
	query := `
		SELECT i.voucher, COUNT(*) AS overlap
		FROM po_items p
		JOIN invoice_items ii ON ii.item_key = p.item_key
		JOIN invoices i ON i.invoice_no = ii.invoice_no
		WHERE p.po_no = ? AND i.voucher <> ''
		GROUP BY i.invoice_no, i.voucher
		ORDER BY overlap DESC, i.invoice_date DESC
		LIMIT ?
	`

	rows, err := r.db().QueryContext(ctx, query, poNumber, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping invoices: %w", err)
	}
	defer rows.Close()

	var out []ledger.InvoiceOverlap
	for rows.Next() {
		var o ledger.InvoiceOverlap
		if err := rows.Scan(&o.Voucher, &o.Overlap); err != nil {
			return nil, fmt.Errorf("failed to scan invoice overlap: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// EntriesByVouchers loads ledger rows for the given vouchers, most recent first.
func (r *LedgerRepository) EntriesByVouchers(ctx context.Context, vouchers []string) ([]ledger.HistoricalEntry, error) {
	if len(vouchers) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(vouchers))
	for i, v := range vouchers {
		args[i] = v
	}
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE voucher IN (%s)
		ORDER BY entry_date DESC, voucher DESC`, entryColumns, placeholders(len(vouchers)))

	return r.queryEntries(ctx, query, args...)
}

// PostedInvoices returns invoices of a counterparty that already have a voucher.
func (r *LedgerRepository) PostedInvoices(ctx context.Context, counterparty string, limit int) ([]ledger.Invoice, error) {
	query := `
		SELECT invoice_no, counterparty, invoice_date, po_no, voucher
		FROM invoices
		WHERE LOWER(counterparty) = LOWER(?) AND voucher <> ''
		ORDER BY invoice_date DESC, invoice_no DESC
		LIMIT ?
	`

	rows, err := r.db().QueryContext(ctx, query, counterparty, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query posted invoices: %w", err)
	}
	defer rows.Close()

	var out []ledger.Invoice
	for rows.Next() {
		var inv ledger.Invoice
		var date string
		if err := rows.Scan(&inv.Number, &inv.Counterparty, &date, &inv.PONumber, &inv.Voucher); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if inv.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// SearchEntries returns rows of a direction whose description contains any of the terms.
// No terms match nothing.
func (r *LedgerRepository) SearchEntries(ctx context.Context, q ledger.EntrySearch) ([]ledger.HistoricalEntry, error) {
	var terms []string
	for _, t := range q.Terms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, nil
	}

	var where []string
	var args []interface{}
	if q.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(q.Direction))
	}

	likes := make([]string, len(terms))
	for i, t := range terms {
		likes[i] = `LOWER(description) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(t))
	}
	where = append(where, "("+strings.Join(likes, " OR ")+")")

	if cp := strings.TrimSpace(q.Counterparty); cp != "" {
		where = append(where, `(LOWER(counterparty) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(cp), likePattern(cp))
	}

	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE %s
		ORDER BY entry_date DESC, voucher DESC LIMIT ?`, entryColumns, strings.Join(where, " AND "))
	args = append(args, sqlLimit(q.Limit))

	return r.queryEntries(ctx, query, args...)
}

// JournalTotals aggregates debit or credit amounts per account. Amounts are summed as
// decimals in Go since the columns hold decimal text.
func (r *LedgerRepository) JournalTotals(ctx context.Context, q ledger.JournalTotalsQuery) ([]ledger.AccountTotal, error) {
	column := "debit"
	if q.Side == ledger.Credit {
		column = "credit"
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if !q.Since.IsZero() {
		where = append(where, "entry_date >= ?")
		args = append(args, q.Since.Format(ledger.DateLayout))
	}
	if remark := strings.TrimSpace(q.Remark); remark != "" {
		where = append(where, `LOWER(remark) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(remark))
	}
	for _, p := range q.ExcludePrefixes {
		if p == "" {
			continue
		}
		where = append(where, "substr(account, 1, ?) <> ?")
		args = append(args, len(p), p)
	}

	query := fmt.Sprintf(`SELECT account, %s FROM journal_lines WHERE %s`, column, strings.Join(where, " AND "))
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal lines: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]*ledger.AccountTotal)
	for rows.Next() {
		var account string
		var amount decimal.Decimal
		if err := rows.Scan(&account, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		if !amount.IsPositive() {
			continue
		}
		t, ok := totals[account]
		if !ok {
			t = &ledger.AccountTotal{Account: account, Total: decimal.Zero}
			totals[account] = t
		}
		t.Total = t.Total.Add(amount)
		t.Lines++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ledger.AccountTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Account < out[j].Account
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Accounts returns the chart of accounts ordered by code.
func (r *LedgerRepository) Accounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT code, name, kind FROM accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var a ledger.Account
		if err := rows.Scan(&a.Code, &a.Name, &a.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UsageWeights sums absolute magnitudes per account over the latest periods.
func (r *LedgerRepository) UsageWeights(ctx context.Context, periods int) (map[string]float64, error) {
	query := `
		SELECT account_code, SUM(ABS(magnitude))
		FROM account_usage
		WHERE period IN (SELECT DISTINCT period FROM account_usage ORDER BY period DESC LIMIT ?)
		GROUP BY account_code
	`

	rows, err := r.db().QueryContext(ctx, query, sqlLimit(periods))
	if err != nil {
		return nil, fmt.Errorf("failed to query account usage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var code string
		var magnitude float64
		if err := rows.Scan(&code, &magnitude); err != nil {
			return nil, fmt.Errorf("failed to scan account usage: %w", err)
		}
		out[code] = magnitude
	}
	return out, rows.Err()
}

// CashAccountCounts counts cash accounts on past entries of a direction.
func (r *LedgerRepository) CashAccountCounts(ctx context.Context, direction ledger.Direction, counterparty string) ([]ledger.AccountCount, error) {
	query := `
		SELECT cash_account, COUNT(*) AS n
		FROM ledger_entries
		WHERE direction = ? AND TRIM(cash_account) <> ''
			AND (? = '' OR LOWER(counterparty) = LOWER(?))
		GROUP BY cash_account
		ORDER BY n DESC, cash_account
	`
	return r.queryCounts(ctx, query, string(direction), counterparty, counterparty)
}

// TaxAccountCounts counts tax-slot accounts on rows flagged as taxed with a positive tax amount.
func (r *LedgerRepository) TaxAccountCounts(ctx context.Context, counterparty string) ([]ledger.AccountCount, error) {
	query := `
		SELECT account2, COUNT(*) AS n
		FROM ledger_entries
		WHERE taxed = 1 AND TRIM(account2) <> '' AND CAST(amount2 AS REAL) > 0
			AND (? = '' OR LOWER(counterparty) = LOWER(?))
		GROUP BY account2
		ORDER BY n DESC, account2
	`
	return r.queryCounts(ctx, query, counterparty, counterparty)
}

// SaveEntry inserts or replaces a ledger row keyed by voucher.
func (r *LedgerRepository) SaveEntry(ctx context.Context, e ledger.HistoricalEntry) error {
	return r.write(ctx, func(tx querier) error {
		return saveEntry(ctx, tx, e)
	})
}

// SaveEntries stores a batch of ledger rows in one transaction.
func (r *LedgerRepository) SaveEntries(ctx context.Context, entries []ledger.HistoricalEntry) error {
	return r.write(ctx, func(tx querier) error {
		for _, e := range entries {
			if err := saveEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveEntry(ctx context.Context, tx querier, e ledger.HistoricalEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO ledger_entries (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(voucher) DO UPDATE SET
			entry_date = excluded.entry_date,
			direction = excluded.direction,
			description = excluded.description,
			cash_account = excluded.cash_account,
			account1 = excluded.account1, amount1 = excluded.amount1, type1 = excluded.type1,
			account2 = excluded.account2, amount2 = excluded.amount2, type2 = excluded.type2,
			account3 = excluded.account3, amount3 = excluded.amount3, type3 = excluded.type3,
			counterparty = excluded.counterparty,
			document_ref = excluded.document_ref,
			taxed = excluded.taxed
	`, entryColumns)

	args := []interface{}{e.Voucher, e.Date.Format(ledger.DateLayout), string(e.Direction), e.Description, e.CashAccount}
	for _, s := range e.Slots {
		args = append(args, s.Account, s.Amount, string(s.Type))
	}
	args = append(args, e.Counterparty, e.DocumentRef, e.Taxed)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save ledger entry %s: %w", e.Voucher, err)
	}
	return nil
}

// ReplaceJournal deletes the lines of each journal ID present in lines, then inserts lines.
func (r *LedgerRepository) ReplaceJournal(ctx context.Context, lines []ledger.JournalLine) error {
	return r.write(ctx, func(tx querier) error {
		seen := make(map[string]bool)
		for _, l := range lines {
			if seen[l.JournalID] {
				continue
			}
			seen[l.JournalID] = true
			if _, err := tx.ExecContext(ctx, `DELETE FROM journal_lines WHERE journal_id = ?`, l.JournalID); err != nil {
				return fmt.Errorf("failed to clear journal %s: %w", l.JournalID, err)
			}
		}

		for _, l := range lines {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO journal_lines (journal_id, entry_date, account, debit, credit, remark)
				VALUES (?, ?, ?, ?, ?, ?)
			`, l.JournalID, l.Date.Format(ledger.DateLayout), l.Account, l.Debit, l.Credit, l.Remark)
			if err != nil {
				return fmt.Errorf("failed to insert journal line: %w", err)
			}
		}
		return nil
	})
}

// JournalLines returns the journal lines dated in period (YYYY-MM), in insertion order.
func (r *LedgerRepository) JournalLines(ctx context.Context, period string) ([]ledger.JournalLine, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT journal_id, entry_date, account, debit, credit, remark
		FROM journal_lines
		WHERE substr(entry_date, 1, 7) = ?
		ORDER BY id
	`, period)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.JournalLine
	for rows.Next() {
		var l ledger.JournalLine
		var date string
		if err := rows.Scan(&l.JournalID, &date, &l.Account, &l.Debit, &l.Credit, &l.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		if l.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// SaveInvoice upserts an invoice and replaces its item keys.
func (r *LedgerRepository) SaveInvoice(ctx context.Context, inv ledger.Invoice) error {
	return r.write(ctx, func(tx querier) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (invoice_no, counterparty, invoice_date, po_no, voucher)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(invoice_no) DO UPDATE SET
				counterparty = excluded.counterparty,
				invoice_date = excluded.invoice_date,
				po_no = excluded.po_no,
				voucher = excluded.voucher
		`, inv.Number, inv.Counterparty, inv.Date.Format(ledger.DateLayout), inv.PONumber, inv.Voucher)
		if err != nil {
			return fmt.Errorf("failed to save invoice %s: %w", inv.Number, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_no = ?`, inv.Number); err != nil {
			return fmt.Errorf("failed to clear invoice items: %w", err)
		}
		for _, key := range inv.ItemKeys {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO invoice_items (invoice_no, item_key) VALUES (?, ?)`, inv.Number, key)
			if err != nil {
				return fmt.Errorf("failed to insert invoice item: %w", err)
			}
		}
		return nil
	})
}

// AddPOItems merges item keys into a purchase order. A PO billed over several invoices
// accumulates the keys of each.
func (r *LedgerRepository) AddPOItems(ctx context.Context, poNumber string, keys []string) error {
	return r.write(ctx, func(tx querier) error {
		for _, key := range keys {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO po_items (po_no, item_key) VALUES (?, ?)`, poNumber, key)
			if err != nil {
				return fmt.Errorf("failed to insert PO item: %w", err)
			}
		}
		return nil
	})
}

// SaveAccounts upserts chart-of-accounts rows.
func (r *LedgerRepository) SaveAccounts(ctx context.Context, accounts []ledger.Account) error {
	return r.write(ctx, func(tx querier) error {
		for _, a := range accounts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO accounts (code, name, kind) VALUES (?, ?, ?)
				ON CONFLICT(code) DO UPDATE SET name = excluded.name, kind = excluded.kind
			`, a.Code, a.Name, a.Kind)
			if err != nil {
				return fmt.Errorf("failed to save account %s: %w", a.Code, err)
			}
		}
		return nil
	})
}

// SetUsage replaces the usage magnitudes of a period (YYYY-MM).
func (r *LedgerRepository) SetUsage(ctx context.Context, period string, magnitudes map[string]float64) error {
	return r.write(ctx, func(tx querier) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM account_usage WHERE period = ?`, period); err != nil {
			return fmt.Errorf("failed to clear usage for %s: %w", period, err)
		}
		for code, m := range magnitudes {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO account_usage (period, account_code, magnitude) VALUES (?, ?, ?)`, period, code, m)
			if err != nil {
				return fmt.Errorf("failed to insert usage: %w", err)
			}
		}
		return nil
	})
}

func (r *LedgerRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]ledger.HistoricalEntry, error) {
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.HistoricalEntry
	for rows.Next() {
		var e ledger.HistoricalEntry
		var date, direction string
		var types [ledger.SlotCount]string
		if err := rows.Scan(
			&e.Voucher, &date, &direction, &e.Description, &e.CashAccount,
			&e.Slots[0].Account, &e.Slots[0].Amount, &types[0],
			&e.Slots[1].Account, &e.Slots[1].Amount, &types[1],
			&e.Slots[2].Account, &e.Slots[2].Amount, &types[2],
			&e.Counterparty, &e.DocumentRef, &e.Taxed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		e.Direction = ledger.Direction(direction)
		for i := range types {
			e.Slots[i].Type = ledger.EntryType(types[i])
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) queryCounts(ctx context.Context, query string, args ...interface{}) ([]ledger.AccountCount, error) {
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.AccountCount
	for rows.Next() {
		var c ledger.AccountCount
		if err := rows.Scan(&c.Account, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan account count: %w", err)
		}
		c.Account = strings.TrimSpace(c.Account)
		out = append(out, c)
	}
	return out, rows.Err()
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(ledger.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
