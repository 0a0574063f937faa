package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ImportType represents the kind of freee record that was imported.
type ImportType string

const (
	ImportTypeDeal    ImportType = "deal"
	ImportTypeJournal ImportType = "journal"
)

// ImportRecord represents an import history record.
type ImportRecord struct {
	ID         int64
	ImportType ImportType
	FreeeID    int64
	IssueDate  string
	Amount     decimal.Decimal
	Voucher    string
	BatchID    string
	ImportedAt time.Time
}

// ImportHistory tracks which freee deals and journals have been loaded into the ledger tables.
type ImportHistory struct {
	conn *Connection
	tx   *sql.Tx
}

// NewImportHistory creates a new ImportHistory instance.
func NewImportHistory(conn *Connection) *ImportHistory {
	return &ImportHistory{conn: conn}
}

// WithTx returns an ImportHistory whose statements run inside tx.
func (h *ImportHistory) WithTx(tx *sql.Tx) *ImportHistory {
	return &ImportHistory{conn: h.conn, tx: tx}
}

func (h *ImportHistory) db() querier {
	if h.tx != nil {
		return h.tx
	}
	return h.conn
}

// RecordImport records an import.
// If the record already exists (same import_type + freee_id), it updates it.
func (h *ImportHistory) RecordImport(ctx context.Context, record ImportRecord) error {
	query := `
		INSERT INTO import_history (import_type, freee_id, issue_date, amount, voucher, batch_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(import_type, freee_id) DO UPDATE SET
			issue_date = excluded.issue_date,
			amount = excluded.amount,
			voucher = excluded.voucher,
			batch_id = excluded.batch_id,
			imported_at = CURRENT_TIMESTAMP
	`

	_, err := h.db().ExecContext(ctx, query,
		string(record.ImportType),
		record.FreeeID,
		record.IssueDate,
		record.Amount,
		record.Voucher,
		record.BatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}

	return nil
}

// IsImported checks if a deal/journal has been imported.
func (h *ImportHistory) IsImported(ctx context.Context, importType ImportType, freeeID int64) (bool, error) {
	var count int
	err := h.db().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM import_history WHERE import_type = ? AND freee_id = ?`,
		string(importType), freeeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if imported: %w", err)
	}

	return count > 0, nil
}

// GetImportRecord retrieves an import record by freee ID. It returns nil when none exists.
func (h *ImportHistory) GetImportRecord(ctx context.Context, importType ImportType, freeeID int64) (*ImportRecord, error) {
	query := `
		SELECT id, import_type, freee_id, issue_date, amount, voucher, batch_id, imported_at
		FROM import_history
		WHERE import_type = ? AND freee_id = ?
	`

	var record ImportRecord
	var typ string
	err := h.db().QueryRowContext(ctx, query, string(importType), freeeID).Scan(
		&record.ID,
		&typ,
		&record.FreeeID,
		&record.IssueDate,
		&record.Amount,
		&record.Voucher,
		&record.BatchID,
		&record.ImportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import record: %w", err)
	}

	record.ImportType = ImportType(typ)
	return &record, nil
}

// ImportedIDs retrieves all imported freee IDs for a type, for bulk filtering.
func (h *ImportHistory) ImportedIDs(ctx context.Context, importType ImportType) (map[int64]bool, error) {
	rows, err := h.db().QueryContext(ctx,
		`SELECT freee_id FROM import_history WHERE import_type = ?`, string(importType))
	if err != nil {
		return nil, fmt.Errorf("failed to get imported IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan freee ID: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}

// DeleteImportRecord deletes an import record so the next sync imports it again.
func (h *ImportHistory) DeleteImportRecord(ctx context.Context, importType ImportType, freeeID int64) (bool, error) {
	result, err := h.db().ExecContext(ctx,
		`DELETE FROM import_history WHERE import_type = ? AND freee_id = ?`,
		string(importType), freeeID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete import record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n > 0, nil
}

// Stats represents import and ledger statistics.
type Stats struct {
	TotalDeals     int
	TotalJournals  int
	LedgerEntries  int
	JournalLines   int
	Invoices       int
	PostedInvoices int
	Accounts       int
	LastImport     sql.NullString
}

// GetStats retrieves import and ledger statistics.
func (h *ImportHistory) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	counts := []struct {
		name  string
		query string
		dest  *int
	}{
		{"deal", `SELECT COUNT(*) FROM import_history WHERE import_type = 'deal'`, &stats.TotalDeals},
		{"journal", `SELECT COUNT(*) FROM import_history WHERE import_type = 'journal'`, &stats.TotalJournals},
		{"ledger entry", `SELECT COUNT(*) FROM ledger_entries`, &stats.LedgerEntries},
		{"journal line", `SELECT COUNT(*) FROM journal_lines`, &stats.JournalLines},
		{"invoice", `SELECT COUNT(*) FROM invoices`, &stats.Invoices},
		{"posted invoice", `SELECT COUNT(*) FROM invoices WHERE voucher <> ''`, &stats.PostedInvoices},
		{"account", `SELECT COUNT(*) FROM accounts`, &stats.Accounts},
	}
	for _, c := range counts {
		if err := h.db().QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to get %s count: %w", c.name, err)
		}
	}

	err := h.db().QueryRowContext(ctx, `SELECT MAX(imported_at) FROM import_history`).Scan(&stats.LastImport)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last import time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value. A missing key yields "".
func (h *ImportHistory) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := h.db().QueryRowContext(ctx, `SELECT value FROM import_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *ImportHistory) SetMetadata(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO import_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := h.db().ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
