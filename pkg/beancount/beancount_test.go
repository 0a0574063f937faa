package beancount

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/pathutil"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func purchase() Draft {
	return Draft{
		Entry: ledger.Entry{
			Direction:     ledger.DirectionOut,
			VoucherSeries: "BKK",
			CashAccount:   "1101",
			Description:   "Pembelian kertas",
			Target:        d("900000"),
			TaxAccount:    "1170",
			TaxAmount:     d("100000"),
			Lines: []ledger.Line{
				{Account: "6101", Type: ledger.Debit, Amount: d("630000")},
				{Account: "6102", Type: ledger.Debit, Amount: d("270000")},
			},
		},
		Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Payee:    "PT Sinar",
		Metadata: map[string]string{"source": "ledger_text", "confidence": "0.62"},
	}
}

func TestAccountName(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"1101", "Assets:1101"},
		{"2130", "Liabilities:2130"},
		{"3100", "Equity:3100"},
		{"4101", "Income:4101"},
		{"6101", "Expenses:6101"},
		{"", "Equity:Unassigned"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := AccountName(tt.code); got != tt.expected {
				t.Errorf("AccountName(%q) = %q, expected %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestFromDraftBalances(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		cash  string
	}{
		{"purchase", purchase(), "-1000000"},
		{"sale", func() Draft {
			p := purchase()
			p.Entry.Direction = ledger.DirectionIn
			p.Entry.TaxAccount = "2130"
			for i := range p.Entry.Lines {
				p.Entry.Lines[i].Type = ledger.Credit
			}
			return p
		}(), "1000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := FromDraft(tt.draft)
			sum := decimal.Zero
			for _, p := range txn.Postings {
				sum = sum.Add(p.Amount)
			}
			if !sum.IsZero() {
				t.Errorf("postings sum to %s, expected 0", sum)
			}
			cash := txn.Postings[len(txn.Postings)-1]
			if cash.Account != "Assets:1101" || !cash.Amount.Equal(d(tt.cash)) {
				t.Errorf("cash posting = %s %s, expected Assets:1101 %s", cash.Account, cash.Amount, tt.cash)
			}
			if cash.Currency != DefaultCurrency {
				t.Errorf("Currency = %q, expected %q", cash.Currency, DefaultCurrency)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	out := Format(FromDraft(purchase()))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	expected := []string{
		`2024-03-15 ! "PT Sinar" "Pembelian kertas" #BKK`,
		`  confidence: "0.62"`,
		`  source: "ledger_text"`,
		"  " + fmt.Sprintf("%-60s", "Expenses:6101") + "630000.00 IDR",
		"  " + fmt.Sprintf("%-60s", "Expenses:6102") + "270000.00 IDR",
		"  " + fmt.Sprintf("%-60s", "Assets:1170") + "100000.00 IDR ; tax",
		"  " + fmt.Sprintf("%-60s", "Assets:1101") + "-1000000.00 IDR",
	}
	if len(lines) != len(expected) {
		t.Fatalf("Format() = %d lines, expected %d:\n%s", len(lines), len(expected), out)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line %d = %q, expected %q", i, lines[i], expected[i])
		}
	}
}

func TestFormatDefaultsFlag(t *testing.T) {
	out := Format(Transaction{Date: "2024-01-01", Narration: "x"})
	if out != "2024-01-01 * \"x\"\n" {
		t.Errorf("Format() = %q", out)
	}
}

func TestFileSystemRepository(t *testing.T) {
	root := t.TempDir()
	repo := NewFileSystemRepository(pathutil.New(pathutil.Config{DataRoot: root}))
	repo.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	empty, err := repo.ReadMonthFile(date)
	if err != nil || empty != "" {
		t.Fatalf("ReadMonthFile() = %q, %v before any append", empty, err)
	}

	path, err := repo.AppendTransaction(date, "2024-03-15 ! \"a\"", "first")
	if err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	if !strings.HasSuffix(path, "drafts/2024/2024-03.beancount") {
		t.Errorf("path = %q", path)
	}
	if _, err := repo.AppendTransaction(date, "2024-03-16 ! \"b\"\n"); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}

	content, err := repo.ReadMonthFile(date)
	if err != nil {
		t.Fatalf("ReadMonthFile() error = %v", err)
	}
	expected := "; Draft entries for 2024-03\n; Generated at 2024-03-20T09:00:00Z\n\n" +
		"; first\n2024-03-15 ! \"a\"\n\n" +
		"2024-03-16 ! \"b\"\n\n"
	if content != expected {
		t.Errorf("ReadMonthFile() = %q, expected %q", content, expected)
	}
}
