// Package beancount renders suggested entries as Beancount draft transactions and appends
// them to monthly draft files.
package beancount

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// DefaultCurrency is used when a draft does not name one.
const DefaultCurrency = "IDR"

// Transaction represents a Beancount transaction.
type Transaction struct {
	Date      string            // YYYY-MM-DD
	Flag      string            // "*" or "!"; drafts default to "!"
	Narration string            // Transaction description
	Payee     string            // Payee name (optional)
	Tags      []string          // Tags (e.g., ["BKK"])
	Metadata  map[string]string // Metadata key-value pairs
	Postings  []Posting         // Transaction postings
}

// Posting represents a posting in a Beancount transaction.
type Posting struct {
	Account  string          // Account name (e.g., "Expenses:6101")
	Amount   decimal.Decimal // Positive for debit, negative for credit
	Currency string          // Currency code (e.g., "IDR")
	Comment  string          // Posting comment (optional)
}

// Draft is a confirmed-or-pending entry to render.
type Draft struct {
	Entry    ledger.Entry
	Date     time.Time
	Payee    string
	Currency string
	Metadata map[string]string
}

// AccountName maps a chart code to a Beancount account by its leading digit.
func AccountName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Equity:Unassigned"
	}
	root := "Expenses"
	switch code[0] {
	case '1':
		root = "Assets"
	case '2':
		root = "Liabilities"
	case '3':
		root = "Equity"
	case '4':
		root = "Income"
	}
	return root + ":" + strings.ReplaceAll(code, " ", "")
}

// FromDraft builds a balanced transaction: allocation lines, the tax posting, then the
// cash posting absorbing the remainder.
func FromDraft(d Draft) Transaction {
	currency := d.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	e := d.Entry
	var postings []Posting
	total := decimal.Zero
	add := func(account string, typ ledger.EntryType, amount decimal.Decimal, comment string) {
		if typ == ledger.Credit {
			amount = amount.Neg()
		}
		total = total.Add(amount)
		postings = append(postings, Posting{Account: AccountName(account), Amount: amount, Currency: currency, Comment: comment})
	}

	lineType := ledger.LineType(e.Direction)
	for _, l := range e.Lines {
		typ := l.Type
		if typ == "" {
			typ = lineType
		}
		add(l.Account, typ, l.Amount, "")
	}
	if e.TaxAmount.IsPositive() {
		add(e.TaxAccount, lineType, e.TaxAmount, "tax")
	}
	postings = append(postings, Posting{Account: AccountName(e.CashAccount), Amount: total.Neg(), Currency: currency})

	var tags []string
	if e.VoucherSeries != "" {
		tags = []string{e.VoucherSeries}
	}

	return Transaction{
		Date:      d.Date.Format(ledger.DateLayout),
		Flag:      "!",
		Narration: e.Description,
		Payee:     d.Payee,
		Tags:      tags,
		Metadata:  d.Metadata,
		Postings:  postings,
	}
}

// Format formats a Beancount transaction as a string.
func Format(txn Transaction) string {
	var sb strings.Builder

	flag := txn.Flag
	if flag == "" {
		flag = "*"
	}

	// Transaction header
	sb.WriteString(txn.Date)
	sb.WriteString(" ")
	sb.WriteString(flag)
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %q", txn.Payee))
	}
	sb.WriteString(fmt.Sprintf(" %q", txn.Narration))
	if len(txn.Tags) > 0 {
		sb.WriteString(" #")
		sb.WriteString(strings.Join(txn.Tags, " #"))
	}
	sb.WriteString("\n")

	keys := make([]string, 0, len(txn.Metadata))
	for k := range txn.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %q\n", k, txn.Metadata[k]))
	}

	// Postings
	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		// Right-align amount (typical Beancount style)
		spaces := max(1, 60-len(posting.Account))
		sb.WriteString(strings.Repeat(" ", spaces))
		sb.WriteString(posting.Amount.StringFixed(2))
		sb.WriteString(" ")
		sb.WriteString(posting.Currency)

		if posting.Comment != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", posting.Comment))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}
