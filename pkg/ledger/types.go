// Package ledger defines the double-entry ledger records the suggestion engine reads
// and the entry shape the persistence path validates.
package ledger

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Direction is the flow of a transaction relative to the business.
type Direction string

const (
	DirectionIn       Direction = "in"       // sale, receipt
	DirectionOut      Direction = "out"      // purchase, payment
	DirectionTransfer Direction = "transfer" // movement between own accounts
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionIn, DirectionOut, DirectionTransfer:
		return true
	}
	return false
}

// EntryType is the debit/credit side of a posting.
type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

// DateLayout is the YYYY-MM-DD layout dates are exchanged and stored in.
const DateLayout = "2006-01-02"

// SlotCount is the number of account slots on a ledger row.
const SlotCount = 3

// TaxSlot is the slot index reserved for the tax posting when a tax amount is present.
const TaxSlot = 1

// Slot is one {account, amount, type} position on a ledger row.
type Slot struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
	Type    EntryType       `json:"type"`
}

// Empty reports whether the slot carries no account.
func (s Slot) Empty() bool {
	return strings.TrimSpace(s.Account) == ""
}

// HistoricalEntry is a posted ledger row used as evidence. It is never mutated.
type HistoricalEntry struct {
	Voucher      string          `json:"voucher"`
	Date         time.Time       `json:"date"`
	Direction    Direction       `json:"direction"`
	Description  string          `json:"description"`
	CashAccount  string          `json:"cash_account"`
	Slots        [SlotCount]Slot `json:"slots"`
	DocumentRef  string          `json:"document_ref,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	// Taxed marks the middle slot as the tax posting. A row without it may use all three
	// slots for expense or revenue lines.
	Taxed        bool            `json:"taxed,omitempty"`
}

// HasTax reports whether the row was posted with a tax amount in the tax slot.
func (e HistoricalEntry) HasTax() bool {
	s := e.Slots[TaxSlot]
	return e.Taxed && !s.Empty() && s.Amount.IsPositive()
}

// TaxAccount returns the account in the tax slot, or "" when the row has no tax.
func (e HistoricalEntry) TaxAccount() string {
	if !e.HasTax() {
		return ""
	}
	return e.Slots[TaxSlot].Account
}

// LineSlots returns the populated non-tax slots in slot order.
func (e HistoricalEntry) LineSlots() []Slot {
	var out []Slot
	for i, s := range e.Slots {
		if s.Empty() {
			continue
		}
		if i == TaxSlot && e.HasTax() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Series returns the voucher series prefix (e.g. "BKK" for "BKK-2024-0012").
func (e HistoricalEntry) Series() string {
	return VoucherSeries(e.Voucher)
}

// VoucherSeries extracts the leading letter run of a voucher identifier.
func VoucherSeries(voucher string) string {
	v := strings.TrimSpace(voucher)
	end := 0
	for i, r := range v {
		if !unicode.IsLetter(r) {
			break
		}
		end = i + len(string(r))
	}
	return strings.ToUpper(v[:end])
}

// JournalLine is one detail row of the general journal.
type JournalLine struct {
	JournalID string          `json:"journal_id"`
	Date      time.Time       `json:"date"`
	Account   string          `json:"account"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Remark    string          `json:"remark,omitempty"`
}

// Invoice is a source document that may already be linked to a posted voucher.
type Invoice struct {
	Number       string    `json:"number"`
	Counterparty string    `json:"counterparty"`
	Date         time.Time `json:"date"`
	PONumber     string    `json:"po_number,omitempty"`
	Voucher      string    `json:"voucher,omitempty"`
	ItemKeys     []string  `json:"item_keys,omitempty"`
}

// InvoiceOverlap is a posted voucher whose invoice shares line-item keys with a PO.
type InvoiceOverlap struct {
	Voucher string
	Overlap int
}

// Account is a chart-of-accounts row.
type Account struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// AccountTotal is a per-account aggregate over journal lines.
type AccountTotal struct {
	Account string
	Total   decimal.Decimal
	Lines   int
}

// AccountCount is a per-account usage count.
type AccountCount struct {
	Account string
	Count   int
}

// Line is one allocation line of a suggested or submitted entry.
type Line struct {
	Account string          `json:"account"`
	Type    EntryType       `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
}

// Entry is the record handed to the persistence path after the user confirms a suggestion.
type Entry struct {
	Direction     Direction       `json:"direction"`
	VoucherSeries string          `json:"voucher_series"`
	CashAccount   string          `json:"cash_account"`
	Description   string          `json:"description"`
	Target        decimal.Decimal `json:"target"`
	TaxAccount    string          `json:"tax_account,omitempty"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Lines         []Line          `json:"lines"`
}

// Slots lays the entry out on a fixed three-slot row. Lines go to slots 0 and 2 when the
// tax posting occupies slot 1, otherwise they fill slots 0..2 in order.
func (e Entry) Slots() [SlotCount]Slot {
	var slots [SlotCount]Slot
	order := []int{0, 1, 2}
	if e.TaxAmount.IsPositive() {
		slots[TaxSlot] = Slot{Account: e.TaxAccount, Amount: e.TaxAmount, Type: e.lineType()}
		order = []int{0, 2}
	}
	for i, line := range e.Lines {
		if i >= len(order) {
			break
		}
		slots[order[i]] = Slot{Account: line.Account, Amount: line.Amount, Type: line.Type}
	}
	return slots
}

func (e Entry) lineType() EntryType {
	if len(e.Lines) > 0 && e.Lines[0].Type != "" {
		return e.Lines[0].Type
	}
	return LineType(e.Direction)
}

// LineType is the side allocation lines post to for a direction. Purchases and transfers
// debit the allocation accounts and credit cash; sales credit revenue and debit cash.
func LineType(d Direction) EntryType {
	if d == DirectionIn {
		return Credit
	}
	return Debit
}
