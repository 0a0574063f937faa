package ledgertest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// Date parses a YYYY-MM-DD date and panics on bad input.
func Date(s string) time.Time {
	t, err := time.Parse(ledger.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Amount parses a decimal and panics on bad input.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Debit is a debit slot.
func Debit(account, amount string) ledger.Slot {
	return ledger.Slot{Account: account, Amount: Amount(amount), Type: ledger.Debit}
}

// Credit is a credit slot.
func Credit(account, amount string) ledger.Slot {
	return ledger.Slot{Account: account, Amount: Amount(amount), Type: ledger.Credit}
}

// Row builds a historical entry. Slots beyond three are dropped; missing ones stay empty.
func Row(voucher, date string, d ledger.Direction, description, cash string, slots ...ledger.Slot) ledger.HistoricalEntry {
	e := ledger.HistoricalEntry{
		Voucher:     voucher,
		Date:        Date(date),
		Direction:   d,
		Description: description,
		CashAccount: cash,
	}
	for i := 0; i < len(slots) && i < ledger.SlotCount; i++ {
		e.Slots[i] = slots[i]
	}
	return e
}

// TaxedRow builds a historical entry whose middle slot is the tax posting.
func TaxedRow(voucher, date string, d ledger.Direction, description, cash string, line1, tax, line2 ledger.Slot) ledger.HistoricalEntry {
	e := Row(voucher, date, d, description, cash, line1, tax, line2)
	e.Taxed = true
	return e
}
