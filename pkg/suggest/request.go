package suggest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/evidence"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ranking"
)

// ErrInvalidRequest is returned for malformed requests. Missing history is never an error.
var ErrInvalidRequest = errors.New("invalid suggestion request")

// Request is a pending transaction that needs a proposed entry.
type Request struct {
	Direction     ledger.Direction `json:"direction"`
	Gross         decimal.Decimal  `json:"gross"`
	HasTax        bool             `json:"has_tax"`
	TaxAmount     decimal.Decimal  `json:"tax_amount"`
	Description   string           `json:"description,omitempty"`
	SeedAccount   string           `json:"seed_account,omitempty"`
	PONumber      string           `json:"po_number,omitempty"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	Counterparty  string           `json:"counterparty,omitempty"`
	Date          time.Time        `json:"date,omitempty"`
}

// Validate rejects requests the engine cannot reason about.
func (r Request) Validate() error {
	if !r.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidRequest, r.Direction)
	}
	if r.Gross.IsNegative() {
		return fmt.Errorf("%w: gross amount is negative", ErrInvalidRequest)
	}
	if r.HasTax && r.TaxAmount.IsNegative() {
		return fmt.Errorf("%w: tax amount is negative", ErrInvalidRequest)
	}
	if r.Tax().GreaterThan(r.Gross.Round(2)) {
		return fmt.Errorf("%w: tax amount %s exceeds gross amount %s", ErrInvalidRequest, r.Tax().StringFixed(2), r.Gross.StringFixed(2))
	}
	return nil
}

// Tax is the tax amount to post, zero when the request carries no tax.
func (r Request) Tax() decimal.Decimal {
	if !r.HasTax || !r.TaxAmount.IsPositive() {
		return decimal.Zero
	}
	return r.TaxAmount.Round(2)
}

// Target is the taxable base (DPP) the allocation lines must sum to.
func (r Request) Target() decimal.Decimal {
	return r.Gross.Sub(r.Tax()).Round(2)
}

func (r Request) trimmed() Request {
	r.Description = strings.TrimSpace(r.Description)
	r.SeedAccount = strings.TrimSpace(r.SeedAccount)
	r.PONumber = strings.TrimSpace(r.PONumber)
	r.InvoiceNumber = strings.TrimSpace(r.InvoiceNumber)
	r.Counterparty = strings.TrimSpace(r.Counterparty)
	return r
}

// Attempt records what one evidence source returned.
type Attempt struct {
	Source evidence.Kind `json:"source"`
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// Suggestion is the proposed entry. It is advisory: the persistence path re-validates it.
type Suggestion struct {
	Direction     ledger.Direction         `json:"direction"`
	CashAccount   string                   `json:"cash_account"`
	VoucherSeries string                   `json:"voucher_series"`
	TaxAccount    string                   `json:"tax_account,omitempty"`
	TaxAmount     decimal.Decimal          `json:"tax_amount"`
	Target        decimal.Decimal          `json:"target"`
	Lines         []ledger.Line            `json:"lines"`
	Description   string                   `json:"description"`
	Confidence    float64                  `json:"confidence"`
	Source        Source                   `json:"source"`
	Overridden    bool                     `json:"overridden"`
	Ranked        []ranking.Ranked         `json:"ranked,omitempty"`
	Attempts      []Attempt                `json:"attempts,omitempty"`
	Evidence      []ledger.HistoricalEntry `json:"evidence,omitempty"`
}

// Entry merges the suggestion into the record handed to the persistence path.
func (s Suggestion) Entry() ledger.Entry {
	return ledger.Entry{
		Direction:     s.Direction,
		VoucherSeries: s.VoucherSeries,
		CashAccount:   s.CashAccount,
		Description:   s.Description,
		Target:        s.Target,
		TaxAccount:    s.TaxAccount,
		TaxAmount:     s.TaxAmount,
		Lines:         append([]ledger.Line(nil), s.Lines...),
	}
}
