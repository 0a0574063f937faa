package converter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/describe"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/freee"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/rules"
)

// DealResult is a converted deal: its ledger row and, when the deal carries a reference
// number, the linked invoice.
type DealResult struct {
	Entry   ledger.HistoricalEntry
	Invoice *ledger.Invoice
	Amount  decimal.Decimal
}

// Converter converts freee transactions to ledger rows.
type Converter struct {
	mapper   *Mapper
	chart    *rules.Chart
	unmapped map[string]bool
}

// NewConverter creates a new Converter. Unmapped accounts fall back to the chart defaults.
func NewConverter(mapper *Mapper, chart *rules.Chart) *Converter {
	if chart == nil {
		chart = rules.DefaultChart()
	}
	return &Converter{
		mapper:   mapper,
		chart:    chart,
		unmapped: make(map[string]bool),
	}
}

// ConvertDeal converts a Deal to a ledger row. VAT goes to the tax slot; the remaining
// slots carry the detail accounts, and details beyond the free slots are folded into the
// last line.
func (c *Converter) ConvertDeal(deal freee.Deal) (DealResult, error) {
	date, err := time.Parse(ledger.DateLayout, deal.IssueDate)
	if err != nil {
		return DealResult{}, fmt.Errorf("deal %d: invalid issue date %q: %w", deal.ID, deal.IssueDate, err)
	}

	direction := ledger.DirectionOut
	if deal.Type == freee.DealTypeIncome {
		direction = ledger.DirectionIn
	}
	lineType := ledger.LineType(direction)

	var codes []string
	amounts := make(map[string]decimal.Decimal)
	vat := decimal.Zero
	taxCode := 0
	for _, detail := range deal.Details {
		code := c.accountCode(detail.AccountItemName, direction)
		if _, ok := amounts[code]; !ok {
			codes = append(codes, code)
		}
		amounts[code] = amounts[code].Add(decimal.NewFromInt(detail.Amount))
		if detail.Vat > 0 {
			vat = vat.Add(decimal.NewFromInt(detail.Vat))
			taxCode = detail.TaxCode
		}
	}

	entry := ledger.HistoricalEntry{
		Voucher:      fmt.Sprintf("%s-%d", c.chart.DefaultSeries(direction), deal.ID),
		Date:         date,
		Direction:    direction,
		Description:  buildDealNarration(deal),
		CashAccount:  c.cashAccount(deal.Payments),
		DocumentRef:  ptrToString(deal.RefNumber),
		Counterparty: counterparty(deal),
	}

	order := []int{0, 1, 2}
	if vat.IsPositive() {
		taxAccount := c.mapper.GetTaxAccount(taxCode)
		if taxAccount == "" {
			taxAccount = c.chart.DefaultTaxAccount(direction)
		}
		entry.Slots[ledger.TaxSlot] = ledger.Slot{Account: taxAccount, Amount: vat, Type: lineType}
		entry.Taxed = true
		order = []int{0, 2}
	}
	for i, code := range codes {
		slot := order[min(i, len(order)-1)]
		s := &entry.Slots[slot]
		if s.Empty() {
			*s = ledger.Slot{Account: code, Amount: amounts[code], Type: lineType}
			continue
		}
		s.Amount = s.Amount.Add(amounts[code])
	}

	result := DealResult{Entry: entry, Amount: decimal.NewFromInt(deal.Amount)}
	if entry.DocumentRef != "" {
		result.Invoice = &ledger.Invoice{
			Number:       entry.DocumentRef,
			Counterparty: entry.Counterparty,
			Date:         date,
			PONumber:     purchaseOrder(deal),
			Voucher:      entry.Voucher,
			ItemKeys:     itemKeys(deal.Details),
		}
	}
	return result, nil
}

// ConvertJournal converts a Journal to journal lines. VAT becomes its own line on the tax
// account of the side it was posted to.
func (c *Converter) ConvertJournal(journal freee.Journal) ([]ledger.JournalLine, error) {
	date, err := time.Parse(ledger.DateLayout, journal.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("journal %d: invalid issue date %q: %w", journal.ID, journal.IssueDate, err)
	}

	id := fmt.Sprintf("%s-%d", c.chart.Series.Transfer, journal.ID)
	var lines []ledger.JournalLine
	for _, detail := range journal.Details {
		direction := ledger.DirectionOut
		if detail.EntryType == string(ledger.Credit) {
			direction = ledger.DirectionIn
		}

		line := ledger.JournalLine{
			JournalID: id,
			Date:      date,
			Account:   c.accountCode(detail.AccountItemName, direction),
			Remark:    ptrToString(detail.Description),
		}
		setSide(&line, detail.EntryType, decimal.NewFromInt(detail.Amount))
		lines = append(lines, line)

		if detail.Vat > 0 {
			taxAccount := c.mapper.GetTaxAccount(detail.TaxCode)
			if taxAccount == "" {
				taxAccount = c.chart.DefaultTaxAccount(direction)
			}
			vatLine := ledger.JournalLine{JournalID: id, Date: date, Account: taxAccount, Remark: line.Remark}
			setSide(&vatLine, detail.EntryType, decimal.NewFromInt(detail.Vat))
			lines = append(lines, vatLine)
		}
	}

	return lines, nil
}

// Unmapped returns the freee account names that fell back to a default code, sorted.
func (c *Converter) Unmapped() []string {
	names := make([]string, 0, len(c.unmapped))
	for name := range c.unmapped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Usage sums absolute journal amounts per account and month (YYYY-MM), the magnitudes
// stored in the usage table.
func Usage(lines []ledger.JournalLine) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, l := range lines {
		period := l.Date.Format("2006-01")
		if out[period] == nil {
			out[period] = make(map[string]float64)
		}
		out[period][l.Account] += l.Debit.Sub(l.Credit).Abs().InexactFloat64()
	}
	return out
}

func (c *Converter) accountCode(freeeName string, d ledger.Direction) string {
	if code := c.mapper.GetCode(freeeName); code != "" {
		return code
	}
	c.unmapped[freeeName] = true
	return c.chart.DefaultAccount(d)
}

func (c *Converter) cashAccount(payments []freee.Payment) string {
	for _, p := range payments {
		if code := c.mapper.GetWalletableCode(p.FromWalletableType, p.FromWalletableID); code != "" {
			return code
		}
	}
	return c.chart.DefaultCashAccount()
}

func setSide(line *ledger.JournalLine, entryType string, amount decimal.Decimal) {
	if entryType == string(ledger.Credit) {
		line.Credit = amount
		line.Debit = decimal.Zero
		return
	}
	line.Debit = amount
	line.Credit = decimal.Zero
}

func itemKeys(details []freee.Detail) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, d := range details {
		var key string
		switch {
		case d.ItemID != nil:
			key = fmt.Sprintf("item:%d", *d.ItemID)
		case d.ItemName != nil && *d.ItemName != "":
			key = strings.ToLower(strings.TrimSpace(*d.ItemName))
		default:
			continue
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// purchaseOrder finds the PO a deal was billed against in its detail descriptions.
func purchaseOrder(deal freee.Deal) string {
	for _, d := range deal.Details {
		if po := describe.FindPO(ptrToString(d.Description)); po != "" {
			return po
		}
	}
	return ""
}

func counterparty(deal freee.Deal) string {
	if name := ptrToString(deal.PartnerName); name != "" {
		return name
	}
	return ptrToString(deal.PartnerCode)
}

func ptrToString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func buildDealNarration(deal freee.Deal) string {
	if len(deal.Details) == 1 && deal.Details[0].Description != nil {
		return *deal.Details[0].Description
	}

	var accountNames []string
	for _, d := range deal.Details {
		accountNames = append(accountNames, d.AccountItemName)
	}

	typeLabel := "支出"
	if deal.Type == freee.DealTypeIncome {
		typeLabel = "収入"
	}

	return fmt.Sprintf("%s: %s", typeLabel, strings.Join(accountNames, ", "))
}
