// Package ledgertest provides an in-memory ledger.Reader for tests.
package ledgertest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// Memory is a ledger.Reader over plain slices. Errors maps a method name to the error
// that method returns. It is safe for concurrent reads.
type Memory struct {
	Entries     []ledger.HistoricalEntry
	Journal     []ledger.JournalLine
	Invoices    []ledger.Invoice
	POItems     map[string][]string
	AccountList []ledger.Account
	Usage       map[string]float64
	Errors      map[string]error

	mu    sync.Mutex
	calls []string
}

var _ ledger.Reader = (*Memory)(nil)

func (m *Memory) call(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.Errors[name]
}

// Calls returns the methods invoked so far, in order.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Called reports whether method name was invoked.
func (m *Memory) Called(name string) bool {
	for _, c := range m.Calls() {
		if c == name {
			return true
		}
	}
	return false
}

func (m *Memory) OverlappingInvoices(ctx context.Context, poNumber string, limit int) ([]ledger.InvoiceOverlap, error) {
	if err := m.call("OverlappingInvoices"); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	for _, k := range m.POItems[poNumber] {
		keys[k] = struct{}{}
	}

	type hit struct {
		inv     ledger.Invoice
		overlap int
	}
	var hits []hit
	for _, inv := range m.Invoices {
		if inv.Voucher == "" {
			continue
		}
		n := 0
		for _, k := range inv.ItemKeys {
			if _, ok := keys[k]; ok {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, hit{inv: inv, overlap: n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].overlap != hits[j].overlap {
			return hits[i].overlap > hits[j].overlap
		}
		return hits[i].inv.Date.After(hits[j].inv.Date)
	})

	var out []ledger.InvoiceOverlap
	for _, h := range hits {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, ledger.InvoiceOverlap{Voucher: h.inv.Voucher, Overlap: h.overlap})
	}
	return out, nil
}

func (m *Memory) EntriesByVouchers(ctx context.Context, vouchers []string) ([]ledger.HistoricalEntry, error) {
	if err := m.call("EntriesByVouchers"); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(vouchers))
	for _, v := range vouchers {
		want[v] = struct{}{}
	}
	var out []ledger.HistoricalEntry
	for _, e := range m.Entries {
		if _, ok := want[e.Voucher]; ok {
			out = append(out, e)
		}
	}
	return recent(out), nil
}

func (m *Memory) PostedInvoices(ctx context.Context, counterparty string, limit int) ([]ledger.Invoice, error) {
	if err := m.call("PostedInvoices"); err != nil {
		return nil, err
	}
	var out []ledger.Invoice
	for _, inv := range m.Invoices {
		if inv.Voucher != "" && strings.EqualFold(inv.Counterparty, counterparty) {
			out = append(out, inv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SearchEntries(ctx context.Context, q ledger.EntrySearch) ([]ledger.HistoricalEntry, error) {
	if err := m.call("SearchEntries"); err != nil {
		return nil, err
	}
	cp := strings.ToLower(q.Counterparty)
	var out []ledger.HistoricalEntry
	for _, e := range recent(m.Entries) {
		if q.Direction != "" && e.Direction != q.Direction {
			continue
		}
		desc := strings.ToLower(e.Description)
		if cp != "" && !strings.Contains(strings.ToLower(e.Counterparty), cp) && !strings.Contains(desc, cp) {
			continue
		}
		if !containsAny(desc, q.Terms) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) JournalTotals(ctx context.Context, q ledger.JournalTotalsQuery) ([]ledger.AccountTotal, error) {
	if err := m.call("JournalTotals"); err != nil {
		return nil, err
	}
	remark := strings.ToLower(q.Remark)
	var order []string
	totals := make(map[string]*ledger.AccountTotal)
	for _, l := range m.Journal {
		if !q.Since.IsZero() && l.Date.Before(q.Since) {
			continue
		}
		if remark != "" && !strings.Contains(strings.ToLower(l.Remark), remark) {
			continue
		}
		if hasPrefix(l.Account, q.ExcludePrefixes) {
			continue
		}
		amount := l.Debit
		if q.Side == ledger.Credit {
			amount = l.Credit
		}
		if !amount.IsPositive() {
			continue
		}
		t, ok := totals[l.Account]
		if !ok {
			t = &ledger.AccountTotal{Account: l.Account, Total: decimal.Zero}
			totals[l.Account] = t
			order = append(order, l.Account)
		}
		t.Total = t.Total.Add(amount)
		t.Lines++
	}

	out := make([]ledger.AccountTotal, 0, len(order))
	for _, a := range order {
		out = append(out, *totals[a])
	}
	sort.SliceStable(out, func(i, j int) bool {
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

func (m *Memory) Accounts(ctx context.Context) ([]ledger.Account, error) {
	if err := m.call("Accounts"); err != nil {
		return nil, err
	}
	out := append([]ledger.Account(nil), m.AccountList...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) UsageWeights(ctx context.Context, periods int) (map[string]float64, error) {
	if err := m.call("UsageWeights"); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(m.Usage))
	for k, v := range m.Usage {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) CashAccountCounts(ctx context.Context, direction ledger.Direction, counterparty string) ([]ledger.AccountCount, error) {
	if err := m.call("CashAccountCounts"); err != nil {
		return nil, err
	}
	return count(m.Entries, func(e ledger.HistoricalEntry) string {
		if e.Direction != direction || !matchCounterparty(e, counterparty) {
			return ""
		}
		return e.CashAccount
	}), nil
}

func (m *Memory) TaxAccountCounts(ctx context.Context, counterparty string) ([]ledger.AccountCount, error) {
	if err := m.call("TaxAccountCounts"); err != nil {
		return nil, err
	}
	return count(m.Entries, func(e ledger.HistoricalEntry) string {
		if !matchCounterparty(e, counterparty) {
			return ""
		}
		return e.TaxAccount()
	}), nil
}

func recent(entries []ledger.HistoricalEntry) []ledger.HistoricalEntry {
	out := append([]ledger.HistoricalEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Voucher > out[j].Voucher
	})
	return out
}

func count(entries []ledger.HistoricalEntry, key func(ledger.HistoricalEntry) string) []ledger.AccountCount {
	counts := make(map[string]int)
	for _, e := range entries {
		if k := strings.TrimSpace(key(e)); k != "" {
			counts[k]++
		}
	}
	out := make([]ledger.AccountCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ledger.AccountCount{Account: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Account < out[j].Account
	})
	return out
}

func matchCounterparty(e ledger.HistoricalEntry, counterparty string) bool {
	return counterparty == "" || strings.EqualFold(e.Counterparty, counterparty)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func hasPrefix(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
