package evidence

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	lt "github.com/pigeonworks-llc/ledger-suggest/pkg/ledger/ledgertest"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ranking"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/textmatch"
)

var testRanges = ledger.AccountRanges{
	Cash:    []string{"11"},
	Revenue: []string{"4"},
	Expense: []string{"5", "6"},
}

func history() *lt.Memory {
	return &lt.Memory{
		Entries: []ledger.HistoricalEntry{
			lt.Row("BKK-003", "2024-03-10", ledger.DirectionOut, "Pembelian kertas A4 PT Sinar", "1101", lt.Debit("6103", "500000")),
			lt.Row("BKK-002", "2024-02-10", ledger.DirectionOut, "Listrik PLN Februari", "1102", lt.Debit("6105", "800000")),
			lt.TaxedRow("BKK-001", "2024-01-10", ledger.DirectionOut, "Pembelian toner PT Sinar", "1101",
				lt.Debit("6103", "700000"), lt.Debit("1170", "77000"), lt.Debit("6104", "300000")),
			lt.Row("BKM-001", "2024-01-12", ledger.DirectionIn, "Penjualan kertas", "1101", lt.Credit("4101", "900000")),
		},
		Invoices: []ledger.Invoice{
			{Number: "INV-1", Counterparty: "PT Sinar", Date: lt.Date("2024-03-09"), Voucher: "BKK-003", ItemKeys: []string{"paper"}},
			{Number: "INV-0", Counterparty: "PT Sinar", Date: lt.Date("2024-01-09"), Voucher: "BKK-001", ItemKeys: []string{"paper", "toner"}},
			{Number: "INV-9", Counterparty: "PT Sinar", Date: lt.Date("2024-04-01"), ItemKeys: []string{"toner"}},
		},
		POItems: map[string][]string{"PO-77": {"paper", "toner"}},
		Journal: []ledger.JournalLine{
			{JournalID: "J1", Date: lt.Date("2023-05-01"), Account: "6201", Debit: lt.Amount("300"), Remark: "PT Sinar"},
			{JournalID: "J1", Date: lt.Date("2023-05-01"), Account: "1101", Debit: lt.Amount("999")},
			{JournalID: "J2", Date: lt.Date("2023-06-01"), Account: "6202", Debit: lt.Amount("700")},
			{JournalID: "J3", Date: lt.Date("2019-06-01"), Account: "6209", Debit: lt.Amount("99999")},
		},
		AccountList: []ledger.Account{
			{Code: "6199", Name: "Misc"}, {Code: "1101", Name: "Cash"}, {Code: "6101", Name: "Office"},
			{Code: "4101", Name: "Sales"}, {Code: "6102", Name: "Rent"},
		},
	}
}

func votes(r Result) map[string]float64 {
	out := map[string]float64{}
	if r.Evidence == nil {
		return out
	}
	for _, a := range r.Evidence.Votes.Accounts() {
		out[a] = r.Evidence.Votes.Score(a)
	}
	return out
}

func TestSourceDocumentSource(t *testing.T) {
	src := NewSourceDocumentSource(history(), 60)

	res := src.Retrieve(context.Background(), Query{Direction: ledger.DirectionOut, PONumber: "PO-77"})
	if !res.Usable() {
		t.Fatalf("Retrieve() status = %v, expected usable", res.Status)
	}
	expected := map[string]float64{"6103": 3, "6104": 2}
	if got := votes(res); !reflect.DeepEqual(got, expected) {
		t.Errorf("votes = %v, expected %v", got, expected)
	}
	if res.Evidence.Support != 2 {
		t.Errorf("Support = %d, expected 2", res.Evidence.Support)
	}

	if res := src.Retrieve(context.Background(), Query{Direction: ledger.DirectionOut}); res.Status != StatusEmpty {
		t.Errorf("without PO status = %v, expected empty", res.Status)
	}
}

func TestLinkedInvoiceSource(t *testing.T) {
	src := NewLinkedInvoiceSource(history(), 60)

	res := src.Retrieve(context.Background(), Query{Direction: ledger.DirectionOut, Counterparty: "pt sinar"})
	if !res.Usable() {
		t.Fatalf("Retrieve() status = %v, expected usable", res.Status)
	}
	expected := map[string]float64{"6103": 2, "6104": 1}
	if got := votes(res); !reflect.DeepEqual(got, expected) {
		t.Errorf("votes = %v, expected %v", got, expected)
	}
	if res.Evidence.Rows[0].Voucher != "BKK-003" {
		t.Errorf("first row = %s, expected most recent BKK-003", res.Evidence.Rows[0].Voucher)
	}
}

func TestLedgerTextSource(t *testing.T) {
	src := NewLedgerTextSource(history(), DefaultLimits())

	tests := []struct {
		name     string
		query    Query
		expected map[string]float64
	}{
		{
			name:     "strong token",
			query:    Query{Direction: ledger.DirectionOut, Tokens: textmatch.TokenizeWeighted("bayar (listrik) kantor")},
			expected: map[string]float64{"6105": 2},
		},
		{
			name:     "counterparty scoped",
			query:    Query{Direction: ledger.DirectionOut, Tokens: textmatch.TokenizeWeighted("kertas"), Counterparty: "PT Sinar"},
			expected: map[string]float64{"6103": 1},
		},
		{
			name:     "unknown counterparty falls back to all rows",
			query:    Query{Direction: ledger.DirectionOut, Tokens: textmatch.TokenizeWeighted("pembelian"), Counterparty: "CV Lain"},
			expected: map[string]float64{"6103": 2, "6104": 1},
		},
		{
			name:     "direction filter",
			query:    Query{Direction: ledger.DirectionIn, Tokens: textmatch.TokenizeWeighted("kertas")},
			expected: map[string]float64{"4101": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := votes(src.Retrieve(context.Background(), tt.query))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("votes = %v, expected %v", got, tt.expected)
			}
		})
	}

	if res := src.Retrieve(context.Background(), Query{Direction: ledger.DirectionOut}); res.Status != StatusEmpty {
		t.Errorf("no tokens status = %v, expected empty", res.Status)
	}
}

func TestLedgerTextSourceSparseEvidence(t *testing.T) {
	// Only "listrik" matches a row: one seventh of the request's token weight.
	wide := Query{Direction: ledger.DirectionOut, Tokens: textmatch.TokenizeWeighted("tagihan internet kantor bulanan listrik gedung")}
	if res := NewLedgerTextSource(history(), DefaultLimits()).Retrieve(context.Background(), wide); res.Status != StatusEmpty {
		t.Errorf("weak match status = %v, expected empty", res.Status)
	}

	best, attempts := NewCascade(history(), testRanges, Capabilities{Journal: true}, DefaultLimits(), nil).Run(context.Background(), wide)
	if best.Kind != KindJournalAggregate {
		t.Errorf("Run() kind = %s, expected the journal after sparse text", best.Kind)
	}
	if len(attempts) != 4 || attempts[2].Status != StatusEmpty {
		t.Errorf("attempts = %v, expected ledger text to report empty", attempts)
	}

	limits := DefaultLimits()
	limits.MinTextSupport = 2
	src := NewLedgerTextSource(history(), limits)
	one := Query{Direction: ledger.DirectionOut, Tokens: textmatch.TokenizeWeighted("listrik")}
	if res := src.Retrieve(context.Background(), one); res.Status != StatusEmpty {
		t.Errorf("single row status = %v, expected empty below the support minimum", res.Status)
	}
	two := Query{Direction: ledger.DirectionOut, Tokens: textmatch.TokenizeWeighted("pembelian")}
	if res := src.Retrieve(context.Background(), two); res.Status != StatusFound || res.Evidence.Support != 2 {
		t.Errorf("two rows status = %v, expected found with support 2", res.Status)
	}
}

func TestJournalAggregateSource(t *testing.T) {
	src := NewJournalAggregateSource(history(), testRanges, DefaultLimits())
	date := lt.Date("2024-06-01")

	res := src.Retrieve(context.Background(), Query{Direction: ledger.DirectionOut, Counterparty: "pt sinar", Date: date})
	if got := votes(res); !reflect.DeepEqual(got, map[string]float64{"6201": 300}) {
		t.Errorf("filtered votes = %v", got)
	}

	res = src.Retrieve(context.Background(), Query{Direction: ledger.DirectionOut, Counterparty: "nobody", Date: date})
	if got := votes(res); !reflect.DeepEqual(got, map[string]float64{"6202": 700, "6201": 300}) {
		t.Errorf("unfiltered votes = %v", got)
	}
	if got := ranking.Codes(ranking.Rank(res.Evidence.Votes, nil, ranking.DefaultOptions())); got[0] != "6202" {
		t.Errorf("top journal account = %v, expected 6202", got)
	}
}

func TestJournalAggregateSourceSkipsIneligibleAccounts(t *testing.T) {
	// 1170 is input tax and 2101 a payable; neither is an expense allocation.
	ranges := ledger.AccountRanges{Cash: []string{"110"}, Revenue: []string{"4"}, Expense: []string{"5", "6"}}
	mem := &lt.Memory{Journal: []ledger.JournalLine{
		{JournalID: "J1", Date: lt.Date("2024-04-01"), Account: "6101", Debit: lt.Amount("200")},
		{JournalID: "J1", Date: lt.Date("2024-04-01"), Account: "1170", Debit: lt.Amount("20")},
		{JournalID: "J1", Date: lt.Date("2024-04-01"), Account: "1101", Credit: lt.Amount("220")},
		{JournalID: "J2", Date: lt.Date("2024-04-02"), Account: "2101", Debit: lt.Amount("5000"), Remark: "PT Sinar"},
		{JournalID: "J2", Date: lt.Date("2024-04-02"), Account: "1101", Credit: lt.Amount("5000"), Remark: "PT Sinar"},
	}}
	src := NewJournalAggregateSource(mem, ranges, DefaultLimits())

	res := src.Retrieve(context.Background(), Query{Direction: ledger.DirectionOut, Counterparty: "pt sinar", Date: lt.Date("2024-05-01")})
	if got := votes(res); !reflect.DeepEqual(got, map[string]float64{"6101": 200}) {
		t.Errorf("votes = %v, expected only the expense account", got)
	}
	if res.Evidence.Support != 1 {
		t.Errorf("Support = %d, expected 1", res.Evidence.Support)
	}

	res = src.Retrieve(context.Background(), Query{Direction: ledger.DirectionIn, Date: lt.Date("2024-05-01")})
	if res.Status != StatusEmpty {
		t.Errorf("inbound status = %v, expected empty without revenue lines", res.Status)
	}
}

func TestChartSource(t *testing.T) {
	mem := history()
	src := NewChartSource(mem, testRanges)

	tests := []struct {
		name     string
		query    Query
		expected string
	}{
		{"lowest code without weights", Query{Direction: ledger.DirectionOut}, "6101"},
		{"largest usage weight", Query{Direction: ledger.DirectionOut, UsageWeights: map[string]float64{"6199": 10, "6102": 3, "1101": 99}}, "6199"},
		{"weight ties go to the lowest code", Query{Direction: ledger.DirectionOut, UsageWeights: map[string]float64{"6199": 5, "6102": 5}}, "6102"},
		{"revenue for inbound", Query{Direction: ledger.DirectionIn}, "4101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := src.Retrieve(context.Background(), tt.query)
			if !res.Usable() {
				t.Fatalf("status = %v, expected usable", res.Status)
			}
			if got := res.Evidence.Votes.Accounts()[0]; got != tt.expected {
				t.Errorf("chart account = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestSourcesFailSoft(t *testing.T) {
	boom := errors.New("no such table")
	mem := history()
	mem.Errors = map[string]error{
		"OverlappingInvoices": boom,
		"PostedInvoices":      boom,
		"SearchEntries":       boom,
		"JournalTotals":       boom,
		"Accounts":            boom,
	}
	q := Query{
		Direction:    ledger.DirectionOut,
		PONumber:     "PO-77",
		Counterparty: "PT Sinar",
		Tokens:       textmatch.TokenizeWeighted("kertas"),
	}

	best, attempts := NewCascade(mem, testRanges, AllCapabilities(), DefaultLimits(), nil).Run(context.Background(), q)
	if best.Usable() {
		t.Fatalf("Run() = %v, expected no usable result", best.Kind)
	}
	if len(attempts) != 5 {
		t.Fatalf("attempts = %d, expected 5", len(attempts))
	}
	for _, a := range attempts {
		if a.Status != StatusUnavailable || !errors.Is(a.Err, boom) {
			t.Errorf("%s: status %v err %v, expected unavailable with the read error", a.Kind, a.Status, a.Err)
		}
	}
}

func TestCascadeOrder(t *testing.T) {
	q := Query{
		Direction:    ledger.DirectionOut,
		PONumber:     "PO-77",
		Counterparty: "PT Sinar",
		Tokens:       textmatch.TokenizeWeighted("listrik"),
	}

	tests := []struct {
		name     string
		caps     Capabilities
		query    Query
		expected Kind
		statuses []Status
	}{
		{"source documents first", AllCapabilities(), q, KindSourceDocument, []Status{StatusFound}},
		{
			name:     "disabled sources are skipped as unavailable",
			caps:     Capabilities{Journal: true},
			query:    q,
			expected: KindLedgerText,
			statuses: []Status{StatusUnavailable, StatusUnavailable, StatusFound},
		},
		{
			name:     "falls through to the chart",
			caps:     Capabilities{},
			query:    Query{Direction: ledger.DirectionOut, Tokens: textmatch.TokenizeWeighted("zzz unknown")},
			expected: KindChart,
			statuses: []Status{StatusUnavailable, StatusUnavailable, StatusEmpty, StatusUnavailable, StatusFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, attempts := NewCascade(history(), testRanges, tt.caps, DefaultLimits(), nil).Run(context.Background(), tt.query)
			if best.Kind != tt.expected {
				t.Errorf("Run() kind = %s, expected %s", best.Kind, tt.expected)
			}
			got := make([]Status, len(attempts))
			for i, a := range attempts {
				got[i] = a.Status
			}
			if !reflect.DeepEqual(got, tt.statuses) {
				t.Errorf("attempt statuses = %v, expected %v", got, tt.statuses)
			}
		})
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	mem := history()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	best, attempts := NewCascade(mem, testRanges, AllCapabilities(), DefaultLimits(), nil).Run(ctx, Query{Direction: ledger.DirectionOut})
	if best.Usable() || len(attempts) != 0 {
		t.Errorf("Run(cancelled) = %v with %d attempts, expected nothing", best.Status, len(attempts))
	}
	if calls := mem.Calls(); len(calls) != 0 {
		t.Errorf("reader calls = %v, expected none", calls)
	}
}

func TestUsable(t *testing.T) {
	withVotes := &Evidence{Kind: KindChart, Votes: ranking.NewCounts()}
	withVotes.Votes.Add("6101", 1)

	tests := []struct {
		name     string
		result   Result
		expected bool
	}{
		{"found with votes", Result{Status: StatusFound, Evidence: withVotes}, true},
		{"found without evidence", Result{Status: StatusFound}, false},
		{"found with no votes", Result{Status: StatusFound, Evidence: &Evidence{Votes: ranking.NewCounts()}}, false},
		{"empty", Result{Status: StatusEmpty, Evidence: withVotes}, false},
		{"unavailable", Result{Status: StatusUnavailable}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Usable(); got != tt.expected {
				t.Errorf("Usable() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
