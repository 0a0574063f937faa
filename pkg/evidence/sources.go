package evidence

import (
	"context"
	"strings"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ranking"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/textmatch"
)

// SourceDocumentSource votes for the accounts of vouchers whose invoices share line-item
// keys with the request's purchase order, weighted by the overlap count.
type SourceDocumentSource struct {
	reader ledger.Reader
	limit  int
}

func NewSourceDocumentSource(reader ledger.Reader, limit int) *SourceDocumentSource {
	return &SourceDocumentSource{reader: reader, limit: limit}
}

func (s *SourceDocumentSource) Kind() Kind { return KindSourceDocument }

func (s *SourceDocumentSource) Retrieve(ctx context.Context, q Query) Result {
	po := strings.TrimSpace(q.PONumber)
	if po == "" {
		return empty(s.Kind())
	}

	overlaps, err := s.reader.OverlappingInvoices(ctx, po, s.limit)
	if err != nil {
		return unavailable(s.Kind(), err)
	}
	if len(overlaps) == 0 {
		return empty(s.Kind())
	}

	weight := make(map[string]int, len(overlaps))
	vouchers := make([]string, 0, len(overlaps))
	for _, o := range overlaps {
		if o.Voucher == "" || o.Overlap <= 0 {
			continue
		}
		if _, ok := weight[o.Voucher]; !ok {
			vouchers = append(vouchers, o.Voucher)
		}
		weight[o.Voucher] += o.Overlap
	}
	if len(vouchers) == 0 {
		return empty(s.Kind())
	}

	rows, err := s.reader.EntriesByVouchers(ctx, vouchers)
	if err != nil {
		return unavailable(s.Kind(), err)
	}

	ev := &Evidence{Kind: s.Kind(), Votes: ranking.NewCounts()}
	for _, row := range rows {
		if !sameDirection(row, q.Direction) {
			continue
		}
		w := float64(weight[row.Voucher])
		if w == 0 {
			continue
		}
		voteLines(ev.Votes, row, w)
		ev.Rows = append(ev.Rows, row)
	}
	ev.Support = len(ev.Rows)
	return found(ev)
}

// LinkedInvoiceSource pulls the ledger rows of the counterparty's invoices that were
// already posted.
type LinkedInvoiceSource struct {
	reader ledger.Reader
	limit  int
}

func NewLinkedInvoiceSource(reader ledger.Reader, limit int) *LinkedInvoiceSource {
	return &LinkedInvoiceSource{reader: reader, limit: limit}
}

func (s *LinkedInvoiceSource) Kind() Kind { return KindLinkedInvoice }

func (s *LinkedInvoiceSource) Retrieve(ctx context.Context, q Query) Result {
	counterparty := strings.TrimSpace(q.Counterparty)
	if counterparty == "" {
		return empty(s.Kind())
	}

	invoices, err := s.reader.PostedInvoices(ctx, counterparty, s.limit)
	if err != nil {
		return unavailable(s.Kind(), err)
	}

	seen := make(map[string]struct{}, len(invoices))
	var vouchers []string
	for _, inv := range invoices {
		if inv.Voucher == "" {
			continue
		}
		if _, ok := seen[inv.Voucher]; ok {
			continue
		}
		seen[inv.Voucher] = struct{}{}
		vouchers = append(vouchers, inv.Voucher)
	}
	if len(vouchers) == 0 {
		return empty(s.Kind())
	}

	rows, err := s.reader.EntriesByVouchers(ctx, vouchers)
	if err != nil {
		return unavailable(s.Kind(), err)
	}

	ev := &Evidence{Kind: s.Kind(), Votes: ranking.NewCounts()}
	for _, row := range rows {
		if !sameDirection(row, q.Direction) {
			continue
		}
		voteLines(ev.Votes, row, 1)
		ev.Rows = append(ev.Rows, row)
	}
	ev.Support = len(ev.Rows)
	return found(ev)
}

// LedgerTextSource matches ledger descriptions against the request tokens. Each row votes
// for its line accounts with its text score. Rows covering too little of the request are
// ignored, and too few matching rows count as no evidence.
type LedgerTextSource struct {
	reader ledger.Reader
	limits Limits
}

func NewLedgerTextSource(reader ledger.Reader, limits Limits) *LedgerTextSource {
	return &LedgerTextSource{reader: reader, limits: limits.orDefaults()}
}

func (s *LedgerTextSource) Kind() Kind { return KindLedgerText }

func (s *LedgerTextSource) Retrieve(ctx context.Context, q Query) Result {
	if len(q.Tokens) == 0 {
		return empty(s.Kind())
	}
	search := ledger.EntrySearch{
		Direction: q.Direction,
		Terms:     textmatch.Terms(q.Tokens, s.limits.Terms),
		Limit:     s.limits.Text,
	}

	if counterparty := strings.TrimSpace(q.Counterparty); counterparty != "" {
		scoped := search
		scoped.Counterparty = counterparty
		scoped.Limit = s.limits.TextWithCounterparty
		res := s.search(ctx, scoped, q)
		if res.Status != StatusEmpty {
			return res
		}
	}
	return s.search(ctx, search, q)
}

func (s *LedgerTextSource) search(ctx context.Context, search ledger.EntrySearch, q Query) Result {
	rows, err := s.reader.SearchEntries(ctx, search)
	if err != nil {
		return unavailable(s.Kind(), err)
	}

	minScore := s.limits.MinTextCoverage * totalWeight(q.Tokens)
	ev := &Evidence{Kind: s.Kind(), Votes: ranking.NewCounts()}
	for _, row := range rows {
		score := textmatch.Score(row.Description, q.Tokens)
		if score == 0 || score < minScore {
			continue
		}
		voteLines(ev.Votes, row, score)
		ev.Rows = append(ev.Rows, row)
	}
	ev.Support = len(ev.Rows)
	if ev.Support < s.limits.MinTextSupport {
		return empty(s.Kind())
	}
	return found(ev)
}

// JournalAggregateSource aggregates general journal totals per account over a trailing
// window, first filtered by the counterparty remark and then unfiltered.
type JournalAggregateSource struct {
	reader ledger.Reader
	ranges ledger.AccountRanges
	limits Limits
}

func NewJournalAggregateSource(reader ledger.Reader, ranges ledger.AccountRanges, limits Limits) *JournalAggregateSource {
	return &JournalAggregateSource{reader: reader, ranges: ranges, limits: limits.orDefaults()}
}

func (s *JournalAggregateSource) Kind() Kind { return KindJournalAggregate }

func (s *JournalAggregateSource) Retrieve(ctx context.Context, q Query) Result {
	query := ledger.JournalTotalsQuery{
		Side:            ledger.LineType(q.Direction),
		ExcludePrefixes: s.ranges.Cash,
		Limit:           s.limits.Journal,
	}
	if !q.Date.IsZero() {
		query.Since = q.Date.AddDate(-s.limits.JournalYears, 0, 0)
	}

	if counterparty := strings.TrimSpace(q.Counterparty); counterparty != "" {
		filtered := query
		filtered.Remark = counterparty
		totals, err := s.reader.JournalTotals(ctx, filtered)
		if err != nil {
			return unavailable(s.Kind(), err)
		}
		if res := found(s.aggregate(totals, q.Direction)); res.Status == StatusFound {
			return res
		}
	}

	totals, err := s.reader.JournalTotals(ctx, query)
	if err != nil {
		return unavailable(s.Kind(), err)
	}
	return found(s.aggregate(totals, q.Direction))
}

// aggregate votes for the totals of accounts eligible for direction d. Tax, payable and
// other balance-sheet lines of the same journals never become allocation candidates.
func (s *JournalAggregateSource) aggregate(totals []ledger.AccountTotal, d ledger.Direction) *Evidence {
	ev := &Evidence{Kind: s.Kind(), Votes: ranking.NewCounts()}
	for _, t := range totals {
		if !s.ranges.Eligible(d, t.Account) || !t.Total.IsPositive() {
			continue
		}
		ev.Votes.Add(t.Account, t.Total.InexactFloat64())
		ev.Support += t.Lines
	}
	return ev
}

// ChartSource picks the single eligible chart account with the largest usage weight; ties
// go to the lowest code.
type ChartSource struct {
	reader ledger.Reader
	ranges ledger.AccountRanges
}

func NewChartSource(reader ledger.Reader, ranges ledger.AccountRanges) *ChartSource {
	return &ChartSource{reader: reader, ranges: ranges}
}

func (s *ChartSource) Kind() Kind { return KindChart }

func (s *ChartSource) Retrieve(ctx context.Context, q Query) Result {
	accounts, err := s.reader.Accounts(ctx)
	if err != nil {
		return unavailable(s.Kind(), err)
	}

	best, bestWeight := "", -1.0
	for _, a := range accounts {
		code := strings.TrimSpace(a.Code)
		if !s.ranges.Eligible(q.Direction, code) {
			continue
		}
		w := q.UsageWeights[code]
		if w > bestWeight || (w == bestWeight && code < best) {
			best, bestWeight = code, w
		}
	}
	if best == "" {
		return empty(s.Kind())
	}

	ev := &Evidence{Kind: s.Kind(), Votes: ranking.NewCounts(), Support: 1}
	ev.Votes.Add(best, 1)
	return found(ev)
}

type disabledSource struct {
	kind Kind
}

func (s disabledSource) Kind() Kind { return s.kind }

func (s disabledSource) Retrieve(context.Context, Query) Result {
	return unavailable(s.kind, ErrUnavailable)
}

func totalWeight(tokens []textmatch.WeightedToken) float64 {
	var sum float64
	for _, t := range tokens {
		sum += t.Weight
	}
	return sum
}

func voteLines(votes *ranking.Counts, row ledger.HistoricalEntry, weight float64) {
	for _, slot := range row.LineSlots() {
		votes.Add(slot.Account, weight)
	}
}

func sameDirection(row ledger.HistoricalEntry, d ledger.Direction) bool {
	return row.Direction == "" || d == "" || row.Direction == d
}
