// Package suggest assembles accounting entry suggestions from historical evidence.
package suggest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/allocation"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/describe"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/evidence"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ranking"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/rules"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/textmatch"
)

// Heuristic is a cheap first opinion consulted before the historical engine's result is
// accepted.
type Heuristic interface {
	Match(d ledger.Direction, description, counterparty string) (account string, confidence float64, ok bool)
}

// Engine builds suggestions. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	reader    ledger.Reader
	chart     *rules.Chart
	cfg       Config
	tokenizer *textmatch.Tokenizer
	retriever *evidence.Retriever
	heuristic Heuristic
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHeuristic enables the override gate with h as the first opinion.
func WithHeuristic(h Heuristic) Option {
	return func(e *Engine) { e.heuristic = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used when a request carries no date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine reading history from reader. A nil chart uses rules.DefaultChart.
func New(reader ledger.Reader, chart *rules.Chart, cfg Config, opts ...Option) *Engine {
	if chart == nil {
		chart = rules.DefaultChart()
	}
	e := &Engine{
		reader: reader,
		chart:  chart,
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tokenizer = textmatch.New(textmatch.Options{StrongWeight: e.cfg.StrongWeight, MaxTokens: e.cfg.MaxTokens})
	e.retriever = evidence.NewCascade(reader, chart.Prefixes, e.cfg.Capabilities, e.cfg.Limits, e.logger)
	return e
}

// Suggest proposes an entry for req. It returns an error only for a malformed request;
// missing history, failing sources and an exceeded timeout all degrade to a lower
// confidence or fully defaulted suggestion.
func (e *Engine) Suggest(ctx context.Context, req Request) (Suggestion, error) {
	if err := req.Validate(); err != nil {
		return Suggestion{}, err
	}
	req = req.trimmed()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	done := make(chan Suggestion, 1)
	go func() {
		done <- e.build(ctx, req)
	}()

	select {
	case s := <-done:
		if err := ctx.Err(); err != nil {
			e.logger.Warn("suggestion interrupted, using fallback", "error", err)
			return e.fallback(req), nil
		}
		return s, nil
	case <-ctx.Done():
		e.logger.Warn("suggestion timed out, using fallback", "timeout", e.cfg.Timeout, "error", ctx.Err())
		return e.fallback(req), nil
	}
}

func (e *Engine) build(ctx context.Context, req Request) Suggestion {
	date := req.Date
	if date.IsZero() {
		date = e.now()
	}
	static := e.usageWeights(ctx)

	res, attempts := e.retriever.Run(ctx, evidence.Query{
		Direction:    req.Direction,
		Tokens:       e.tokenizer.TokenizeWeighted(req.Description),
		Counterparty: req.Counterparty,
		PONumber:     req.PONumber,
		Date:         date,
		UsageWeights: static,
	})

	s := Suggestion{
		Direction: req.Direction,
		Target:    req.Target(),
		TaxAmount: req.Tax(),
		Source:    SourceFallback,
		Attempts:  attemptsOf(attempts),
	}

	votes := ranking.NewCounts()
	var rows []ledger.HistoricalEntry
	support := 0
	if res.Usable() {
		votes = res.Evidence.Votes
		rows = res.Evidence.Rows
		support = res.Evidence.Support
		s.Source = Source(res.Kind)
	}
	// Chart evidence is a guess; a seed without real history stands alone.
	if req.SeedAccount != "" && (!res.Usable() || res.Kind == evidence.KindChart) {
		votes = ranking.NewCounts()
		support = 0
		s.Source = SourceSeed
	}

	s.Ranked = ranking.Rank(votes, static, ranking.Options{
		Seed:        req.SeedAccount,
		StaticBonus: e.cfg.StaticBonus,
		SeedBonus:   e.cfg.SeedBonus,
		Limit:       e.cfg.RankLimit,
	})
	s.Lines = e.allocate(req, s.Ranked, rows)

	s.CashAccount, s.TaxAccount = e.resolveCashAndTax(ctx, req, rows)
	s.VoucherSeries = majority(rows, func(r ledger.HistoricalEntry) string { return r.Series() })

	candidates := descriptions(rows)
	s.Description = e.describe(req, candidates)
	s.Confidence = Confidence(s.Source, support, Similarity(req.Description, candidates))

	if e.heuristic != nil && req.SeedAccount == "" {
		e.applyGate(&s, req)
	}

	e.fillBlanks(&s)

	if n := min(len(rows), e.cfg.EvidenceSample); n > 0 {
		s.Evidence = append([]ledger.HistoricalEntry(nil), rows[:n]...)
	}

	e.logger.Debug("suggestion built",
		"source", s.Source,
		"confidence", s.Confidence,
		"lines", len(s.Lines),
		"overridden", s.Overridden,
	)
	return s
}

func (e *Engine) usageWeights(ctx context.Context) map[string]float64 {
	if !e.cfg.Capabilities.UsageWeights {
		return nil
	}
	w, err := e.reader.UsageWeights(ctx, e.cfg.UsagePeriods)
	if err != nil {
		e.logger.Warn("usage weights unavailable", "error", err)
		return nil
	}
	return w
}

// allocate splits the target over the top ranked accounts. The line count follows the
// most common historical line count, capped by the free slots.
func (e *Engine) allocate(req Request, ranked []ranking.Ranked, rows []ledger.HistoricalEntry) []ledger.Line {
	n := min(lineCount(rows), allocation.Cap(req.Tax()), len(ranked))
	if n == 0 {
		return nil
	}
	accounts := ranking.Codes(ranked[:n])

	var ratios allocation.Ratios
	if req.Tax().IsPositive() && n > 1 {
		ratios = allocation.LearnRatios(rows, accounts)
	}
	return toLines(allocation.Allocate(req.Target(), accounts, ratios), req.Direction)
}

func toLines(shares []allocation.Share, d ledger.Direction) []ledger.Line {
	if len(shares) == 0 {
		return nil
	}
	lines := make([]ledger.Line, len(shares))
	for i, sh := range shares {
		lines[i] = ledger.Line{Account: sh.Account, Type: ledger.LineType(d), Amount: sh.Amount}
	}
	return lines
}

// lineCount is the modal number of allocation lines across rows, smaller count on ties,
// and 1 without rows.
func lineCount(rows []ledger.HistoricalEntry) int {
	freq := make(map[int]int)
	for _, r := range rows {
		if n := len(r.LineSlots()); n > 0 {
			freq[n]++
		}
	}
	best, bestFreq := 1, 0
	for n := 1; n <= ledger.SlotCount; n++ {
		if freq[n] > bestFreq {
			best, bestFreq = n, freq[n]
		}
	}
	return best
}

// resolveCashAndTax looks up the cash and tax accounts concurrently. Both prefer the
// evidence rows, then the counterparty's history, then all history.
func (e *Engine) resolveCashAndTax(ctx context.Context, req Request, rows []ledger.HistoricalEntry) (string, string) {
	var cash, tax string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if cash = majority(rows, func(r ledger.HistoricalEntry) string { return r.CashAccount }); cash != "" {
			return nil
		}
		var err error
		cash, err = e.mostUsed(gctx, req.Counterparty, func(ctx context.Context, cp string) ([]ledger.AccountCount, error) {
			return e.reader.CashAccountCounts(ctx, req.Direction, cp)
		})
		return err
	})

	if req.Tax().IsPositive() {
		g.Go(func() error {
			if tax = majority(rows, func(r ledger.HistoricalEntry) string { return r.TaxAccount() }); tax != "" {
				return nil
			}
			var err error
			tax, err = e.mostUsed(gctx, req.Counterparty, e.reader.TaxAccountCounts)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Warn("account history lookup interrupted", "error", err)
	}
	return cash, tax
}

// mostUsed returns the top account for the counterparty, then across all history. Read
// failures are skipped; only a done context is returned as an error.
func (e *Engine) mostUsed(ctx context.Context, counterparty string, lookup func(context.Context, string) ([]ledger.AccountCount, error)) (string, error) {
	scopes := []string{""}
	if counterparty != "" {
		scopes = []string{counterparty, ""}
	}
	for _, cp := range scopes {
		counts, err := lookup(ctx, cp)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			e.logger.Warn("account history unavailable", "counterparty", cp, "error", err)
			continue
		}
		for _, c := range counts {
			if c.Account != "" && c.Count > 0 {
				return c.Account, nil
			}
		}
	}
	return "", nil
}

// majority returns the most frequent non-blank key across rows; ties go to the key seen
// first, which is the most recent row.
func majority(rows []ledger.HistoricalEntry, key func(ledger.HistoricalEntry) string) string {
	counts := ranking.NewCounts()
	for _, r := range rows {
		counts.Add(key(r), 1)
	}
	top := ranking.Rank(counts, nil, ranking.Options{Limit: 1})
	if len(top) == 0 {
		return ""
	}
	return top[0].Account
}

func descriptions(rows []ledger.HistoricalEntry) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Description)
	}
	return out
}

func (e *Engine) describe(req Request, candidates []string) string {
	keys := describe.Keys{
		Counterparty: req.Counterparty,
		DocumentRefs: []string{req.PONumber, req.InvoiceNumber},
		Keywords:     describe.DomainKeywords(req.Direction),
	}
	template := req.Description
	if best, score := describe.Select(candidates, keys); score >= 0 {
		template = describe.Templatize(best)
	}
	return describe.Render(template, describeContext(req))
}

func describeContext(req Request) describe.Context {
	return describe.Context{
		Direction:    req.Direction,
		Invoice:      req.InvoiceNumber,
		PO:           req.PONumber,
		Counterparty: req.Counterparty,
	}
}

// applyGate lets the engine's lines override the heuristic's account only when the engine
// is confident enough, or when the heuristic has no opinion.
func (e *Engine) applyGate(s *Suggestion, req Request) {
	account, conf, ok := e.heuristic.Match(req.Direction, req.Description, req.Counterparty)
	if !ok || account == "" {
		return
	}
	if s.Confidence >= e.cfg.OverrideThreshold {
		s.Overridden = true
		return
	}
	e.logger.Debug("keeping first opinion", "account", account, "engine_confidence", s.Confidence)
	s.Lines = toLines(allocation.Allocate(s.Target, []string{account}, nil), req.Direction)
	s.Confidence = clamp(conf)
	s.Source = SourceHeuristic
}

// fillBlanks substitutes chart defaults for every required field left blank.
func (e *Engine) fillBlanks(s *Suggestion) {
	blank := len(s.Lines) == 0 && s.Target.IsPositive()
	for _, l := range s.Lines {
		if l.Account == "" {
			blank = true
		}
	}
	if blank {
		account := e.chart.DefaultAccount(s.Direction)
		s.Lines = toLines(allocation.Allocate(s.Target, []string{account}, nil), s.Direction)
		s.Source = SourceFallback
		s.Confidence = min(s.Confidence, Confidence(SourceFallback, 0, 0))
	}
	if s.CashAccount == "" {
		s.CashAccount = e.chart.DefaultCashAccount()
	}
	if s.VoucherSeries == "" {
		s.VoucherSeries = e.chart.DefaultSeries(s.Direction)
	}
	if s.TaxAmount.IsPositive() && s.TaxAccount == "" {
		s.TaxAccount = e.chart.DefaultTaxAccount(s.Direction)
	}
}

// fallback is the suggestion returned when the pipeline cannot finish in time.
func (e *Engine) fallback(req Request) Suggestion {
	s := Suggestion{
		Direction:   req.Direction,
		Target:      req.Target(),
		TaxAmount:   req.Tax(),
		Description: describe.Render(req.Description, describeContext(req)),
		Source:      SourceFallback,
		Confidence:  Confidence(SourceFallback, 0, 0),
	}
	e.fillBlanks(&s)
	return s
}

func attemptsOf(results []evidence.Result) []Attempt {
	out := make([]Attempt, len(results))
	for i, r := range results {
		out[i] = Attempt{Source: r.Kind, Status: r.Status.String()}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}
