// Package evidence retrieves historical support for a pending transaction from an ordered
// cascade of sources, most specific first.
package evidence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ranking"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/textmatch"
)

// Kind identifies an evidence source.
type Kind string

const (
	KindSourceDocument   Kind = "source_document"
	KindLinkedInvoice    Kind = "linked_invoice"
	KindLedgerText       Kind = "ledger_text"
	KindJournalAggregate Kind = "journal_aggregate"
	KindChart            Kind = "chart"
)

// Status distinguishes a source that could not run from one that ran and found nothing.
type Status int

const (
	StatusUnavailable Status = iota
	StatusEmpty
	StatusFound
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusFound:
		return "found"
	default:
		return "unavailable"
	}
}

// ErrUnavailable is recorded on results of sources disabled by capability flags.
var ErrUnavailable = errors.New("evidence source unavailable")

// Evidence is what a source found: the sample rows behind it (recency ordered, nil for
// aggregate sources) and the per-account votes derived from them.
type Evidence struct {
	Kind    Kind                     `json:"kind"`
	Rows    []ledger.HistoricalEntry `json:"rows,omitempty"`
	Votes   *ranking.Counts          `json:"-"`
	Support int                      `json:"support"`
}

// Result is the outcome of one source. Evidence is set only when Status is StatusFound.
type Result struct {
	Kind     Kind
	Status   Status
	Evidence *Evidence
	Err      error
}

// Usable reports whether the result has at least one candidate account and no blank one.
func (r Result) Usable() bool {
	if r.Status != StatusFound || r.Evidence == nil || r.Evidence.Votes.Len() == 0 {
		return false
	}
	for _, account := range r.Evidence.Votes.Accounts() {
		if strings.TrimSpace(account) == "" {
			return false
		}
	}
	return true
}

func unavailable(kind Kind, err error) Result {
	return Result{Kind: kind, Status: StatusUnavailable, Err: err}
}

func empty(kind Kind) Result {
	return Result{Kind: kind, Status: StatusEmpty}
}

func found(e *Evidence) Result {
	if e.Votes.Len() == 0 {
		return empty(e.Kind)
	}
	return Result{Kind: e.Kind, Status: StatusFound, Evidence: e}
}

// Query is the request-derived input every source reads.
type Query struct {
	Direction    ledger.Direction
	Tokens       []textmatch.WeightedToken
	Counterparty string
	PONumber     string
	Date         time.Time
	UsageWeights map[string]float64
}

// Source is one step of the cascade. Retrieve never returns an error: failures are
// reported as StatusUnavailable with Err set.
type Source interface {
	Kind() Kind
	Retrieve(ctx context.Context, q Query) Result
}

// Capabilities declares which collaborator tables exist, replacing live schema probing.
type Capabilities struct {
	SourceDocuments bool `mapstructure:"source_documents"`
	LinkedInvoices  bool `mapstructure:"linked_invoices"`
	Journal         bool `mapstructure:"journal"`
	UsageWeights    bool `mapstructure:"usage_weights"`
}

// AllCapabilities enables every source.
func AllCapabilities() Capabilities {
	return Capabilities{SourceDocuments: true, LinkedInvoices: true, Journal: true, UsageWeights: true}
}

// Limits bounds the rows each source reads.
type Limits struct {
	Overlap              int `mapstructure:"overlap"`
	LinkedInvoices       int `mapstructure:"linked_invoices"`
	TextWithCounterparty int `mapstructure:"text_with_counterparty"`
	Text                 int `mapstructure:"text"`
	Terms                int `mapstructure:"terms"`
	Journal              int `mapstructure:"journal"`
	JournalYears         int `mapstructure:"journal_years"`

	// MinTextCoverage is the share of the request's token weight a description must match
	// for its row to count as text evidence.
	MinTextCoverage float64 `mapstructure:"min_text_coverage"`
	// MinTextSupport is the number of matching rows below which text evidence is too
	// sparse and the cascade moves on.
	MinTextSupport  int     `mapstructure:"min_text_support"`
}

// DefaultLimits returns the row limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		Overlap:              60,
		LinkedInvoices:       60,
		TextWithCounterparty: 120,
		Text:                 220,
		Terms:                6,
		Journal:              60,
		JournalYears:         3,
		MinTextCoverage:      0.3,
		MinTextSupport:       1,
	}
}

func (l Limits) orDefaults() Limits {
	d := DefaultLimits()
	if l.Overlap <= 0 {
		l.Overlap = d.Overlap
	}
	if l.LinkedInvoices <= 0 {
		l.LinkedInvoices = d.LinkedInvoices
	}
	if l.TextWithCounterparty <= 0 {
		l.TextWithCounterparty = d.TextWithCounterparty
	}
	if l.Text <= 0 {
		l.Text = d.Text
	}
	if l.Terms <= 0 {
		l.Terms = d.Terms
	}
	if l.Journal <= 0 {
		l.Journal = d.Journal
	}
	if l.JournalYears <= 0 {
		l.JournalYears = d.JournalYears
	}
	if l.MinTextCoverage <= 0 || l.MinTextCoverage > 1 {
		l.MinTextCoverage = d.MinTextCoverage
	}
	if l.MinTextSupport <= 0 {
		l.MinTextSupport = d.MinTextSupport
	}
	return l
}
