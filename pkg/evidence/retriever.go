package evidence

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// Retriever runs sources in order and stops at the first usable result.
type Retriever struct {
	sources []Source
	logger  *slog.Logger
}

// NewRetriever creates a Retriever over the given sources, in priority order.
func NewRetriever(logger *slog.Logger, sources ...Source) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{sources: sources, logger: logger}
}

// NewCascade builds the standard five-step cascade. Sources switched off in caps stay in
// place and report StatusUnavailable.
func NewCascade(reader ledger.Reader, ranges ledger.AccountRanges, caps Capabilities, limits Limits, logger *slog.Logger) *Retriever {
	limits = limits.orDefaults()

	var sources []Source
	if caps.SourceDocuments {
		sources = append(sources, NewSourceDocumentSource(reader, limits.Overlap))
	} else {
		sources = append(sources, disabledSource{kind: KindSourceDocument})
	}
	if caps.LinkedInvoices {
		sources = append(sources, NewLinkedInvoiceSource(reader, limits.LinkedInvoices))
	} else {
		sources = append(sources, disabledSource{kind: KindLinkedInvoice})
	}
	sources = append(sources, NewLedgerTextSource(reader, limits))
	if caps.Journal {
		sources = append(sources, NewJournalAggregateSource(reader, ranges, limits))
	} else {
		sources = append(sources, disabledSource{kind: KindJournalAggregate})
	}
	sources = append(sources, NewChartSource(reader, ranges))

	return NewRetriever(logger, sources...)
}

// Run returns the first usable result and every attempt made, in order. When no source is
// usable the returned result has StatusEmpty. A cancelled context stops the cascade.
func (r *Retriever) Run(ctx context.Context, q Query) (Result, []Result) {
	attempts := make([]Result, 0, len(r.sources))
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return unavailable(src.Kind(), err), attempts
		}

		res := src.Retrieve(ctx, q)
		attempts = append(attempts, res)

		if res.Err != nil && !errors.Is(res.Err, ErrUnavailable) {
			r.logger.Warn("evidence source failed", "source", res.Kind, "error", res.Err)
		}
		if res.Usable() {
			r.logger.Debug("evidence source selected", "source", res.Kind, "support", res.Evidence.Support)
			return res, attempts
		}
		r.logger.Debug("evidence source skipped", "source", res.Kind, "status", res.Status)
	}
	return Result{Status: StatusEmpty}, attempts
}
