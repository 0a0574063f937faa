package suggest

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/evidence"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/textmatch"
)

// Source names where the allocation lines of a suggestion came from.
type Source string

const (
	SourceSourceDocument   = Source(evidence.KindSourceDocument)
	SourceLinkedInvoice    = Source(evidence.KindLinkedInvoice)
	SourceLedgerText       = Source(evidence.KindLedgerText)
	SourceJournalAggregate = Source(evidence.KindJournalAggregate)
	SourceChart            = Source(evidence.KindChart)
	SourceSeed             = Source("seed")
	SourceHeuristic        = Source("heuristic")
	SourceFallback         = Source("fallback")
)

// SupportSaturation is the number of corroborating rows past which support stops adding
// confidence.
const SupportSaturation = 10

var baseConfidence = map[Source]float64{
	SourceSourceDocument:   0.9,
	SourceLinkedInvoice:    0.8,
	SourceLedgerText:       0.65,
	SourceJournalAggregate: 0.4,
	SourceSeed:             0.5,
	SourceChart:            0.15,
	SourceFallback:         0.05,
}

// Confidence scores a suggestion from the specificity of its source, the number of rows
// backing it and how closely the request text resembles the best historical description.
// The result is always within [0, 1].
func Confidence(src Source, support int, similarity float64) float64 {
	base := baseConfidence[src]
	s := float64(min(max(support, 0), SupportSaturation)) / SupportSaturation
	sim := clamp(similarity)
	return clamp(base * (0.6 + 0.25*s + 0.15*sim))
}

// Similarity returns the best normalized edit-distance similarity between text and any
// candidate, in [0, 1]. Texts are compared by their distinct content words, so stopwords
// and short fragments do not count as edits. Blank text yields 0.
func Similarity(text string, candidates []string) float64 {
	a := []rune(similarityKey(text))
	if len(a) == 0 {
		return 0
	}
	best := 0.0
	for _, c := range candidates {
		b := []rune(similarityKey(c))
		if len(b) == 0 {
			continue
		}
		d := levenshtein.ComputeDistance(string(a), string(b))
		if s := 1 - float64(d)/float64(max(len(a), len(b))); s > best {
			best = s
		}
	}
	return clamp(best)
}

// similarityKey is the content words of text, or its normalized form when it has none.
func similarityKey(text string) string {
	if words := textmatch.Tokenize(text); len(words) > 0 {
		return strings.Join(words, " ")
	}
	return textmatch.Normalize(text)
}

func clamp(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
