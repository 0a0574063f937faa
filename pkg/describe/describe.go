// Package describe turns the best matching historical description into a reusable
// template and renders it for a new transaction.
package describe

import (
	"regexp"
	"strings"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// Placeholders substituted by Render.
const (
	PlaceholderInvoice = "{INV}"
	PlaceholderPO      = "{PO}"
	PlaceholderNumber  = "{#}"
)

var (
	poPattern      = regexp.MustCompile(`(?i)\b(?:[a-z]{2,4}[-/])?(?:po|pr)[\s\-/.:#]*\d(?:[\w\-/.]*\w)?`)
	invoicePattern = regexp.MustCompile(`(?i)\b(?:[a-z]{2,4}[-/])?(?:invoice|inv|faktur|fi|fk)[\s\-/.:#]*\d(?:[\w\-/.]*\w)?`)
	numberPattern  = regexp.MustCompile(`\b\d{5,}\b`)
	placeholders   = regexp.MustCompile(`\{(?:INV|PO|#)\}`)
)

// Templatize collapses whitespace and replaces document numbers with placeholders:
// purchase-order references become {PO}, invoice-style references {INV}, and any
// remaining run of five or more digits {#}.
func Templatize(text string) string {
	t := strings.Join(strings.Fields(text), " ")
	t = poPattern.ReplaceAllString(t, PlaceholderPO)
	t = invoicePattern.ReplaceAllString(t, PlaceholderInvoice)
	t = numberPattern.ReplaceAllString(t, PlaceholderNumber)
	return t
}

// FindPO returns the first purchase-order reference in text, or "".
func FindPO(text string) string {
	return strings.TrimSpace(poPattern.FindString(text))
}

// Keys are the live request attributes a historical description is scored against.
type Keys struct {
	Counterparty string
	DocumentRefs []string
	Keywords     []string
}

// Score rates one historical description: +3 when it names the counterparty, +3 when it
// carries one of the document references, +1 when it has a domain keyword.
func (k Keys) Score(description string) int {
	text := strings.ToLower(description)
	score := 0
	if c := strings.ToLower(strings.TrimSpace(k.Counterparty)); c != "" && strings.Contains(text, c) {
		score += 3
	}
	for _, ref := range k.DocumentRefs {
		if r := strings.ToLower(strings.TrimSpace(ref)); r != "" && strings.Contains(text, r) {
			score += 3
			break
		}
	}
	for _, kw := range k.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			score++
			break
		}
	}
	return score
}

// Select returns the highest scoring non-blank candidate and its score. Candidates are
// expected most recent first; ties keep the earlier one. It returns -1 when every
// candidate is blank.
func Select(candidates []string, keys Keys) (string, int) {
	best, bestScore := "", -1
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if s := keys.Score(c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

// DomainKeywords returns the generic words that mark a description as belonging to the
// direction's domain.
func DomainKeywords(d ledger.Direction) []string {
	switch d {
	case ledger.DirectionIn:
		return []string{"sale", "sales", "penjualan", "jual", "receipt"}
	case ledger.DirectionTransfer:
		return []string{"transfer", "pindah", "mutasi"}
	default:
		return []string{"purchase", "pembelian", "beli", "payment"}
	}
}

// Context carries the live values Render substitutes.
type Context struct {
	Direction    ledger.Direction
	Invoice      string
	PO           string
	Counterparty string
}

// DocumentNumber is the number the rendered text must always carry.
func (c Context) DocumentNumber() string {
	if c.Invoice != "" {
		return c.Invoice
	}
	return c.PO
}

func (c Context) domain() string {
	switch c.Direction {
	case ledger.DirectionIn:
		return "Sale"
	case ledger.DirectionTransfer:
		return "Transfer"
	default:
		return "Purchase"
	}
}

func (c Context) docType() string {
	switch {
	case c.Invoice != "":
		return "Invoice"
	case c.PO != "":
		return "PO"
	default:
		return "Entry"
	}
}

// Default synthesizes "<Domain>/<DocType> <doc-no> — <counterparty> (PO <po-no>)",
// leaving out the parts the context does not have.
func Default(c Context) string {
	var sb strings.Builder
	sb.WriteString(c.domain())
	sb.WriteString("/")
	sb.WriteString(c.docType())
	if doc := c.DocumentNumber(); doc != "" {
		sb.WriteString(" ")
		sb.WriteString(doc)
	}
	if cp := strings.TrimSpace(c.Counterparty); cp != "" {
		sb.WriteString(" — ")
		sb.WriteString(cp)
	}
	if c.PO != "" && c.PO != c.DocumentNumber() {
		sb.WriteString(" (PO ")
		sb.WriteString(c.PO)
		sb.WriteString(")")
	}
	return sb.String()
}

// Render fills the template's placeholders from c. A blank template, or one with a
// placeholder the context cannot fill, falls back to Default. The document number is
// appended when the result does not already contain it.
func Render(template string, c Context) string {
	doc := c.DocumentNumber()
	values := map[string]string{
		PlaceholderInvoice: c.Invoice,
		PlaceholderPO:      c.PO,
		PlaceholderNumber:  doc,
	}

	unresolved := false
	rendered := placeholders.ReplaceAllStringFunc(template, func(p string) string {
		v := values[p]
		if v == "" {
			unresolved = true
		}
		return v
	})
	rendered = strings.Join(strings.Fields(rendered), " ")

	if unresolved || rendered == "" {
		rendered = Default(c)
	}
	if doc != "" && !strings.Contains(strings.ToLower(rendered), strings.ToLower(doc)) {
		rendered += " " + doc
	}
	return rendered
}
