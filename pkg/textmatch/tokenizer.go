// Package textmatch turns free-text transaction descriptions into weighted token sets
// used to find similar historical ledger rows.
package textmatch

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Default tokenizer settings.
const (
	DefaultStrongWeight = 2.0
	DefaultMaxTokens    = 12
	BaseWeight          = 1.0
	SynonymWeight       = 1.0
	MinTokenLength      = 3
)

// WeightedToken is a token with its match weight.
type WeightedToken struct {
	Token  string  `json:"token"`
	Weight float64 `json:"weight"`
}

// Options configures a Tokenizer.
type Options struct {
	StrongWeight float64 // weight of tokens found inside parentheses
	MaxTokens    int
}

// Tokenizer extracts weighted tokens. The zero value is not usable; use New.
type Tokenizer struct {
	strongWeight float64
	maxTokens    int
}

// New creates a Tokenizer, filling unset options with defaults.
func New(opts Options) *Tokenizer {
	if opts.StrongWeight <= 0 {
		opts.StrongWeight = DefaultStrongWeight
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Tokenizer{strongWeight: opts.StrongWeight, maxTokens: opts.MaxTokens}
}

var defaultTokenizer = New(Options{})

// TokenizeWeighted tokenizes text with the default settings.
func TokenizeWeighted(text string) []WeightedToken {
	return defaultTokenizer.TokenizeWeighted(text)
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "this": {}, "that": {},
	"via": {}, "per": {}, "dan": {}, "yang": {}, "untuk": {}, "dari": {},
	"pada": {}, "atas": {}, "bayar": {}, "payment": {},
}

// synonyms maps a token to the related tokens it also stands for.
var synonyms = map[string][]string{
	"bpjs":     {"insurance"},
	"jkn":      {"insurance"},
	"asuransi": {"insurance"},
	"pln":      {"electricity"},
	"listrik":  {"electricity"},
	"pdam":     {"water"},
	"atk":      {"stationery"},
	"ppn":      {"tax"},
	"vat":      {"tax"},
	"pph":      {"tax"},
	"bbm":      {"fuel"},
	"sewa":     {"rent"},
	"gaji":     {"salary"},
}

var parenSegment = regexp.MustCompile(`\(([^()]*)\)`)

// normalize applies NFKC, lowercases and collapses every non-alphanumeric run to one space.
func normalize(text string) string {
	s := strings.ToLower(norm.NFKC.String(text))
	var sb strings.Builder
	sb.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			space = false
			continue
		}
		if !space {
			sb.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(sb.String())
}

// Normalize exposes the matching normalization for callers comparing raw text.
func Normalize(text string) string {
	return normalize(text)
}

func words(normalized string) []string {
	var out []string
	for _, w := range strings.Fields(normalized) {
		if len([]rune(w)) < MinTokenLength {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Tokenize returns the distinct normalized words of text in order of appearance, with no
// weighting, strong segment or synonym expansion.
func Tokenize(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range words(normalize(text)) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// TokenizeWeighted returns at most MaxTokens tokens ordered by descending weight. Tokens
// that also occur inside parentheses get the strong weight. Ties keep first appearance.
func (t *Tokenizer) TokenizeWeighted(text string) []WeightedToken {
	lowered := strings.ToLower(text)

	strong := make(map[string]struct{})
	for _, m := range parenSegment.FindAllStringSubmatch(lowered, -1) {
		for _, w := range words(normalize(m[1])) {
			strong[w] = struct{}{}
		}
	}

	weights := make(map[string]float64)
	var order []string
	add := func(token string, weight float64) {
		current, ok := weights[token]
		if !ok {
			order = append(order, token)
			weights[token] = weight
			return
		}
		if weight > current {
			weights[token] = weight
		}
	}

	for _, w := range words(normalize(lowered)) {
		weight := BaseWeight
		if _, ok := strong[w]; ok {
			weight = t.strongWeight
		}
		add(w, weight)
		for _, syn := range synonyms[w] {
			add(syn, SynonymWeight)
		}
	}

	out := make([]WeightedToken, len(order))
	for i, token := range order {
		out[i] = WeightedToken{Token: token, Weight: weights[token]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	if len(out) > t.maxTokens {
		out = out[:t.maxTokens]
	}
	return out
}

// Terms returns the first n token strings, the ones used to build substring predicates.
func Terms(tokens []WeightedToken, n int) []string {
	if n <= 0 || n > len(tokens) {
		n = len(tokens)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = tokens[i].Token
	}
	return out
}

// Score sums the weights of the tokens contained in text after normalization.
func Score(text string, tokens []WeightedToken) float64 {
	normalized := normalize(text)
	if normalized == "" {
		return 0
	}
	var score float64
	for _, tok := range tokens {
		if strings.Contains(normalized, tok.Token) {
			score += tok.Weight
		}
	}
	return score
}
