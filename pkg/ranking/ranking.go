// Package ranking orders candidate ledger accounts by accumulated historical evidence.
package ranking

import (
	"sort"
	"strings"
)

// Defaults for Rank options.
const (
	DefaultStaticBonus = 0.25
	DefaultSeedBonus   = 50.0
	MaxLimit           = 10
)

// Counts accumulates per-account scores and remembers first-insertion order, which is the
// tie-break when scores are equal.
type Counts struct {
	order  []string
	scores map[string]float64
}

// NewCounts creates an empty accumulator.
func NewCounts() *Counts {
	return &Counts{scores: make(map[string]float64)}
}

// Add adds weight to account. Blank accounts are ignored.
func (c *Counts) Add(account string, weight float64) {
	account = strings.TrimSpace(account)
	if account == "" {
		return
	}
	if _, ok := c.scores[account]; !ok {
		c.order = append(c.order, account)
	}
	c.scores[account] += weight
}

// Len returns the number of distinct accounts.
func (c *Counts) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Accounts returns the accounts in insertion order.
func (c *Counts) Accounts() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Score returns the accumulated score of account.
func (c *Counts) Score(account string) float64 {
	if c == nil {
		return 0
	}
	return c.scores[account]
}

// Ranked is an account with its final score.
type Ranked struct {
	Account string  `json:"account"`
	Score   float64 `json:"score"`
}

// Options tunes Rank.
type Options struct {
	Seed        string  // account an upstream process already chose; always ranked first
	StaticBonus float64 // nudge for accounts present in the static usage weights
	SeedBonus   float64
	Limit       int
}

// DefaultOptions returns the documented bonuses with the maximum limit.
func DefaultOptions() Options {
	return Options{StaticBonus: DefaultStaticBonus, SeedBonus: DefaultSeedBonus, Limit: MaxLimit}
}

// Rank scores every account as its raw count plus StaticBonus when it appears in static,
// plus SeedBonus for the seed, then sorts by score with insertion order breaking ties.
// The seed is placed first regardless of score, even when it has no history at all.
func Rank(counts *Counts, static map[string]float64, opts Options) []Ranked {
	limit := opts.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	seed := strings.TrimSpace(opts.Seed)

	var accounts []string
	if seed != "" {
		accounts = append(accounts, seed)
	}
	for _, account := range counts.Accounts() {
		if account != seed {
			accounts = append(accounts, account)
		}
	}

	ranked := make([]Ranked, 0, len(accounts))
	for _, account := range accounts {
		score := counts.Score(account)
		if _, ok := static[account]; ok {
			score += opts.StaticBonus
		}
		if account == seed {
			score += opts.SeedBonus
		}
		ranked = append(ranked, Ranked{Account: account, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if seed != "" && ranked[0].Account != seed {
		for i := range ranked {
			if ranked[i].Account == seed {
				s := ranked[i]
				copy(ranked[1:i+1], ranked[:i])
				ranked[0] = s
				break
			}
		}
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Codes returns the account codes of ranked in order.
func Codes(ranked []Ranked) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Account
	}
	return out
}
