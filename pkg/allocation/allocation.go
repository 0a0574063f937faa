// Package allocation splits a target amount across ranked accounts so that the parts add
// up to the rounded target exactly.
package allocation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// Places is the monetary precision of every allocated amount.
const Places = 2

// Share is one account's part of the target.
type Share struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// Ratios is a learned per-account proportion of the target.
type Ratios map[string]decimal.Decimal

// Cap returns how many lines may be allocated: the tax posting takes one of the three
// slots whenever a tax amount is present.
func Cap(taxAmount decimal.Decimal) int {
	if taxAmount.IsPositive() {
		return ledger.MaxLinesWithTax
	}
	return ledger.MaxLines
}

// Allocate distributes target over the accounts (already capped by the caller). Every
// share but the last is round(target/N) or round(target*ratio) when ratios cover every
// account; the last share takes whatever remains, so the sum equals round(target) exactly.
// A zero target, or no accounts, yields no shares.
func Allocate(target decimal.Decimal, accounts []string, ratios Ratios) []Share {
	total := target.Round(Places)
	if !total.IsPositive() || len(accounts) == 0 {
		return nil
	}

	useRatios := len(accounts) > 1 && ratios.covers(accounts)
	n := decimal.NewFromInt(int64(len(accounts)))
	even := total.Div(n).Round(Places)

	shares := make([]Share, len(accounts))
	running := decimal.Zero
	for i, account := range accounts {
		var amount decimal.Decimal
		switch {
		case i == len(accounts)-1:
			amount = total.Sub(running).Round(Places)
		case useRatios:
			amount = total.Mul(ratios[account]).Round(Places)
		default:
			amount = even
		}
		running = running.Add(amount)
		shares[i] = Share{Account: account, Amount: amount}
	}
	return shares
}

func (r Ratios) covers(accounts []string) bool {
	if len(r) == 0 {
		return false
	}
	for _, a := range accounts {
		v, ok := r[a]
		if !ok || v.IsNegative() {
			return false
		}
	}
	return true
}

// Sum adds the share amounts.
func Sum(shares []Share) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// LearnRatios derives per-account proportions from historical rows that posted tax and
// whose allocation lines used exactly the given accounts. Amounts are pooled across the
// matching rows. It returns nil when fewer than two accounts are given or nothing matches.
func LearnRatios(rows []ledger.HistoricalEntry, accounts []string) Ratios {
	if len(accounts) < 2 {
		return nil
	}
	want := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		want[a] = struct{}{}
	}

	pooled := make(map[string]decimal.Decimal, len(accounts))
	total := decimal.Zero
	for _, row := range rows {
		if !row.HasTax() {
			continue
		}
		lines := row.LineSlots()
		if len(lines) != len(accounts) || !sameAccounts(lines, want) {
			continue
		}
		for _, l := range lines {
			account := strings.TrimSpace(l.Account)
			pooled[account] = pooled[account].Add(l.Amount)
			total = total.Add(l.Amount)
		}
	}
	if !total.IsPositive() {
		return nil
	}

	ratios := make(Ratios, len(accounts))
	for _, a := range accounts {
		ratios[a] = pooled[a].DivRound(total, 8)
	}
	return ratios
}

func sameAccounts(lines []ledger.Slot, want map[string]struct{}) bool {
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		account := strings.TrimSpace(l.Account)
		if _, ok := want[account]; !ok {
			return false
		}
		seen[account] = struct{}{}
	}
	return len(seen) == len(want)
}
