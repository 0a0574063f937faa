package ledger

import "strings"

// AccountRanges groups chart-of-accounts codes by prefix.
type AccountRanges struct {
	Cash    []string `yaml:"cash" json:"cash"`
	Revenue []string `yaml:"revenue" json:"revenue"`
	Expense []string `yaml:"expense" json:"expense"`
}

// IsCash reports whether code falls in a cash/bank range.
func (r AccountRanges) IsCash(code string) bool {
	return hasAnyPrefix(code, r.Cash)
}

// Eligible reports whether code is a plausible allocation account for direction d:
// revenue codes for inbound entries, non-cash expense codes otherwise. An empty range list
// accepts any non-cash code.
func (r AccountRanges) Eligible(d Direction, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || r.IsCash(code) {
		return false
	}
	prefixes := r.Expense
	if d == DirectionIn {
		prefixes = r.Revenue
	}
	if len(prefixes) == 0 {
		return true
	}
	return hasAnyPrefix(code, prefixes)
}

func hasAnyPrefix(code string, prefixes []string) bool {
	code = strings.TrimSpace(code)
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
