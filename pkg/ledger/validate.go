package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxLines is the number of allocation lines a row can carry without tax.
const MaxLines = SlotCount

// MaxLinesWithTax is the number of allocation lines left once the tax slot is reserved.
const MaxLinesWithTax = SlotCount - 1

// ValidationError is a user-facing rejection of an entry at commit time.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEntry re-checks an entry before it is persisted. Suggestions are advisory, so
// every invariant the ledger row depends on is enforced again here.
func ValidateEntry(e Entry) error {
	if !e.Direction.Valid() {
		return &ValidationError{Field: "direction", Message: fmt.Sprintf("unknown transaction direction %q", e.Direction)}
	}
	if strings.TrimSpace(e.CashAccount) == "" {
		return &ValidationError{Field: "cash_account", Message: "Please choose the cash or bank account for this entry."}
	}
	if e.Target.IsNegative() {
		return &ValidationError{Field: "target", Message: "The taxable amount cannot be negative."}
	}
	if e.TaxAmount.IsNegative() {
		return &ValidationError{Field: "tax_amount", Message: "The tax amount cannot be negative."}
	}

	hasTax := e.TaxAmount.IsPositive()
	if hasTax && strings.TrimSpace(e.TaxAccount) == "" {
		return &ValidationError{Field: "tax_account", Message: "A tax account is required when a tax amount is entered."}
	}

	limit := MaxLines
	if hasTax {
		limit = MaxLinesWithTax
	}
	if len(e.Lines) > limit {
		if hasTax {
			return &ValidationError{
				Field:   "lines",
				Message: fmt.Sprintf("At most %d allocation lines are allowed when tax is posted; one slot is reserved for tax.", limit),
			}
		}
		return &ValidationError{Field: "lines", Message: fmt.Sprintf("At most %d allocation lines are allowed.", limit)}
	}
	if len(e.Lines) == 0 && e.Target.IsPositive() {
		return &ValidationError{Field: "lines", Message: "At least one allocation line is required."}
	}

	sum := decimal.Zero
	for i, line := range e.Lines {
		if strings.TrimSpace(line.Account) == "" {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].account", i), Message: fmt.Sprintf("Please choose an account for line %d.", i+1)}
		}
		if line.Amount.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].amount", i), Message: fmt.Sprintf("Line %d has a negative amount.", i+1)}
		}
		sum = sum.Add(line.Amount)
	}

	want := e.Target.Round(2)
	if !sum.Round(2).Equal(want) {
		return &ValidationError{
			Field:   "lines",
			Message: fmt.Sprintf("Allocation lines total %s but the taxable amount is %s; the difference is %s.",
				sum.StringFixed(2), want.StringFixed(2), want.Sub(sum).StringFixed(2)),
		}
	}
	return nil
}
