package describe

import (
	"testing"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

func TestTemplatize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"invoice and po", "Pembelian kertas INV-2024-0012 PT Sinar (PO-2024-015)", "Pembelian kertas {INV} PT Sinar ({PO})"},
		{"slash separated with short code", "Purchase ABC/INV/2024/001 toner", "Purchase {INV} toner"},
		{"fi style", "Payment FI 88231 to vendor", "Payment {INV} to vendor"},
		{"long number", "Transfer ref 1234567 to savings", "Transfer ref {#} to savings"},
		{"short numbers stay", "Rent March 2024 unit 12", "Rent March 2024 unit 12"},
		{"whitespace collapsed", "  Sewa   gudang\tMaret ", "Sewa gudang Maret"},
		{"word containing po", "Tempo 30 hari", "Tempo 30 hari"},
		{"pr requisition", "Requisition PR/17 approved", "Requisition {PO} approved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Templatize(tt.text); got != tt.expected {
				t.Errorf("Templatize(%q) = %q, expected %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestFindPO(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"Pembelian kertas INV-2024-0012 PT Sinar (PO-2024-015)", "PO-2024-015"},
		{"po 4471 batch 2", "po 4471"},
		{"INV-2024-0012", ""},
		{"Tempo 30 hari", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FindPO(tt.text); got != tt.expected {
			t.Errorf("FindPO(%q) = %q, expected %q", tt.text, got, tt.expected)
		}
	}
}

func TestSelect(t *testing.T) {
	keys := Keys{
		Counterparty: "PT Sinar",
		DocumentRefs: []string{"PO-2024-015"},
		Keywords:     DomainKeywords(ledger.DirectionOut),
	}

	tests := []struct {
		name       string
		candidates []string
		expected   string
		score      int
	}{
		{
			name:       "counterparty and ref beat keyword",
			candidates: []string{"purchase of paper", "Kertas PT Sinar PO-2024-015", "PT Sinar toner"},
			expected:   "Kertas PT Sinar PO-2024-015",
			score:      6,
		},
		{
			name:       "ties keep the most recent",
			candidates: []string{"PT Sinar toner", "PT Sinar paper"},
			expected:   "PT Sinar toner",
			score:      3,
		},
		{
			name:       "zero scores still pick the first",
			candidates: []string{"", "office chair", "desk"},
			expected:   "office chair",
			score:      0,
		},
		{
			name:       "nothing usable",
			candidates: []string{"", "   "},
			expected:   "",
			score:      -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score := Select(tt.candidates, keys)
			if got != tt.expected || score != tt.score {
				t.Errorf("Select() = %q,%d expected %q,%d", got, score, tt.expected, tt.score)
			}
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		ctx      Context
		expected string
	}{
		{
			name:     "placeholders filled",
			template: "Pembelian kertas {INV} PT Sinar ({PO})",
			ctx:      Context{Direction: ledger.DirectionOut, Invoice: "INV-2025-0100", PO: "PO-2025-031"},
			expected: "Pembelian kertas INV-2025-0100 PT Sinar (PO-2025-031)",
		},
		{
			name:     "generic number takes the document number",
			template: "Transfer ref {#}",
			ctx:      Context{Direction: ledger.DirectionTransfer, PO: "TRX-99"},
			expected: "Transfer ref TRX-99",
		},
		{
			name:     "unfillable placeholder falls back to default",
			template: "Purchase {INV} toner ({PO})",
			ctx:      Context{Direction: ledger.DirectionOut, Invoice: "INV-7", Counterparty: "CV Maju"},
			expected: "Purchase/Invoice INV-7 — CV Maju",
		},
		{
			name:     "plain text gets the document number appended",
			template: "Monthly office rent",
			ctx:      Context{Direction: ledger.DirectionOut, Invoice: "INV-8"},
			expected: "Monthly office rent INV-8",
		},
		{
			name:     "blank template",
			template: "",
			ctx:      Context{Direction: ledger.DirectionIn, Invoice: "SI-1", PO: "PO-4", Counterparty: "Toko Abadi"},
			expected: "Sale/Invoice SI-1 — Toko Abadi (PO PO-4)",
		},
		{
			name:     "no document number at all",
			template: "Sewa gudang",
			ctx:      Context{Direction: ledger.DirectionOut},
			expected: "Sewa gudang",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.template, tt.ctx); got != tt.expected {
				t.Errorf("Render(%q) = %q, expected %q", tt.template, got, tt.expected)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	tests := []struct {
		ctx      Context
		expected string
	}{
		{Context{Direction: ledger.DirectionOut}, "Purchase/Entry"},
		{Context{Direction: ledger.DirectionOut, PO: "PO-1"}, "Purchase/PO PO-1"},
		{Context{Direction: ledger.DirectionOut, Invoice: "INV-1", PO: "PO-1", Counterparty: "PT A"}, "Purchase/Invoice INV-1 — PT A (PO PO-1)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Default(tt.ctx); got != tt.expected {
				t.Errorf("Default() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
