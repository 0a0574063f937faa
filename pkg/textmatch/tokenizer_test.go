package textmatch

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenizeWeighted(t *testing.T) {
	got := TokenizeWeighted("Pembayaran BPJS (JKN) Januari")
	expected := []WeightedToken{
		{Token: "jkn", Weight: 2.0},
		{Token: "pembayaran", Weight: 1.0},
		{Token: "bpjs", Weight: 1.0},
		{Token: "insurance", Weight: 1.0},
		{Token: "januari", Weight: 1.0},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("TokenizeWeighted() = %v, expected %v", got, expected)
	}
}

func TestTokenizeWeightedDropsShortWordsAndStopwords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"short words", "PO 12 to ab office chair", []string{"office", "chair"}},
		{"stopwords", "the rent for the warehouse", []string{"rent", "warehouse"}},
		{"punctuation runs", "Toner--HP///LaserJet!!", []string{"toner", "laserjet"}},
		{"empty", "", nil},
		{"only noise", "-- // ()", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenizeWeighted(tt.text)
			var tokens []string
			for _, tok := range got {
				tokens = append(tokens, tok.Token)
			}
			if !reflect.DeepEqual(tokens, tt.expected) {
				t.Errorf("TokenizeWeighted(%q) tokens = %v, expected %v", tt.text, tokens, tt.expected)
			}
		})
	}
}

func TestTokenizeWeightedStrongTakesMax(t *testing.T) {
	// "kantor" appears both outside and inside parentheses.
	got := TokenizeWeighted("sewa kantor (kantor pusat)")
	weights := map[string]float64{}
	for _, tok := range got {
		weights[tok.Token] = tok.Weight
	}
	if weights["kantor"] != 2.0 {
		t.Errorf("weight of kantor = %v, expected 2.0", weights["kantor"])
	}
	if weights["pusat"] != 2.0 {
		t.Errorf("weight of pusat = %v, expected 2.0", weights["pusat"])
	}
	if weights["rent"] != 1.0 {
		t.Errorf("synonym rent weight = %v, expected 1.0", weights["rent"])
	}
	if got[0].Weight != 2.0 {
		t.Errorf("first token weight = %v, expected strong tokens first", got[0].Weight)
	}
}

func TestTokenizeWeightedTruncates(t *testing.T) {
	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima mike november (oscar)"
	got := TokenizeWeighted(text)
	if len(got) != DefaultMaxTokens {
		t.Fatalf("len = %d, expected %d", len(got), DefaultMaxTokens)
	}
	if got[0].Token != "oscar" {
		t.Errorf("first token = %q, expected the strong token oscar", got[0].Token)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Weight > got[i-1].Weight {
			t.Errorf("tokens not in descending weight at %d: %v", i, got)
		}
	}
}

func TestTokenizeWeightedCustomOptions(t *testing.T) {
	tk := New(Options{StrongWeight: 3.5, MaxTokens: 2})
	got := tk.TokenizeWeighted("freight charges (express)")
	expected := []WeightedToken{
		{Token: "express", Weight: 3.5},
		{Token: "freight", Weight: 1.0},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("TokenizeWeighted() = %v, expected %v", got, expected)
	}
}

func TestTokenizeWeightedDeterministic(t *testing.T) {
	text := "Pembelian ATK (kertas A4) dan tinta printer PPN"
	first := TokenizeWeighted(text)
	for i := 0; i < 20; i++ {
		if got := TokenizeWeighted(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d = %v, expected %v", i, got, first)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		text     string
		expected []string
	}{
		{"Transfer to BCA (savings) 12", []string{"transfer", "bca", "savings"}},
		{"BPJS bpjs BPJS", []string{"bpjs"}},
		{"Ｆｕｌｌｗｉｄｔｈ text", []string{"fullwidth", "text"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, expected %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tokens := TokenizeWeighted("listrik (PLN) kantor")
	tests := []struct {
		text     string
		expected float64
	}{
		{"Tagihan PLN kantor pusat", 3.0},
		{"electricity bill", 1.0},
		{"unrelated", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Score(tt.text, tokens); got != tt.expected {
				t.Errorf("Score(%q) = %v, expected %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestTerms(t *testing.T) {
	tokens := TokenizeWeighted("alpha bravo charlie")
	if got := Terms(tokens, 2); strings.Join(got, ",") != "alpha,bravo" {
		t.Errorf("Terms(2) = %v, expected [alpha bravo]", got)
	}
	if got := Terms(tokens, 0); len(got) != 3 {
		t.Errorf("Terms(0) = %v, expected all tokens", got)
	}
}
