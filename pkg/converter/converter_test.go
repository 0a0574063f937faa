package converter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/freee"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/rules"
)

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func testMapper() *Mapper {
	tax := "1171"
	return NewMapperFromConfig(AccountMappingConfig{
		Assets:   []AccountMapping{{Freee: "普通預金", Code: "1102", Name: "Bank"}},
		Income:   []AccountMapping{{Freee: "売上高", Code: "4101"}},
		Expenses: []AccountMapping{{Freee: "消耗品費", Code: "6101"}, {Freee: "通信費", Code: "6102"}, {Freee: "旅費交通費", Code: "6103"}},
		Walletables: []WalletableMapping{
			{Type: "bank_account", Code: "1102"},
			{Type: "bank_account", ID: 7, Code: "1103"},
			{Type: "wallet", Code: "1101"},
		},
		TaxCodes: []TaxCodeMapping{{Code: 136, Rate: 0.1, Account: &tax}, {Code: 2, Description: "exempt"}},
	})
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMapperLookups(t *testing.T) {
	m := testMapper()

	if got := m.GetCode("消耗品費"); got != "6101" {
		t.Errorf("GetCode(消耗品費) = %q, expected %q", got, "6101")
	}
	if m.HasMapping("unknown") {
		t.Error("HasMapping(unknown) = true")
	}

	walletables := []struct {
		typ      string
		id       int64
		expected string
	}{
		{"bank_account", 7, "1103"},
		{"bank_account", 9, "1102"},
		{"wallet", 1, "1101"},
		{"credit_card", 1, ""},
	}
	for _, tt := range walletables {
		if got := m.GetWalletableCode(tt.typ, tt.id); got != tt.expected {
			t.Errorf("GetWalletableCode(%q, %d) = %q, expected %q", tt.typ, tt.id, got, tt.expected)
		}
	}

	if got := m.GetTaxAccount(136); got != "1171" {
		t.Errorf("GetTaxAccount(136) = %q, expected %q", got, "1171")
	}
	if got := m.GetTaxAccount(2); got != "" {
		t.Errorf("GetTaxAccount(2) = %q, expected empty", got)
	}
	if tc := m.GetTaxCode(2); tc == nil || tc.Description != "exempt" {
		t.Errorf("GetTaxCode(2) = %+v", tc)
	}

	accounts := m.Accounts()
	if len(accounts) != 5 || accounts[0].Code != "1102" || accounts[0].Name != "Bank" || accounts[0].Kind != "asset" {
		t.Errorf("Accounts() = %+v", accounts)
	}
	if accounts[1].Name != "売上高" || accounts[1].Kind != "income" {
		t.Errorf("Accounts()[1] = %+v, expected the freee name as fallback", accounts[1])
	}
}

func TestNewMapperFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	content := `
expenses:
  - freee: 消耗品費
    code: "6101"
walletables:
  - type: wallet
    code: "1101"
tax_codes:
  - code: 136
    rate: 0.1
    account: "1170"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewMapper(path)
	if err != nil {
		t.Fatalf("NewMapper() error = %v", err)
	}
	if m.GetCode("消耗品費") != "6101" || m.GetWalletableCode("wallet", 0) != "1101" || m.GetTaxAccount(136) != "1170" {
		t.Error("NewMapper() did not load every section")
	}

	if _, err := NewMapper(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("NewMapper(missing) expected error")
	}
}

func TestConvertDealWithTax(t *testing.T) {
	c := NewConverter(testMapper(), rules.DefaultChart())
	deal := freee.Deal{
		ID:          900,
		IssueDate:   "2024-03-15",
		Type:        freee.DealTypeExpense,
		Amount:      11000,
		RefNumber:   strPtr("INV-77"),
		PartnerName: strPtr("PT Sinar"),
		Details: []freee.Detail{
			{AccountItemName: "消耗品費", Amount: 6000, Vat: 600, TaxCode: 136, ItemID: intPtr(5)},
			{AccountItemName: "通信費", Amount: 3000, Vat: 300, TaxCode: 136, ItemName: strPtr(" Pulsa ")},
			{AccountItemName: "旅費交通費", Amount: 1000, Vat: 100, TaxCode: 136},
		},
		Payments: []freee.Payment{{FromWalletableType: "bank_account", FromWalletableID: 7, Amount: 11000}},
	}

	res, err := c.ConvertDeal(deal)
	if err != nil {
		t.Fatalf("ConvertDeal() error = %v", err)
	}
	e := res.Entry

	if e.Voucher != "BKK-900" || e.Direction != ledger.DirectionOut || e.CashAccount != "1103" {
		t.Errorf("entry header = %q %q %q", e.Voucher, e.Direction, e.CashAccount)
	}
	if !e.Taxed || e.TaxAccount() != "1171" {
		t.Errorf("Taxed/TaxAccount = %v/%q, expected true/1171", e.Taxed, e.TaxAccount())
	}
	if e.Counterparty != "PT Sinar" || e.DocumentRef != "INV-77" {
		t.Errorf("counterparty/ref = %q/%q", e.Counterparty, e.DocumentRef)
	}
	if e.Description != "支出: 消耗品費, 通信費, 旅費交通費" {
		t.Errorf("Description = %q", e.Description)
	}

	expected := [ledger.SlotCount]struct {
		account string
		amount  string
	}{{"6101", "6000"}, {"1171", "1000"}, {"6102", "4000"}}
	for i, want := range expected {
		s := e.Slots[i]
		if s.Account != want.account || !s.Amount.Equal(d(want.amount)) || s.Type != ledger.Debit {
			t.Errorf("slot %d = %s %s %s, expected %s %s debit", i, s.Account, s.Amount, s.Type, want.account, want.amount)
		}
	}

	if res.Invoice == nil {
		t.Fatal("Invoice is nil for a deal with a reference number")
	}
	if res.Invoice.Voucher != "BKK-900" || len(res.Invoice.ItemKeys) != 2 || res.Invoice.ItemKeys[1] != "pulsa" {
		t.Errorf("Invoice = %+v", res.Invoice)
	}
	if !res.Amount.Equal(d("11000")) {
		t.Errorf("Amount = %s", res.Amount)
	}
}

func TestConvertDealIncomeWithoutTax(t *testing.T) {
	c := NewConverter(testMapper(), nil)
	deal := freee.Deal{
		ID:        12,
		IssueDate: "2024-04-01",
		Type:      freee.DealTypeIncome,
		Details: []freee.Detail{
			{AccountItemName: "売上高", Amount: 500, Description: strPtr("Penjualan jasa")},
		},
	}

	res, err := c.ConvertDeal(deal)
	if err != nil {
		t.Fatalf("ConvertDeal() error = %v", err)
	}
	e := res.Entry
	if e.Voucher != "BKM-12" || e.CashAccount != "1101" || e.Description != "Penjualan jasa" {
		t.Errorf("entry = %+v", e)
	}
	if e.Taxed || e.HasTax() || e.Slots[0].Account != "4101" || e.Slots[0].Type != ledger.Credit {
		t.Errorf("slots = %+v", e.Slots)
	}
	if res.Invoice != nil {
		t.Errorf("Invoice = %+v, expected nil without a reference number", res.Invoice)
	}
}

func TestConvertDealPurchaseOrder(t *testing.T) {
	c := NewConverter(testMapper(), nil)
	ref := "INV-88"
	deal := freee.Deal{
		ID: 20, IssueDate: "2024-05-02", Type: freee.DealTypeExpense, RefNumber: &ref,
		Details: []freee.Detail{
			{AccountItemName: "消耗品費", Amount: 100, ItemName: strPtr("Kertas A4")},
			{AccountItemName: "消耗品費", Amount: 50, ItemName: strPtr("Toner"), Description: strPtr("Kiriman 2 dari PO-2024-015")},
		},
	}

	res, err := c.ConvertDeal(deal)
	if err != nil {
		t.Fatalf("ConvertDeal() error = %v", err)
	}
	if res.Invoice == nil || res.Invoice.PONumber != "PO-2024-015" {
		t.Fatalf("Invoice = %+v, expected PO-2024-015", res.Invoice)
	}
	if got := res.Invoice.ItemKeys; len(got) != 2 || got[0] != "kertas a4" || got[1] != "toner" {
		t.Errorf("ItemKeys = %v", got)
	}

	deal.Details[1].Description = nil
	if res, _ := c.ConvertDeal(deal); res.Invoice.PONumber != "" {
		t.Errorf("PONumber = %q, expected none without a PO reference", res.Invoice.PONumber)
	}
}

func TestConvertDealUnmappedAndBadDate(t *testing.T) {
	c := NewConverter(testMapper(), rules.DefaultChart())

	res, err := c.ConvertDeal(freee.Deal{
		ID: 1, IssueDate: "2024-01-01", Type: freee.DealTypeExpense,
		Details: []freee.Detail{{AccountItemName: "雑費", Amount: 10}, {AccountItemName: "支払手数料", Amount: 5}},
	})
	if err != nil {
		t.Fatalf("ConvertDeal() error = %v", err)
	}
	if res.Entry.Slots[0].Account != "6199" || !res.Entry.Slots[0].Amount.Equal(d("15")) {
		t.Errorf("unmapped slot = %+v, expected both details folded into 6199", res.Entry.Slots[0])
	}
	if got := c.Unmapped(); len(got) != 2 || got[0] != "支払手数料" {
		t.Errorf("Unmapped() = %v", got)
	}

	if _, err := c.ConvertDeal(freee.Deal{ID: 2, IssueDate: "2024/01/01"}); err == nil {
		t.Error("ConvertDeal() expected error for a bad issue date")
	}
}

func TestConvertJournal(t *testing.T) {
	c := NewConverter(testMapper(), rules.DefaultChart())
	journal := freee.Journal{
		ID:        33,
		IssueDate: "2024-02-29",
		Details: []freee.JournalDetail{
			{AccountItemName: "消耗品費", EntryType: "debit", Amount: 1000, Vat: 100, Description: strPtr("kertas")},
			{AccountItemName: "普通預金", EntryType: "credit", Amount: 1100},
		},
	}

	lines, err := c.ConvertJournal(journal)
	if err != nil {
		t.Fatalf("ConvertJournal() error = %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("ConvertJournal() = %d lines, expected 3", len(lines))
	}

	expected := []struct {
		account, debit, credit, remark string
	}{
		{"6101", "1000", "0", "kertas"},
		{"1170", "100", "0", "kertas"},
		{"1102", "0", "1100", ""},
	}
	for i, want := range expected {
		l := lines[i]
		if l.JournalID != "JU-33" || l.Account != want.account || !l.Debit.Equal(d(want.debit)) || !l.Credit.Equal(d(want.credit)) || l.Remark != want.remark {
			t.Errorf("line %d = %+v, expected %+v", i, l, want)
		}
	}

	usage := Usage(lines)
	if got := usage["2024-02"]["6101"]; got != 1000 {
		t.Errorf("Usage()[2024-02][6101] = %v, expected 1000", got)
	}
	if got := usage["2024-02"]["1102"]; got != 1100 {
		t.Errorf("Usage()[2024-02][1102] = %v, expected 1100", got)
	}
}

func TestSampleMappingFile(t *testing.T) {
	m, err := NewMapper(filepath.Join("..", "..", "config", "account-mapping.yaml"))
	if err != nil {
		t.Fatalf("NewMapper(config/account-mapping.yaml) error = %v", err)
	}
	if m.GetCode("消耗品費") != "6101" || m.GetWalletableCode("bank_account", 3) != "1102" || m.GetTaxAccount(136) != "1170" {
		t.Error("sample mapping is missing expected entries")
	}
}
