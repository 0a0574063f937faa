// Package freee provides a freee Accounting API client and the subset of its types the
// ledger importer reads.
package freee

// Deal types.
const (
	DealTypeIncome  = "income"
	DealTypeExpense = "expense"
)

// Deal is an income or expense transaction. Its details become the allocation slots of a
// ledger row and its first payment names the cash account.
type Deal struct {
	ID          int64     `json:"id"`
	IssueDate   string    `json:"issue_date"` // YYYY-MM-DD
	Type        string    `json:"type"`       // income or expense
	Amount      int64     `json:"amount"`
	RefNumber   *string   `json:"ref_number,omitempty"` // invoice number on the source document
	PartnerCode *string   `json:"partner_code,omitempty"`
	PartnerName *string   `json:"partner_name,omitempty"`
	Details     []Detail  `json:"details"`
	Payments    []Payment `json:"payments,omitempty"`
}

// Detail is a line item of a deal.
type Detail struct {
	ID              int64   `json:"id"`
	AccountItemID   int64   `json:"account_item_id"`
	AccountItemName string  `json:"account_item_name"`
	TaxCode         int     `json:"tax_code"`
	Amount          int64   `json:"amount"`
	Vat             int64   `json:"vat"`
	Description     *string `json:"description,omitempty"`
	ItemID          *int64  `json:"item_id,omitempty"`
	ItemName        *string `json:"item_name,omitempty"`
}

// Payment settles a deal from a walletable.
type Payment struct {
	ID                 int64  `json:"id"`
	Date               string `json:"date"` // YYYY-MM-DD
	Amount             int64  `json:"amount"`
	FromWalletableType string `json:"from_walletable_type"` // bank_account, credit_card or wallet
	FromWalletableID   int64  `json:"from_walletable_id"`
}

// Journal is a manual journal entry; each detail becomes a journal line.
type Journal struct {
	ID        int64           `json:"id"`
	IssueDate string          `json:"issue_date"` // YYYY-MM-DD
	Details   []JournalDetail `json:"details"`
}

// JournalDetail is one debit or credit line of a journal.
type JournalDetail struct {
	ID              int64   `json:"id"`
	AccountItemID   int64   `json:"account_item_id"`
	AccountItemName string  `json:"account_item_name"`
	TaxCode         int     `json:"tax_code"`
	Amount          int64   `json:"amount"`
	Vat             int64   `json:"vat"`
	EntryType       string  `json:"entry_type"` // debit or credit
	Description     *string `json:"description,omitempty"`
}

// AccountItem is a chart-of-accounts entry.
type AccountItem struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AccountCategory string `json:"account_category"`
	DefaultTaxCode  int    `json:"default_tax_code"`
}

type dealsResponse struct {
	Deals []Deal `json:"deals"`
}

type journalsResponse struct {
	Journals []Journal `json:"journals"`
}

type accountItemsResponse struct {
	AccountItems []AccountItem `json:"account_items"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// errorResponse is the OAuth-style error body freee returns.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
