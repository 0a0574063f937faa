package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/beancount"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/suggest"
)

// suggestFlags are the command-line fields of a suggestion request.
type suggestFlags struct {
	direction    string
	gross        string
	tax          string
	description  string
	seed         string
	poNumber     string
	invoice      string
	counterparty string
	date         string
	format       string
	currency     string
	save         bool
}

var suggestOpts suggestFlags

// suggestCmd represents the suggest command.
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest an accounting entry",
	Long: `Suggest the accounts, split and description of a new entry.

The suggestion is printed as a summary (text), as JSON, or as a Beancount
draft. With --save the draft is appended to the monthly drafts file after
validation.

Example:
  ledger-suggest suggest --direction out --gross 1100000 --tax 100000 --desc "Beli kertas A4"
  ledger-suggest suggest --direction in --gross 5000000 --po PO-2024-001 --format beancount --save`,
	Run: runSuggest,
}

func init() {
	f := suggestCmd.Flags()
	f.StringVar(&suggestOpts.direction, "direction", "", "Transaction direction: in, out or transfer (required)")
	f.StringVar(&suggestOpts.gross, "gross", "", "Gross amount including tax (required)")
	f.StringVar(&suggestOpts.tax, "tax", "", "Tax amount (enables the tax posting)")
	f.StringVar(&suggestOpts.description, "desc", "", "Free-text description")
	f.StringVar(&suggestOpts.seed, "seed", "", "Account already chosen upstream")
	f.StringVar(&suggestOpts.poNumber, "po", "", "Purchase order number")
	f.StringVar(&suggestOpts.invoice, "invoice", "", "Invoice number")
	f.StringVar(&suggestOpts.counterparty, "counterparty", "", "Customer or vendor name")
	f.StringVar(&suggestOpts.date, "date", "", "Transaction date (YYYY-MM-DD, default today)")
	f.StringVar(&suggestOpts.format, "format", "text", "Output format: text, json or beancount")
	f.StringVar(&suggestOpts.currency, "currency", beancount.DefaultCurrency, "Currency of the Beancount draft")
	f.BoolVar(&suggestOpts.save, "save", false, "Append the draft to the monthly drafts file")

	suggestCmd.MarkFlagRequired("direction")
	suggestCmd.MarkFlagRequired("gross")
}

func runSuggest(cmd *cobra.Command, args []string) {
	req, err := suggestOpts.request()
	exitOnError(err, "invalid arguments")

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	cfg, pathResolver := loadConfig()
	conn := openDatabase(pathResolver)
	defer conn.Close()

	engine := newEngine(cfg, pathResolver, conn)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := engine.Suggest(ctx, req)
	exitOnError(err, "failed to build suggestion")

	draft := beancount.Draft{
		Entry:    s.Entry(),
		Date:     date,
		Payee:    req.Counterparty,
		Currency: suggestOpts.currency,
		Metadata: draftMetadata(req, s),
	}

	exitOnError(renderSuggestion(os.Stdout, s, draft, suggestOpts.format), "failed to render suggestion")

	if !suggestOpts.save {
		return
	}

	exitOnError(ledger.ValidateEntry(s.Entry()), "suggestion cannot be saved")

	repo := beancount.NewFileSystemRepository(pathResolver)
	path, err := repo.AppendTransaction(date, beancount.Format(beancount.FromDraft(draft)))
	exitOnError(err, "failed to save draft")

	slog.Info("Saved draft", "path", path, "source", s.Source, "confidence", s.Confidence)
}

// request converts the flags into an engine request.
func (f suggestFlags) request() (suggest.Request, error) {
	gross, err := decimal.NewFromString(f.gross)
	if err != nil {
		return suggest.Request{}, fmt.Errorf("--gross: %w", err)
	}

	req := suggest.Request{
		Direction:     ledger.Direction(strings.ToLower(strings.TrimSpace(f.direction))),
		Gross:         gross,
		Description:   f.description,
		SeedAccount:   f.seed,
		PONumber:      f.poNumber,
		InvoiceNumber: f.invoice,
		Counterparty:  f.counterparty,
	}

	if f.tax != "" {
		tax, err := decimal.NewFromString(f.tax)
		if err != nil {
			return suggest.Request{}, fmt.Errorf("--tax: %w", err)
		}
		req.HasTax = true
		req.TaxAmount = tax
	}

	if f.date != "" {
		date, err := time.Parse(ledger.DateLayout, f.date)
		if err != nil {
			return suggest.Request{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
		req.Date = date
	}

	switch f.format {
	case "text", "json", "beancount":
	default:
		return suggest.Request{}, fmt.Errorf("--format must be text, json or beancount, got %q", f.format)
	}

	return req, req.Validate()
}

func draftMetadata(req suggest.Request, s suggest.Suggestion) map[string]string {
	meta := map[string]string{
		"source":     string(s.Source),
		"confidence": strconv.FormatFloat(s.Confidence, 'f', 2, 64),
	}
	if req.PONumber != "" {
		meta["po"] = req.PONumber
	}
	if req.InvoiceNumber != "" {
		meta["invoice"] = req.InvoiceNumber
	}
	return meta
}

// renderSuggestion writes s in the requested format.
func renderSuggestion(w io.Writer, s suggest.Suggestion, draft beancount.Draft, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "beancount":
		_, err := fmt.Fprintln(w, beancount.Format(beancount.FromDraft(draft)))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Direction:\t%s\n", s.Direction)
	fmt.Fprintf(tw, "Voucher series:\t%s\n", s.VoucherSeries)
	fmt.Fprintf(tw, "Cash account:\t%s\n", s.CashAccount)
	fmt.Fprintf(tw, "Description:\t%s\n", s.Description)
	fmt.Fprintf(tw, "Target:\t%s\n", s.Target.StringFixed(2))
	if s.TaxAmount.IsPositive() {
		fmt.Fprintf(tw, "Tax:\t%s %s\n", s.TaxAccount, s.TaxAmount.StringFixed(2))
	}
	fmt.Fprintf(tw, "Source:\t%s (confidence %.2f)\n", s.Source, s.Confidence)
	for i, l := range s.Lines {
		fmt.Fprintf(tw, "Line %d:\t%s\t%s\t%s\n", i+1, l.Account, l.Type, l.Amount.StringFixed(2))
	}
	if len(s.Ranked) > 0 {
		fmt.Fprintln(tw, "\nCandidates:")
		for _, r := range s.Ranked {
			fmt.Fprintf(tw, "  %s\t%.3f\n", r.Account, r.Score)
		}
	}
	for _, a := range s.Attempts {
		fmt.Fprintf(tw, "Attempt:\t%s\t%s\t%s\n", a.Source, a.Status, a.Error)
	}
	return tw.Flush()
}
