package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
	"github.com/pigeonworks-llc/ledger-suggest/pkg/suggest"
)

// Suggester produces entry suggestions.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (suggest.Suggestion, error)
}

// SuggestionsHandler handles suggestion-related API endpoints.
type SuggestionsHandler struct {
	engine Suggester
	logger *slog.Logger
}

// NewSuggestionsHandler creates a new SuggestionsHandler.
func NewSuggestionsHandler(engine Suggester, logger *slog.Logger) *SuggestionsHandler {
	return &SuggestionsHandler{engine: engine, logger: logger}
}

// SuggestionRequest is the body of POST /api/1/suggestions.
type SuggestionRequest struct {
	Direction     ledger.Direction `json:"direction"`
	Gross         decimal.Decimal  `json:"gross"`
	HasTax        bool             `json:"has_tax"`
	TaxAmount     decimal.Decimal  `json:"tax_amount"`
	Description   string           `json:"description"`
	SeedAccount   string           `json:"seed_account"`
	PONumber      string           `json:"po_number"`
	InvoiceNumber string           `json:"invoice_number"`
	Counterparty  string           `json:"counterparty"`
	Date          string           `json:"date"` // YYYY-MM-DD, optional
}

// SuggestionResponse is the body returned by POST /api/1/suggestions.
type SuggestionResponse struct {
	Suggestion suggest.Suggestion `json:"suggestion"`
	RequestID  string             `json:"request_id,omitempty"`
}

// ToRequest converts the body into an engine request.
func (b SuggestionRequest) ToRequest() (suggest.Request, error) {
	req := suggest.Request{
		Direction:     b.Direction,
		Gross:         b.Gross,
		HasTax:        b.HasTax,
		TaxAmount:     b.TaxAmount,
		Description:   b.Description,
		SeedAccount:   b.SeedAccount,
		PONumber:      b.PONumber,
		InvoiceNumber: b.InvoiceNumber,
		Counterparty:  b.Counterparty,
	}
	if b.Date != "" {
		date, err := time.Parse(ledger.DateLayout, b.Date)
		if err != nil {
			return suggest.Request{}, errors.New("date must be YYYY-MM-DD")
		}
		req.Date = date
	}
	return req, nil
}

// Create handles POST /api/1/suggestions.
func (h *SuggestionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	req, err := body.ToRequest()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	s, err := h.engine.Suggest(r.Context(), req)
	if errors.Is(err, suggest.ErrInvalidRequest) {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("suggestion failed", "error", err, "request_id", GetRequestID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to build suggestion")
		return
	}

	writeJSON(w, http.StatusOK, SuggestionResponse{Suggestion: s, RequestID: GetRequestID(r.Context())})
}
