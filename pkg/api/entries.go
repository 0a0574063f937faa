package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/ledger"
)

// ValidateResponse is the body returned for an entry that passes validation.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// ValidateEntry handles POST /api/1/entries/validate.
// A rejected entry answers 422 with the offending field.
func ValidateEntry(w http.ResponseWriter, r *http.Request) {
	var entry ledger.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	if err := ledger.ValidateEntry(entry); err != nil {
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:            "validation_failed",
				ErrorDescription: verr.Message,
				Field:            verr.Field,
			})
			return
		}
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
}
