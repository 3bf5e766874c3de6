// Package shared holds the JSON envelope helpers every handler uses.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "genkan/pkg/domain-errors"
)

// statusByCode maps the closed error taxonomy to HTTP statuses. Codes
// outside the map are internal faults.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeGuestNotFound:           http.StatusNotFound,
	dErrors.CodeNotFound:                http.StatusNotFound,
	dErrors.CodeAlreadyCheckedIn:        http.StatusConflict,
	dErrors.CodeNotCheckedIn:            http.StatusConflict,
	dErrors.CodeGuestCurrentlyCheckedIn: http.StatusConflict,
	dErrors.CodeSequenceLimitExceeded:   http.StatusConflict,
	dErrors.CodeDisplayIDGenerationFail: http.StatusServiceUnavailable,
	dErrors.CodeInvalidRange:            http.StatusBadRequest,
	dErrors.CodeInvalidInput:            http.StatusBadRequest,
	dErrors.CodeForbidden:               http.StatusForbidden,
	dErrors.CodeInternal:                http.StatusInternalServerError,
}

// ErrorBody is the error envelope: a machine code plus a human message.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError renders a domain error as its mapped status and envelope.
// Internal faults deliberately carry no message detail.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := ErrorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Message = de.Message
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON renders a success payload.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// DecodeJSON parses a request body, rejecting unknown fields so typos in
// client payloads fail loudly instead of silently dropping data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	return nil
}
