// Package httputil centralizes JSON encoding and domain-error translation
// for HTTP handlers so transport concerns stay out of services.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "ledgergate/pkg/domain-errors"
)

// errorBody is the wire shape for failures. rule_code is present only for
// compliance failures so integrators can branch programmatically.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	RuleCode    *int   `json:"rule_code,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates a domain error into an HTTP response. Internal
// errors omit the description so infrastructure details never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	body := errorBody{Error: wireCode(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message()
		} else {
			body.Description = err.Error()
		}
	}
	if rc, ok := dErrors.RuleCode(err); ok {
		body.RuleCode = &rc
	}
	WriteJSON(w, status, body)
}

// Decode parses a JSON request body into T. On failure it writes a
// bad_request response and logs the cause; the caller should return.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "malformed request body", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		var zero T
		return zero, false
	}
	return req, true
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidState, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeCompliance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func wireCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeInternal:
		return "internal_error"
	default:
		return string(code)
	}
}
