package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// relayPayload is the envelope carried in a relayed message's data field:
// the gateway operation the investor signed off on.
type relayPayload struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// RouterForwarder executes relayed payloads by dispatching them through
// the regular operation routes in-process. The relay has already set the
// caller on the context, so the usual authorization applies to the
// investor's wallet, not to the relaying account.
type RouterForwarder struct {
	handler http.Handler
}

func NewRouterForwarder(handler http.Handler) *RouterForwarder {
	return &RouterForwarder{handler: handler}
}

func (f *RouterForwarder) Forward(ctx context.Context, _ id.Address, data []byte) error {
	var payload relayPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return dErrors.New(dErrors.CodeValidation, "relay payload is not a valid operation envelope")
	}
	switch payload.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "relay payload method %q is not allowed", payload.Method)
	}
	if !strings.HasPrefix(payload.Path, "/") || strings.HasPrefix(payload.Path, "/relay") {
		return dErrors.Newf(dErrors.CodeValidation, "relay payload path %q is not allowed", payload.Path)
	}

	req, err := http.NewRequestWithContext(ctx, payload.Method, payload.Path, bytes.NewReader(payload.Body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build relayed request")
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code < http.StatusBadRequest {
		return nil
	}
	return errorFromResponse(rec.Body.Bytes(), rec.Code)
}

// errorFromResponse rebuilds a domain error from a forwarded operation's
// wire response so relay callers see the same codes as direct callers.
func errorFromResponse(body []byte, status int) error {
	var wire struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		RuleCode    *int   `json:"rule_code"`
	}
	if err := json.Unmarshal(body, &wire); err != nil || wire.Error == "" {
		return dErrors.Newf(dErrors.CodeInternal, "relayed operation failed with status %d", status)
	}
	if wire.RuleCode != nil {
		return dErrors.NewCompliance(*wire.RuleCode, wire.Description)
	}
	code := dErrors.Code(wire.Error)
	switch code {
	case dErrors.CodeUnauthorized, dErrors.CodeForbidden, dErrors.CodeValidation,
		dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeInvalidState,
		dErrors.CodeNotFound, dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return dErrors.New(code, wire.Description)
	default:
		return dErrors.Newf(dErrors.CodeInternal, "relayed operation failed with status %d", status)
	}
}
