package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/compliance"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
)

// ComplianceHandler wires configuration and pre-flight check endpoints.
// The check endpoints run the same engine the ledger consults, so
// integrators can surface a rejection to users before submitting the
// real operation.
type ComplianceHandler struct {
	config  *compliance.ConfigService
	engine  compliance.Engine
	tracker *compliance.Tracker
	logger  *slog.Logger
}

func NewComplianceHandler(config *compliance.ConfigService, engine compliance.Engine, tracker *compliance.Tracker, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{config: config, engine: engine, tracker: tracker, logger: logger}
}

func (h *ComplianceHandler) Register(r chi.Router) {
	r.Put("/compliance/config", h.handleSetAll)
	r.Get("/compliance/config", h.handleGetAll)
	r.Put("/compliance/countries", h.handleSetCountries)
	r.Put("/compliance/backdating", h.handleSetBackDating)
	r.Get("/compliance/counters", h.handleGetCounters)
	r.Post("/compliance/check/issuance", h.handleCheckIssuance)
	r.Post("/compliance/check/transfer", h.handleCheckTransfer)
}

type setAllRequest struct {
	Rules []uint64 `json:"rules"`
	Flags []bool   `json:"flags"`
}

func (h *ComplianceHandler) handleSetAll(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setAllRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.config.SetAll(r.Context(), req.Rules, req.Flags); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

type configResponse struct {
	Rules     map[string]uint64 `json:"rules"`
	Flags     map[string]bool   `json:"flags"`
	Countries map[string]string `json:"countries"`
}

func (h *ComplianceHandler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.GetAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := configResponse{
		Rules:     make(map[string]uint64, compliance.NumRules),
		Flags:     make(map[string]bool, compliance.NumFlags),
		Countries: make(map[string]string, len(cfg.Countries)),
	}
	for i, v := range cfg.Rules {
		resp.Rules[compliance.RuleName(i)] = v
	}
	for i, v := range cfg.Flags {
		resp.Flags[compliance.FlagName(i)] = v
	}
	for country, region := range cfg.Countries {
		resp.Countries[country] = region.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type setCountriesRequest struct {
	Countries []string `json:"countries"`
	Regions   []string `json:"regions"`
}

func (h *ComplianceHandler) handleSetCountries(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setCountriesRequest](w, r, h.logger)
	if !ok {
		return
	}
	regions := make([]compliance.Region, 0, len(req.Regions))
	for _, raw := range req.Regions {
		region, ok := compliance.ParseRegion(raw)
		if !ok {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown region %q", raw))
			return
		}
		regions = append(regions, region)
	}
	if err := h.config.SetCountriesCompliance(r.Context(), req.Countries, regions); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"classified": len(req.Countries)})
}

type setBackDatingRequest struct {
	Disallow bool `json:"disallow"`
}

func (h *ComplianceHandler) handleSetBackDating(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setBackDatingRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.config.SetDisallowBackDating(r.Context(), req.Disallow); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"disallow_back_dating": req.Disallow})
}

func (h *ComplianceHandler) handleGetCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := h.tracker.Counters(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{
		"total": counters.Total,
		"us":    counters.US,
		"eu":    counters.EU,
		"jp":    counters.JP,
	})
}

type checkIssuanceRequest struct {
	Wallet       string `json:"wallet"`
	Value        uint64 `json:"value"`
	IssuanceTime int64  `json:"issuance_time,omitempty"`
}

func (h *ComplianceHandler) handleCheckIssuance(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[checkIssuanceRequest](w, r, h.logger)
	if !ok {
		return
	}
	wallet, err := id.ParseAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var issuanceTime time.Time
	if req.IssuanceTime > 0 {
		issuanceTime = time.Unix(req.IssuanceTime, 0).UTC()
	}
	verdict, err := h.engine.PreIssuanceCheck(r.Context(), wallet, req.Value, issuanceTime)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verdict)
}

type checkTransferRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value uint64 `json:"value"`
}

func (h *ComplianceHandler) handleCheckTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[checkTransferRequest](w, r, h.logger)
	if !ok {
		return
	}
	from, err := id.ParseAddress(req.From)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := id.ParseAddress(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verdict, err := h.engine.PreTransferCheck(r.Context(), from, to, req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verdict)
}
