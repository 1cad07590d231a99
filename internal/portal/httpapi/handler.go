// Package httpapi exposes the portal over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
	"github.com/twh-ops/leadportal/internal/portal/metrics"
	"github.com/twh-ops/leadportal/internal/portal/notify"
	"github.com/twh-ops/leadportal/internal/portal/services/auth"
	"github.com/twh-ops/leadportal/internal/portal/services/leads"
	statssvc "github.com/twh-ops/leadportal/internal/portal/services/stats"
	"github.com/twh-ops/leadportal/internal/portal/storage"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// Handler wires the portal services into an HTTP router.
type Handler struct {
	leads *leads.Service
	auth  *auth.Service
	stats *statssvc.Service
	hub   *notify.Hub
	log   *logger.Logger
}

// New constructs the handler.
func New(leadSvc *leads.Service, authSvc *auth.Service, statsSvc *statssvc.Service, hub *notify.Hub, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Handler{
		leads: leadSvc,
		auth:  authSvc,
		stats: statsSvc,
		hub:   hub,
		log:   log,
	}
}

// Router builds the route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/ws", h.handleWebsocket)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/leads", metrics.Instrument("/api/leads", http.HandlerFunc(h.handleSaveLead)))
		r.Method(http.MethodGet, "/leads", metrics.Instrument("/api/leads", http.HandlerFunc(h.handleGetLead)))
		r.Method(http.MethodPost, "/leads/delete", metrics.Instrument("/api/leads/delete", http.HandlerFunc(h.handleDeleteLead)))
		r.Method(http.MethodGet, "/stats", metrics.Instrument("/api/stats", http.HandlerFunc(h.handleStats)))
		r.Method(http.MethodGet, "/config", metrics.Instrument("/api/config", http.HandlerFunc(h.handleConfig)))

		r.Route("/manager", func(r chi.Router) {
			r.Method(http.MethodPost, "/login", metrics.Instrument("/api/manager/login", http.HandlerFunc(h.handleLogin)))
			r.Method(http.MethodPost, "/update-status", metrics.Instrument("/api/manager/update-status", http.HandlerFunc(h.handleUpdateStatus)))
			r.Method(http.MethodGet, "/data", metrics.Instrument("/api/manager/data", http.HandlerFunc(h.handleManagerData)))
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSaveLead(w http.ResponseWriter, r *http.Request) {
	req := leads.SaveRequest{
		Category:          formValue(r, "type", "category"),
		IsEdit:            parseBool(r.FormValue("is_edit")),
		Handle:            r.FormValue("handle"),
		Agent:             formValue(r, "agent_name", "agent"),
		ClientName:        r.FormValue("client_name"),
		Phone:             formValue(r, "phone_number", "phone"),
		Address:           r.FormValue("address"),
		Email:             r.FormValue("email"),
		CardHolder:        r.FormValue("card_holder"),
		CardNumber:        r.FormValue("card_number"),
		ExpDate:           r.FormValue("exp_date"),
		CVC:               r.FormValue("cvc"),
		ChargeAmt:         r.FormValue("charge_amount"),
		LLC:               r.FormValue("llc"),
		Provider:          formValue(r, "service_provider", "provider"),
		PinCode:           r.FormValue("pin_code"),
		AccountNum:        r.FormValue("account_number"),
		Status:            r.FormValue("status"),
		OrderID:           r.FormValue("order_id"),
		RecordID:          r.FormValue("record_id"),
		TimestampMode:     r.FormValue("timestamp_mode"),
		OriginalTimestamp: r.FormValue("original_timestamp"),
	}

	result, err := h.leads.Save(r.Context(), req)
	if err != nil {
		if errors.Is(err, leads.ErrAmbiguous) {
			writeCandidates(w, result.Candidates)
			return
		}
		h.writeServiceError(w, err)
		return
	}

	msg := "Record updated successfully"
	if result.Created {
		msg = "Record saved successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": msg,
		"data": map[string]any{
			"handle":    result.Handle,
			"record_id": result.Lead.RecordID,
			"timestamp": result.Lead.Timestamp,
			"lead":      result.Lead,
		},
	})
}

func (h *Handler) handleGetLead(w http.ResponseWriter, r *http.Request) {
	category := formValue(r, "type", "category")
	id := formValue(r, "id", "record_id")
	handle := r.FormValue("handle")

	if id == "" && handle == "" {
		records, err := h.leads.List(r.Context(), category)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data":   records,
		})
		return
	}

	result, err := h.leads.Get(r.Context(), category, id, handle)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if len(result.Candidates) > 0 {
		writeCandidates(w, result.Candidates)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"handle": result.Handle,
			"lead":   result.Lead,
		},
	})
}

func (h *Handler) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	category := formValue(r, "type", "category")
	id := formValue(r, "id", "record_id")
	handle := r.FormValue("handle")

	if err := h.leads.Delete(r.Context(), category, id, handle); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Record deleted successfully",
	})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	category := formValue(r, "type", "category")
	id := formValue(r, "id", "record_id")
	handle := r.FormValue("handle")
	status := r.FormValue("status")

	if strings.TrimSpace(status) == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	result, err := h.leads.UpdateStatus(r.Context(), category, id, handle, status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	data := map[string]any{
		"agent":       result.Agent,
		"client_name": result.ClientName,
		"handle":      result.Handle,
	}
	msg := "Status updated successfully"
	if result.Confirmation != "" {
		data["email_body"] = result.Confirmation
		msg = "Payment Approved! Email Generated."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": msg,
		"data":    data,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	id := formValue(r, "id", "username")
	password := r.FormValue("password")

	session, err := h.auth.Login(r.Context(), id, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid ID or password")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Login successful",
		"data":    session,
	})
}

func (h *Handler) handleManagerData(w http.ResponseWriter, r *http.Request) {
	data, err := h.stats.ManagerData(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	category := formValue(r, "type", "category")
	if category == "" {
		all, err := h.stats.ComputeAll(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data":   all,
		})
		return
	}

	result, err := h.stats.Compute(r.Context(), category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   result,
	})
}

// handleConfig serves the form rosters the frontend renders its dropdowns
// from.
func (h *Handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	type categoryConfig struct {
		IDField   string   `json:"id_field"`
		Agents    []string `json:"agents,omitempty"`
		Providers []string `json:"providers,omitempty"`
		LLCs      []string `json:"llcs,omitempty"`
	}

	out := make(map[string]categoryConfig)
	for _, cat := range lead.Categories() {
		out[cat.Name] = categoryConfig{
			IDField:   cat.IDField,
			Agents:    cat.Agents,
			Providers: cat.Providers,
			LLCs:      cat.LLCs,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   out,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Record not found")
	case errors.Is(err, leads.ErrDuplicateID):
		writeError(w, http.StatusConflict, "A record with this ID already exists")
	case errors.Is(err, leads.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, "Unknown lead type")
	case errors.Is(err, storage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeCandidates(w http.ResponseWriter, candidates []lead.Candidate) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "multiple",
		"message":    "Multiple records found with this ID",
		"candidates": candidates,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// formValue returns the first non-empty value among aliases, checking the
// query string as well as the form body.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.FormValue(name); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
