package leads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

const maxListLimit = 100

// Handler serves the admin lead endpoints.
type Handler struct {
	repo    Repository
	archive *ExportArchive
	logger  *logging.Logger
}

// NewHandler creates a new leads handler. archive may be nil.
func NewHandler(repo Repository, archive *ExportArchive, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:    repo,
		archive: archive,
		logger:  logger,
	}
}

// Routes mounts the handler under a router, typically at /admin/leads.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ListLeads)
	r.Delete("/", h.ClearLeads)
	r.Get("/export.json", h.ExportJSON)
	r.Get("/export.csv", h.ExportCSV)
	r.Post("/export/archive", h.ArchiveExport)
	r.Get("/{leadID}", h.GetLead)
	r.Delete("/{leadID}", h.DeleteLead)
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads []*LeadRecord `json:"leads"`
	Count int           `json:"count"`
	Limit int           `json:"limit"`
}

// ListLeads handles GET /admin/leads?limit=
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= maxListLimit {
			limit = n
		}
	}

	leads, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ListLeadsResponse{Leads: leads, Count: len(leads), Limit: limit})
}

// GetLead handles GET /admin/leads/{leadID}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "leadID")
	lead, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load lead", "error", err, "lead_id", id)
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// DeleteLead handles DELETE /admin/leads/{leadID}
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "leadID")
	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete lead", "error", err, "lead_id", id)
		http.Error(w, "failed to delete lead", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "lead not found", http.StatusNotFound)
		return
	}
	h.logger.Info("lead deleted", "lead_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ClearLeads handles DELETE /admin/leads
func (h *Handler) ClearLeads(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear leads", "error", err)
		http.Error(w, "failed to clear leads", http.StatusInternalServerError)
		return
	}
	h.logger.Warn("all leads cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ExportJSON handles GET /admin/leads/export.json
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "json", "application/json", ExportJSON)
}

// ExportCSV handles GET /admin/leads/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv; charset=utf-8", ExportCSV)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, []*LeadRecord) error) {
	leads, err := h.repo.List(r.Context(), 0)
	if err != nil {
		h.logger.Error("failed to list leads for export", "error", err)
		http.Error(w, "failed to export leads", http.StatusInternalServerError)
		return
	}
	// Encode fully before any header is written.
	var buf bytes.Buffer
	if err := write(&buf, leads); err != nil {
		h.logger.Error("failed to encode lead export", "error", err, "format", ext)
		http.Error(w, "failed to export leads", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("leads-%s.%s", time.Now().UTC().Format("2006-01-02"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ArchiveExport handles POST /admin/leads/export/archive
func (h *Handler) ArchiveExport(w http.ResponseWriter, r *http.Request) {
	if !h.archive.Enabled() {
		http.Error(w, "export archive is not configured", http.StatusServiceUnavailable)
		return
	}
	leads, err := h.repo.List(r.Context(), 0)
	if err != nil {
		h.logger.Error("failed to list leads for archive", "error", err)
		http.Error(w, "failed to archive leads", http.StatusInternalServerError)
		return
	}
	res, err := h.archive.Upload(r.Context(), leads)
	if err != nil {
		h.logger.Error("failed to archive leads", "error", err)
		http.Error(w, "failed to archive leads", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
