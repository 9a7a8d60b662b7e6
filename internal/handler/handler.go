package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"editionlinks/internal/domain"
	"editionlinks/internal/index"
	"editionlinks/internal/metadata"
	"editionlinks/internal/service"
)

// Reconciler reconciles a single edition
type Reconciler interface {
	Reconcile(ctx context.Context, edition domain.Item) (*service.Result, error)
}

// TitleFinder returns the titles valid for an avis id on a date
type TitleFinder interface {
	WantedTitles(ctx context.Context, avisID, date string) (domain.ItemSet, error)
}

// EditionHandler handles edition reconciliation requests
type EditionHandler struct {
	reconciler Reconciler
	titles     TitleFinder
	logger     *slog.Logger
}

// NewEditionHandler creates a new edition handler
func NewEditionHandler(reconciler Reconciler, titles TitleFinder, logger *slog.Logger) *EditionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EditionHandler{reconciler: reconciler, titles: titles, logger: logger}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Result  *service.Result `json:"result,omitempty"`
}

// TitlesResponse lists the titles valid for an avis id on a date
type TitlesResponse struct {
	AvisID string        `json:"avis_id"`
	Date   string        `json:"date"`
	Titles []domain.Item `json:"titles"`
}

// Register adds the handler routes to mux
func (h *EditionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/editions/{pid}/reconcile", h.Reconcile)
	mux.HandleFunc("GET /api/titles", h.ListTitles)
	mux.HandleFunc("GET /healthz", h.Health)
}

// Reconcile reconciles the relations of one edition. The {pid} segment is a
// bare pid or a repository URI with its slash escaped (info:fedora%2Fuuid:...);
// the mux unescapes the segment and the URI prefix is stripped.
func (h *EditionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	pid := strings.TrimSpace(r.PathValue("pid"))
	if pid == "" {
		h.writeError(w, "Invalid edition", "edition pid is required", http.StatusBadRequest, nil)
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), domain.NewItem(domain.FromURI(pid)))
	if err != nil {
		h.logger.Warn("reconcile request failed", "edition", pid, "error", err)
		status, msg := statusFor(err)
		h.writeError(w, msg, err.Error(), status, result)
		return
	}

	h.writeJSON(w, result, http.StatusOK)
}

// ListTitles returns the titles an edition of avis_id issued on date would
// be linked to
func (h *EditionHandler) ListTitles(w http.ResponseWriter, r *http.Request) {
	avisID := r.URL.Query().Get("avis_id")
	date := r.URL.Query().Get("date")
	if avisID == "" || date == "" {
		h.writeError(w, "Invalid query", "avis_id and date are required", http.StatusBadRequest, nil)
		return
	}

	titles, err := h.titles.WantedTitles(r.Context(), avisID, date)
	if err != nil {
		h.logger.Warn("title query failed", "avis_id", avisID, "date", date, "error", err)
		status, msg := statusFor(err)
		h.writeError(w, msg, err.Error(), status, nil)
		return
	}

	h.writeJSON(w, TitlesResponse{AvisID: avisID, Date: date, Titles: titles.Sorted()}, http.StatusOK)
}

// Health reports that the server is up
func (h *EditionHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// statusFor maps a reconciliation error to an HTTP status
func statusFor(err error) (int, string) {
	var transport *domain.TransportError
	switch {
	case metadata.IsMissing(err):
		return http.StatusUnprocessableEntity, "Edition metadata incomplete"
	case index.IsQueryError(err):
		return http.StatusBadGateway, "Title index query failed"
	case errors.Is(err, domain.ErrPublished):
		return http.StatusConflict, "Edition is published"
	case errors.As(err, &transport):
		return http.StatusBadGateway, "Repository request failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled"
	}
	return http.StatusInternalServerError, "Reconciliation failed"
}

// Helper methods

func (h *EditionHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *EditionHandler) writeError(w http.ResponseWriter, error, details string, statusCode int, result *service.Result) {
	h.writeJSON(w, ErrorResponse{
		Error:   error,
		Details: details,
		Result:  result,
	}, statusCode)
}
