package report

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reportmodel "github.com/crowdshield/dashboard/backend/internal/model/report"
	"github.com/crowdshield/dashboard/backend/internal/service/report"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// ReportService is the slice of *report.Service the handler needs.
type ReportService interface {
	Create(ctx context.Context, req reportmodel.CreateRequest) (reportmodel.Report, error)
	Get(ctx context.Context, id string) (reportmodel.Report, error)
	List(ctx context.Context, state string, limit int) ([]reportmodel.Report, error)
	Search(ctx context.Context, query string, limit int) ([]reportmodel.Report, error)
}

type Handler struct {
	reports ReportService
	logger  *zap.Logger
}

func New(reports ReportService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reports: reports, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
	})
}

// handleList lists reports newest first. q switches to full-text search.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var (
		reports []reportmodel.Report
		err     error
	)
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		reports, err = h.reports.Search(r.Context(), q, limit)
	} else {
		reports, err = h.reports.List(r.Context(), query.Get("state"), limit)
	}
	if err != nil {
		h.logger.Error("failed to list reports", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []reportmodel.Report{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req reportmodel.CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.reports.Create(r.Context(), req)
	if errors.Is(err, report.ErrEmptyType) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to save report", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to save report")
		return
	}
	h.logger.Info("report submitted",
		zap.String("id", created.ID),
		zap.String("type", created.Type),
		zap.String("severity", created.Severity),
		zap.String("state", created.State))
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, report.ErrReportNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, found)
}
