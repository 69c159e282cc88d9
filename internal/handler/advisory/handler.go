package advisory

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	advisorymodel "github.com/crowdshield/dashboard/backend/internal/model/advisory"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// Generator is the advisory surface used by the handler. *advisory.Generator
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, req advisorymodel.Request) advisorymodel.Advisory
	Stream(ctx context.Context, req advisorymodel.Request, emit func(chunk string) error) (advisorymodel.Advisory, error)
	CachedAdvisories() map[string]string
}

type Handler struct {
	generator Generator
	logger    *zap.Logger
}

func New(generator Generator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{generator: generator, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/advisory", func(ar chi.Router) {
		ar.Post("/", h.handleGenerate)
		ar.Get("/stream", h.handleStream)
		ar.Get("/cache", h.handleCache)
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req advisorymodel.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.generator.Generate(r.Context(), req))
}

// handleStream emits "delta" events with text chunks and a final "done"
// event carrying the whole advisory. Drivers arrive as repeated or
// comma-separated query values.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := advisorymodel.Request{
		Severity: strings.TrimSpace(query.Get("severity")),
		Role:     strings.TrimSpace(query.Get("role")),
		Drivers:  splitDrivers(query["drivers"]),
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	utils.SendSSEEvent(w, flusher, "start", map[string]string{"severity": req.Severity})
	adv, err := h.generator.Stream(r.Context(), req, func(chunk string) error {
		if err := r.Context().Err(); err != nil {
			return err
		}
		utils.SendSSEEvent(w, flusher, "delta", map[string]string{"content": chunk})
		return nil
	})
	if err != nil {
		h.logger.Warn("advisory stream ended early", zap.String("severity", req.Severity), zap.Error(err))
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}
	utils.SendSSEEvent(w, flusher, "done", adv)
}

func (h *Handler) handleCache(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.generator.CachedAdvisories())
}

func splitDrivers(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
