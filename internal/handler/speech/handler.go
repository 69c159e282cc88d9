package speech

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	speechmodel "github.com/crowdshield/dashboard/backend/internal/model/speech"
	speechsvc "github.com/crowdshield/dashboard/backend/internal/service/speech"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// SpeechService abstracts the synthesizer so tests can swap it.
type SpeechService interface {
	Synthesize(ctx context.Context, text, lang, filename string) (speechmodel.Result, error)
	Resolve(name string) (string, error)
	Engines() map[string]bool
}

// Handler serves speech synthesis and the generated artifacts.
type Handler struct {
	speechSvc SpeechService
	logger    *zap.Logger
}

func New(speechSvc SpeechService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{speechSvc: speechSvc, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(sr chi.Router) {
		sr.Post("/synthesize", h.handleSynthesize)
		sr.Get("/engines", h.handleEngines)
	})
	r.Get("/audio/{name}", h.handleAudio)
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speechmodel.SynthesizeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.speechSvc.Synthesize(r.Context(), req.Text, req.Lang, req.Filename)
	switch {
	case errors.Is(err, speechsvc.ErrEmptyText), errors.Is(err, speechsvc.ErrInvalidName):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Warn("speech synthesis failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "speech synthesis failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleEngines(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.speechSvc.Engines())
}

// handleAudio streams a generated artifact with a sniffed content type.
func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	path, err := h.speechSvc.Resolve(chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, speechsvc.ErrInvalidName):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, fs.ErrNotExist):
		utils.RespondError(w, http.StatusNotFound, "audio not found")
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, "audio unavailable")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "audio not found")
		return
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "audio unreadable")
		return
	}
	info, err := f.Stat()
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "audio unreadable")
		return
	}

	w.Header().Set("Content-Type", mtype.String())
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
