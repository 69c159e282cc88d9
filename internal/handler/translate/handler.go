package translate

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	translatemodel "github.com/crowdshield/dashboard/backend/internal/model/translate"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

type Translator interface {
	Translate(ctx context.Context, text, lang string) translatemodel.Translation
	Labels(lang string) map[string]string
	Languages() []string
}

type Handler struct {
	translator Translator
}

func New(translator Translator) *Handler {
	return &Handler{translator: translator}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/translate", h.handleTranslate)
	r.Get("/i18n", h.handleLanguages)
	r.Get("/i18n/{lang}", h.handleLabels)
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translatemodel.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.translator.Translate(r.Context(), req.Text, req.Lang))
}

func (h *Handler) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string][]string{"languages": h.translator.Languages()})
}

func (h *Handler) handleLabels(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"lang":   lang,
		"labels": h.translator.Labels(lang),
	})
}
