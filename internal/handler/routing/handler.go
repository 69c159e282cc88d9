package routing

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/model/geo"
	"github.com/crowdshield/dashboard/backend/internal/model/route"
	"github.com/crowdshield/dashboard/backend/internal/service/routing"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

type Planner interface {
	Plan(ctx context.Context, req route.Request, hazards []geo.Hazard, shelters []geo.Shelter) (route.Route, error)
}

// GraphRefresher rebuilds the street graph. *routing.Loader satisfies it.
type GraphRefresher interface {
	Refresh(ctx context.Context) (*routing.Graph, error)
	Source() string
}

type StateSource interface {
	StateData(ctx context.Context, name string) geo.StateData
}

type Handler struct {
	planner Planner
	graph   GraphRefresher
	states  StateSource
	logger  *zap.Logger
}

func New(planner Planner, graph GraphRefresher, states StateSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{planner: planner, graph: graph, states: states, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Post("/routes", h.handlePlan)

	r.Group(func(op chi.Router) {
		if protect != nil {
			op.Use(protect)
		}
		op.Post("/routes/refresh", h.handleRefresh)
	})
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req route.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var hazards []geo.Hazard
	var shelters []geo.Shelter
	if req.State != "" {
		sd := h.states.StateData(r.Context(), req.State)
		hazards, shelters = sd.Hazards, sd.Shelters
	}

	out, err := h.planner.Plan(r.Context(), req, hazards, shelters)
	if errors.Is(err, routing.ErrNoTarget) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("route planning failed", zap.String("state", req.State), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "route planning failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	g, err := h.graph.Refresh(r.Context())
	if err != nil {
		h.logger.Error("graph refresh failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"source": h.graph.Source(),
		"nodes":  g.NumNodes(),
		"edges":  g.NumEdges(),
	})
}
