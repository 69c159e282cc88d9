package state

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/model/geo"
	reportmodel "github.com/crowdshield/dashboard/backend/internal/model/report"
	statemodel "github.com/crowdshield/dashboard/backend/internal/model/state"
	"github.com/crowdshield/dashboard/backend/internal/service/data"
	"github.com/crowdshield/dashboard/backend/internal/service/situation"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// DataService is the slice of *data.Service the handler needs.
type DataService interface {
	States() statemodel.Store
	StateData(ctx context.Context, name string) geo.StateData
	PreloadAll(ctx context.Context) ([]string, error)
	Preloaded() []string
	ClearCaches()
	Lookup(name string) (statemodel.State, error)
}

type Assessor interface {
	Assess(ctx context.Context, state string) situation.Assessment
}

type ReportLister interface {
	List(ctx context.Context, state string, limit int) ([]reportmodel.Report, error)
}

const mapReportLimit = 200

// Handler serves the state catalog, map layers and risk assessments.
type Handler struct {
	data     DataService
	assessor Assessor
	reports  ReportLister
	clearers []func()
	logger   *zap.Logger
}

// New builds the handler. clearers run alongside the data caches on
// DELETE /cache.
func New(data DataService, assessor Assessor, reports ReportLister, logger *zap.Logger, clearers ...func()) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{data: data, assessor: assessor, reports: reports, clearers: clearers, logger: logger}
}

// RegisterRoutes mounts the read routes on r and the mutating ones behind
// protect.
func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Get("/states", h.handleList)
	r.Get("/states/{state}", h.handleGet)
	r.Get("/map/{state}", h.handleMap)
	r.Post("/risk/{state}", h.handleRisk)

	r.Group(func(op chi.Router) {
		if protect != nil {
			op.Use(protect)
		}
		op.Post("/states/preload", h.handlePreload)
		op.Delete("/cache", h.handleClearCache)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"states":    h.data.States().List(),
		"preloaded": h.data.Preloaded(),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := h.data.Lookup(chi.URLParam(r, "state"))
	if errors.Is(err, data.ErrUnknownState) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"state": st,
		"data":  h.data.StateData(r.Context(), st.Name),
	})
}

func (h *Handler) handlePreload(w http.ResponseWriter, r *http.Request) {
	names, err := h.data.PreloadAll(r.Context())
	if err != nil {
		h.logger.Warn("preload failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "preload failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"preloaded": names})
}

func (h *Handler) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	h.data.ClearCaches()
	for _, fn := range h.clearers {
		fn()
	}
	h.logger.Info("caches cleared")
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	st := h.data.States().Resolve(chi.URLParam(r, "state"))
	sd := h.data.StateData(r.Context(), st.Name)

	shelters, crowd := data.PointFeatures(sd.Shelters, sd.Crowd)
	reports := geojson.NewFeatureCollection()
	if h.reports != nil {
		list, err := h.reports.List(r.Context(), st.Name, mapReportLimit)
		if err != nil {
			h.logger.Warn("list reports for map failed", zap.String("state", st.Name), zap.Error(err))
		}
		reports = ReportFeatures(list)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"state":   st.Name,
		"center":  [2]float64{st.Lat, st.Lon},
		"zoom":    st.Zoom,
		"weather": sd.Weather,
		"layers": map[string]*geojson.FeatureCollection{
			"hazards":  data.HazardFeatures(sd.Hazards),
			"shelters": shelters,
			"crowd":    crowd,
			"reports":  reports,
		},
	})
}

func (h *Handler) handleRisk(w http.ResponseWriter, r *http.Request) {
	if h.assessor == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "risk assessment unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.assessor.Assess(r.Context(), chi.URLParam(r, "state")))
}

// ReportFeatures renders incident reports as styled GeoJSON points.
func ReportFeatures(reports []reportmodel.Report) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rep := range reports {
		f := geojson.NewFeature(orb.Point{rep.Lon, rep.Lat})
		f.Properties["id"] = rep.ID
		f.Properties["type"] = rep.Type
		f.Properties["severity"] = rep.Severity
		f.Properties["note"] = rep.Note
		f.Properties["color"] = geo.RiskColor(rep.Severity)
		fc.Append(f)
	}
	return fc
}
