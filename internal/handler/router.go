package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/auth"
	"github.com/crowdshield/dashboard/backend/internal/config"
	advisoryhandler "github.com/crowdshield/dashboard/backend/internal/handler/advisory"
	alerthandler "github.com/crowdshield/dashboard/backend/internal/handler/alert"
	reporthandler "github.com/crowdshield/dashboard/backend/internal/handler/report"
	routinghandler "github.com/crowdshield/dashboard/backend/internal/handler/routing"
	speechhandler "github.com/crowdshield/dashboard/backend/internal/handler/speech"
	statehandler "github.com/crowdshield/dashboard/backend/internal/handler/state"
	systemhandler "github.com/crowdshield/dashboard/backend/internal/handler/system"
	translatehandler "github.com/crowdshield/dashboard/backend/internal/handler/translate"
	"github.com/crowdshield/dashboard/backend/internal/handler/web"
	middlewarePkg "github.com/crowdshield/dashboard/backend/internal/middleware"
	"github.com/crowdshield/dashboard/backend/internal/service/advisory"
	"github.com/crowdshield/dashboard/backend/internal/service/alert"
	"github.com/crowdshield/dashboard/backend/internal/service/broadcast"
	"github.com/crowdshield/dashboard/backend/internal/service/data"
	"github.com/crowdshield/dashboard/backend/internal/service/report"
	"github.com/crowdshield/dashboard/backend/internal/service/routing"
	"github.com/crowdshield/dashboard/backend/internal/service/situation"
	"github.com/crowdshield/dashboard/backend/internal/service/speech"
	"github.com/crowdshield/dashboard/backend/internal/service/translate"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// Deps carries the services behind the API. Nil members leave their routes
// answering 503.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Data       *data.Service
	Reports    *report.Service
	Situation  *situation.Service
	Advisory   *advisory.Generator
	Dispatcher *alert.Dispatcher
	Broadcast  *broadcast.Service
	Speech     *speech.Service
	Translate  *translate.Service
	Planner    *routing.Planner
	Signer     *auth.Signer
	Components map[string]systemhandler.Moder
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	r.Use(middlewarePkg.Metrics)

	r.Handle("/metrics", promhttp.Handler())
	web.RegisterRoutes(r)

	var validator middlewarePkg.TokenValidator
	if deps.Signer != nil {
		validator = deps.Signer
	}
	protect := middlewarePkg.RequireOperator(validator)

	var integrations []config.IntegrationStatus
	if deps.Config != nil {
		integrations = deps.Config.Integrations()
	}

	r.Route("/api", func(api chi.Router) {
		if deps.Config != nil && deps.Config.Server.RateLimitRPS > 0 {
			api.Use(middlewarePkg.RateLimit(middlewarePkg.NewTokenBucket(deps.Config.Server.RateLimitRPS, deps.Config.Server.RateLimitBurst)))
		}

		systemhandler.New(integrations, deps.Components, logger).RegisterRoutes(api)

		if deps.Data != nil {
			var clearers []func()
			if deps.Planner != nil {
				clearers = append(clearers, deps.Planner.Loader().Reset)
			}
			var assessor statehandler.Assessor
			if deps.Situation != nil {
				assessor = deps.Situation
			}
			var reports statehandler.ReportLister
			if deps.Reports != nil {
				reports = deps.Reports
			}
			statehandler.New(deps.Data, assessor, reports, logger, clearers...).RegisterRoutes(api, protect)
		} else {
			unavailable(api, "state data", "/states", "/states/*", "/map/*", "/risk/*", "/cache")
		}

		if deps.Advisory != nil {
			advisoryhandler.New(deps.Advisory, logger).RegisterRoutes(api)
		} else {
			unavailable(api, "advisory", "/advisory", "/advisory/*")
		}

		if deps.Dispatcher != nil {
			var broadcaster alerthandler.Broadcaster
			if deps.Broadcast != nil {
				broadcaster = deps.Broadcast
			}
			var assessor alerthandler.Assessor
			if deps.Situation != nil {
				assessor = deps.Situation
			}
			alerthandler.New(deps.Dispatcher, deps.Dispatcher.Outbox(), broadcaster, assessor, logger).RegisterRoutes(api, protect)
		} else {
			unavailable(api, "alerts", "/alerts/*")
		}

		if deps.Speech != nil {
			speechhandler.New(deps.Speech, logger).RegisterRoutes(api)
		} else {
			unavailable(api, "speech", "/speech/*", "/audio/*")
		}

		if deps.Translate != nil {
			translatehandler.New(deps.Translate).RegisterRoutes(api)
		} else {
			unavailable(api, "translation", "/translate", "/i18n", "/i18n/*")
		}

		if deps.Planner != nil && deps.Data != nil {
			routinghandler.New(deps.Planner, deps.Planner.Loader(), deps.Data, logger).RegisterRoutes(api, protect)
		} else {
			unavailable(api, "routing", "/routes", "/routes/*")
		}

		if deps.Reports != nil {
			reporthandler.New(deps.Reports, logger).RegisterRoutes(api)
		} else {
			unavailable(api, "reports", "/reports", "/reports/*")
		}
	})

	return r
}

func unavailable(r chi.Router, name string, patterns ...string) {
	h := func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusServiceUnavailable, name+" unavailable")
	}
	for _, p := range patterns {
		r.HandleFunc(p, h)
	}
}
