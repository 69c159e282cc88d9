package alert

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	alertmodel "github.com/crowdshield/dashboard/backend/internal/model/alert"
	broadcastmodel "github.com/crowdshield/dashboard/backend/internal/model/broadcast"
	"github.com/crowdshield/dashboard/backend/internal/service/broadcast"
	"github.com/crowdshield/dashboard/backend/internal/service/situation"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

type Sender interface {
	Send(ctx context.Context, message, to string) alertmodel.Result
}

// OutboxReader lists messages held by the mock sender. *alert.Outbox
// satisfies it.
type OutboxReader interface {
	List() []alertmodel.OutboxEntry
}

type Broadcaster interface {
	Broadcast(ctx context.Context, req broadcastmodel.Request) (broadcastmodel.Result, error)
}

type Assessor interface {
	Assess(ctx context.Context, state string) situation.Assessment
}

// Handler serves single SMS alerts, the mock outbox and multi-language
// broadcasts.
type Handler struct {
	sender      Sender
	outbox      OutboxReader
	broadcaster Broadcaster
	assessor    Assessor
	logger      *zap.Logger
}

func New(sender Sender, outbox OutboxReader, broadcaster Broadcaster, assessor Assessor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sender: sender, outbox: outbox, broadcaster: broadcaster, assessor: assessor, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Route("/alerts", func(ar chi.Router) {
		ar.Get("/outbox", h.handleOutbox)
		ar.Group(func(op chi.Router) {
			if protect != nil {
				op.Use(protect)
			}
			op.Post("/sms", h.handleSMS)
			op.Post("/broadcast", h.handleBroadcast)
		})
	})
}

// handleSMS always answers 200 with the (sent, detail) pair. A mock or
// failed send is not an HTTP error.
func (h *Handler) handleSMS(w http.ResponseWriter, r *http.Request) {
	var req alertmodel.SMSRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.sender.Send(r.Context(), req.Message, req.To))
}

func (h *Handler) handleOutbox(w http.ResponseWriter, _ *http.Request) {
	messages := []alertmodel.OutboxEntry{}
	if h.outbox != nil {
		messages = h.outbox.List()
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "broadcast unavailable")
		return
	}
	var req broadcastmodel.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Severity == "" && h.assessor != nil {
		assessment := h.assessor.Assess(r.Context(), req.State)
		req.Severity = assessment.Decision.Severity
		if len(req.Drivers) == 0 {
			req.Drivers = assessment.Decision.Drivers
		}
	}

	res, err := h.broadcaster.Broadcast(r.Context(), req)
	if errors.Is(err, broadcast.ErrSeverityRequired) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Warn("broadcast failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "broadcast failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}
