package system

import (
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/pkg/utils"
)

// Moder is any component that reports its live/fallback mode.
type Moder interface {
	Mode() config.Mode
}

// Handler serves liveness and integration status.
type Handler struct {
	integrations []config.IntegrationStatus
	components   map[string]Moder
	started      time.Time
	logger       *zap.Logger
}

func New(integrations []config.IntegrationStatus, components map[string]Moder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		integrations: integrations,
		components:   components,
		started:      time.Now(),
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/integrations", h.handleIntegrations)
}

type processStats struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
	}
	stats, err := selfStats()
	if err != nil {
		h.logger.Debug("process stats unavailable", zap.Error(err))
	} else {
		payload["process"] = stats
	}
	utils.RespondJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleIntegrations(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make([]map[string]string, 0, len(names))
	for _, name := range names {
		components = append(components, map[string]string{
			"name": name,
			"mode": string(h.components[name].Mode()),
		})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"credentials": h.integrations,
		"components":  components,
	})
}

func selfStats() (processStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return processStats{}, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return processStats{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return processStats{}, err
	}
	return processStats{
		PID:        p.Pid,
		RSSBytes:   mem.RSS,
		CPUPercent: cpu,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}
