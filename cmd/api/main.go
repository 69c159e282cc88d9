package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/analysis/risk"
	"github.com/crowdshield/dashboard/backend/internal/auth"
	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/handler"
	"github.com/crowdshield/dashboard/backend/internal/handler/system"
	"github.com/crowdshield/dashboard/backend/internal/logging"
	statemodel "github.com/crowdshield/dashboard/backend/internal/model/state"
	"github.com/crowdshield/dashboard/backend/internal/service/advisory"
	"github.com/crowdshield/dashboard/backend/internal/service/ai"
	"github.com/crowdshield/dashboard/backend/internal/service/alert"
	"github.com/crowdshield/dashboard/backend/internal/service/broadcast"
	"github.com/crowdshield/dashboard/backend/internal/service/data"
	"github.com/crowdshield/dashboard/backend/internal/service/report"
	"github.com/crowdshield/dashboard/backend/internal/service/routing"
	"github.com/crowdshield/dashboard/backend/internal/service/situation"
	"github.com/crowdshield/dashboard/backend/internal/service/speech"
	"github.com/crowdshield/dashboard/backend/internal/service/translate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	boot := zap.Must(zap.NewProduction())
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		boot.Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("failed to load .env file, continuing with process environment", zap.Error(envErr))
	}
	for _, status := range cfg.Integrations() {
		logger.Info("integration",
			zap.String("name", status.Name),
			zap.String("mode", string(status.Mode)),
			zap.Strings("missing", status.Missing))
	}

	reports, err := newReportService(cfg.Reports, logger)
	if err != nil {
		logger.Fatal("failed to open report storage", zap.Error(err))
	}
	defer func() {
		if err := reports.Close(); err != nil {
			logger.Warn("failed to close report storage", zap.Error(err))
		}
	}()

	factory := ai.NewFactory(cfg.LLM)

	cache, err := advisory.LoadCache(cfg.Data.AdvisoryCachePath())
	if err != nil {
		logger.Warn("advisory cache unreadable, starting empty", zap.Error(err))
	}
	advisor := advisory.NewGenerator(ctx, factory, cache, cfg.LLM.MaxTokens, logger)

	translator, err := translate.NewService(ctx, factory, 0, logger)
	if err != nil {
		logger.Fatal("failed to load translation labels", zap.Error(err))
	}

	speechSvc := speech.NewService(cfg.Speech, logger)
	dispatcher := alert.NewDispatcher(cfg.SMS, logger)
	weather := data.NewWeatherClient(cfg.Weather, logger)
	dataSvc := data.NewService(cfg.Data.Dir, statemodel.NewMemoryStore(statemodel.MustSeed()), weather, logger,
		data.WithHazardSpread(cfg.Data.HazardSpreadKm))

	analyzer, err := risk.NewAnalyzer()
	if err != nil {
		logger.Fatal("failed to build risk analyzer", zap.Error(err))
	}

	loader := routing.NewLoader(cfg.Routing, logger,
		routing.WithDownloader(routing.NewOverpassClient(cfg.Routing.OverpassURL, nil)))

	var signer *auth.Signer
	if cfg.Auth.Enabled() {
		signer = auth.NewSigner(cfg.Auth.OperatorSecret)
		logger.Info("operator routes require a bearer token")
	}

	router := handler.NewRouter(handler.Deps{
		Config:     cfg,
		Logger:     logger,
		Data:       dataSvc,
		Reports:    reports,
		Situation:  situation.NewService(dataSvc, reports, analyzer),
		Advisory:   advisor,
		Dispatcher: dispatcher,
		Broadcast:  broadcast.NewService(advisor, translator, speechSvc, dispatcher, logger),
		Speech:     speechSvc,
		Translate:  translator,
		Planner:    routing.NewPlanner(loader, cfg.Routing.Online, logger),
		Signer:     signer,
		Components: map[string]system.Moder{
			"advisory":  advisor,
			"translate": translator,
			"speech":    speechSvc,
			"sms":       dispatcher,
			"weather":   weather,
		},
	})

	startServer(ctx, cfg.Server, router, logger)
}

func newReportService(cfg config.ReportsConfig, logger *zap.Logger) (*report.Service, error) {
	var store report.Store
	if cfg.DBPath != "" {
		badgerStore, err := report.OpenBadgerStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		store = badgerStore
		logger.Info("reports persisted to badger", zap.String("path", cfg.DBPath))
	}

	index, err := report.OpenIndex(cfg.IndexPath)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return report.NewService(store, index, logger), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("CrowdShield backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
