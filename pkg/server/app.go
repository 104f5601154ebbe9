package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ZonePulse/internal/handler/api"
	"ZonePulse/internal/usecase"
	"ZonePulse/pkg/config"
	xhttp "ZonePulse/pkg/http"
	applogger "ZonePulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.EventCollector
	coordinator *usecase.Coordinator
	dispatcher  *usecase.SignalDispatcher
	handler     *api.ZonesHandler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.EventCollector,
	coordinator *usecase.Coordinator,
	dispatcher *usecase.SignalDispatcher,
	handler *api.ZonesHandler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      lgr,
		collector:   collector,
		coordinator: coordinator,
		dispatcher:  dispatcher,
		handler:     handler,
	}
}

// Run starts the application and blocks until interrupted or the
// market stream is lost beyond recovery.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatalCh := make(chan error, 1)
	a.collector.OnFatal(func(err error) {
		select {
		case fatalCh <- err:
		default:
		}
	})

	if err := a.collector.Start(ctx); err != nil {
		a.logger.Error("collector start error", applogger.Error(err))
		return err
	}
	a.logger.Info("collector started",
		applogger.Strings("symbols", a.cfg.Feed.Symbols),
		applogger.Strings("timeframes", a.cfg.Feed.Timeframes),
	)

	a.coordinator.Start(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		a.logger.Info("shutdown signal received")
	case err := <-fatalCh:
		a.logger.Error("market stream lost", applogger.Error(err))
		runErr = err
	}

	if err := a.shutdown(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	a.coordinator.Stop()

	if err := a.collector.Shutdown(ctx); err != nil {
		a.logger.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		return err
	}

	if err := a.dispatcher.Close(); err != nil {
		a.logger.Warn("signal sink close error", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}
