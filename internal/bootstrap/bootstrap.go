package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-arcade/conveyor/internal/conveyor/config"
	"github.com/go-arcade/conveyor/internal/conveyor/router"
	"github.com/go-arcade/conveyor/internal/conveyor/service"
	"github.com/go-arcade/conveyor/pkg/cron"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/go-arcade/conveyor/pkg/safe"
	"github.com/go-arcade/conveyor/pkg/shutdown"
	"github.com/gofiber/fiber/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	HttpApp   *fiber.App
	Http      *http.Http
	Pipelines *service.PipelineService
	Metrics   *metrics.Server
	Scheduler *cron.Scheduler
	Shutdown  *shutdown.Manager
	Logger    *log.Logger
	AppConf   *config.AppConfig
}

// InitAppFunc init app function type
type InitAppFunc func(appConf *config.AppConfig) (*App, func(), error)

// NewApp tracer is requested only so the global tracer provider is
// installed before the first run starts.
func NewApp(
	rt *router.Router,
	httpConf *http.Http,
	pipelines *service.PipelineService,
	metricsServer *metrics.Server,
	scheduler *cron.Scheduler,
	shutdownManager *shutdown.Manager,
	_ *sdktrace.TracerProvider,
	logger *log.Logger,
	appConf *config.AppConfig,
) *App {
	return &App{
		HttpApp:   rt.Router(),
		Http:      httpConf,
		Pipelines: pipelines,
		Metrics:   metricsServer,
		Scheduler: scheduler,
		Shutdown:  shutdownManager,
		Logger:    logger,
		AppConf:   appConf,
	}
}

// Bootstrap init app, return App instance and cleanup function
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), error) {
	// load config
	appConf := config.NewConf(configFile)

	// Wire build App
	app, cleanup, err := initApp(appConf)
	if err != nil {
		return nil, nil, err
	}
	return app, cleanup, nil
}

// Run start app and wait for exit signal, then gracefully shutdown
func Run(app *App, cleanup func()) {
	logger := app.Logger.Log

	if err := app.Metrics.Start(); err != nil {
		logger.Errorw("metrics server failed to start", "error", err)
	}
	app.Scheduler.Start()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if app.AppConf.Pipeline.Watch {
		safe.Go(func() {
			if err := app.Pipelines.Watch(watchCtx); err != nil {
				logger.Warnw("pipeline watch stopped", "dir", app.Pipelines.Dir(), "error", err)
			}
		})
	}

	// set signal listener (graceful shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// start HTTP server (async)
	go func() {
		addr := app.Http.Addr()
		logger.Infow("HTTP listener started", "address", addr, "tls", app.Http.TLS.CertFile != "")
		var err error
		if app.Http.TLS.CertFile != "" {
			err = app.HttpApp.ListenTLS(addr, app.Http.TLS.CertFile, app.Http.TLS.KeyFile)
		} else {
			err = app.HttpApp.Listen(addr)
		}
		if err != nil {
			logger.Errorw("HTTP listener failed", "address", addr, "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// wait for exit signal
	sig := <-quit
	logger.Infof("Received signal: %v, shutting down gracefully...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(app.Http.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	// stop accepting events before runs are canceled
	app.Shutdown.Shutdown()
	if err := app.HttpApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	} else {
		logger.Info("HTTP server shut down gracefully")
	}
	stopWatch()

	// cancels active runs, flushes notifications and closes stores
	cleanup()

	if err := app.Metrics.Stop(shutdownCtx); err != nil {
		logger.Errorf("metrics server shutdown error: %v", err)
	}
	logger.Info("Server shutdown complete")
	_ = app.Logger.Log.Sync()
}
