package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/marketplace-sync/internal/api/handlers"
	mw "github.com/donaldgifford/marketplace-sync/internal/api/middleware"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and scheduler",
		Long: "Serves health probes, Prometheus metrics and the sync API, and runs\n" +
			"token validation and order syncs on the configured schedule.",
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sc := a.cfg.Schedule
	sched, err := engine.NewScheduler(a.engine, a.jobStore(), engine.Schedule{
		TokenCheck:  sc.TokenCheckInterval,
		OrderSync:   sc.OrderSyncInterval,
		OrderStatus: sc.OrderStatus,
		OrderDays:   sc.OrderDays,
		LockTTL:     sc.LockTTL,
	}, a.log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.RecoverStaleJobRuns(ctx)

	e := newServer(a)
	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	a.log.Info("starting server", "addr", addr, "platforms", a.engine.Platforms())

	serveErr := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	sched.Start()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			a.log.Error("server error", "error", err)
		}
	}

	a.log.Info("shutting down server")
	<-sched.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	a.log.Info("server stopped")
	return nil
}

// newServer builds the Echo server with probes, metrics and the Huma API.
func newServer(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = a.cfg.Server.ReadTimeout
	e.Server.WriteTimeout = a.cfg.Server.WriteTimeout

	e.Use(mw.Recovery(a.log), mw.RequestLog(a.log), mw.Metrics())

	var pinger handlers.Pinger
	var jobs handlers.JobsProvider
	if a.db != nil {
		pinger, jobs = a.db, a.db
	}
	health := handlers.NewHealthHandler(pinger)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("marketplace-sync", Version))

	var budget handlers.BudgetProvider
	if a.writer != nil {
		budget = a.writer
	}
	handlers.RegisterCredentialRoutes(api, handlers.NewCredentialsHandler(a.engine))
	handlers.RegisterSinkRoutes(api, handlers.NewSinkHandler(budget))
	handlers.RegisterSyncRoutes(api, handlers.NewSyncHandler(a.engine))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(jobs))

	return e
}
