package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/jangwonlee-rptly/heimdex-search/internal/adapters/http"
	"github.com/jangwonlee-rptly/heimdex-search/internal/bootstrap"
	"github.com/jangwonlee-rptly/heimdex-search/internal/config"
	"github.com/jangwonlee-rptly/heimdex-search/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("heimdex-search", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go func() {
		if err := app.ListenWeightReloads(ctx); err != nil {
			slog.Error("weight reload listener stopped", "error", err)
		}
	}()

	router := httpadapter.NewRouter(app.Searcher, app.Weights, httpadapter.Options{
		Service:        "api",
		AdminAPIKey:    cfg.AdminAPIKey,
		Scenes:         app.Scenes,
		Notifier:       app.Notifier,
		Metrics:        app.Metrics,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxInFlight:    cfg.APIMaxInFlight,
	}).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
