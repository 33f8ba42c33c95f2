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

	"librarydesk/internal/desk"
	"librarydesk/internal/platform/libraryapi"
)

func main() {
	loadEnvFiles()
	cfg := loadConfig()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	client, err := libraryapi.NewClient(cfg.apiURL,
		libraryapi.WithTimeout(cfg.apiTimeout),
		libraryapi.WithRateLimit(cfg.apiRPS),
	)
	if err != nil {
		logger.Error("invalid library api url", "url", cfg.apiURL, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := desk.New(client, desk.Config{
		RefreshEvery: cfg.dashboardRefresh,
		Logger:       logger,
	})
	go app.Start(ctx)

	httpServer := &http.Server{
		Addr: cfg.addr,
		Handler: app.Routes(ctx, desk.ServerOptions{
			EnableHSTS:     cfg.enableHSTS,
			RateLimitRPS:   cfg.rateLimitRPS,
			RateLimitBurst: cfg.rateLimitBurst,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.apiTimeout*3 + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting desk", "addr", cfg.addr, "api", client.BaseURL())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("desk stopped")
}
