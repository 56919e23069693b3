package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/appointment-booking/internal/api"
	"github.com/hackgods/appointment-booking/internal/app"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Service: "api-server"}).Fatal("config load error", "error", err)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "api-server",
	})
	log.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "store", cfg.StoreDriver)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(rootCtx, cfg, "api-server", log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	router := api.NewRouter(api.RouterConfig{
		Slots:          a.Slots,
		Appointments:   a.Appointments,
		Accounts:       a.Accounts,
		Tokens:         a.Tokens,
		Validator:      a.Validator,
		Log:            log,
		Checks:         a.Checks,
		Env:            cfg.Env,
		Version:        version,
		RequestTimeout: cfg.RequestTimeout,
		AuthLimiter:    api.NewRateLimiter(rootCtx, cfg.AuthRateRPS, cfg.AuthRateBurst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("listening", "addr", srv.Addr)
	if err := api.Serve(rootCtx, srv, cfg.ShutdownTimeout); err != nil {
		log.Error("server error", "error", err)
		return
	}

	log.Info("api-server stopped")
}
