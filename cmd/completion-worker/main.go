package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/appointment-booking/internal/app"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Service: "completion-worker"}).Fatal("config load error", "error", err)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "completion-worker",
	})
	log.Info("completion-worker starting up", "env", cfg.Env, "interval", cfg.WorkerInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(rootCtx, cfg, "completion-worker", log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a.Appointments, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping completion worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, a.Appointments, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log *logger.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompleteElapsed(runCtx, start.UTC())
	if err != nil {
		log.Error("completion run error", "error", err)
		return
	}
	log.Info("completion run complete", "completed", n, "took", time.Since(start))
}
