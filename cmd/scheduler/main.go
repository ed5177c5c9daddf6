package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketplace_backend/internal/email"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/scheduler"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
)

// The worker delivers notification emails queued by the API. It needs no
// database: task payloads carry everything the templates render.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if cfg.GetRedisURL() == "" {
		log.Error("REDIS_URL is required for the scheduler worker")
		panic("REDIS_URL is required for the scheduler worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.IsEmailEnabled() {
		log.Warn("SMTP not configured; notification tasks are acknowledged without sending")
	}
	deliverer := notification.NewDeliverer(email.NewSender(cfg), cfg, log)

	worker, err := scheduler.NewWorker(cfg, deliverer, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}
