package scheduler

import (
	"context"
	"fmt"

	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// NotificationHandler delivers dequeued notification tasks.
type NotificationHandler interface {
	HandleLeadTerminal(ctx context.Context, payload LeadTerminalPayload) error
	HandleInquiryReply(ctx context.Context, payload InquiryReplyPayload) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	handler NotificationHandler
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handler NotificationHandler, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Warn("notification task failed", "task", task.Type(), "error", err)
		}),
	})

	w := &Worker{
		server:  server,
		mux:     newMux(handler),
		handler: handler,
		log:     log,
	}
	return w, nil
}

func newMux(handler NotificationHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskLeadTerminal, func(ctx context.Context, task *asynq.Task) error {
		payload, err := ParseLeadTerminalPayload(task)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return handler.HandleLeadTerminal(ctx, payload)
	})
	mux.HandleFunc(TaskInquiryReply, func(ctx context.Context, task *asynq.Task) error {
		payload, err := ParseInquiryReplyPayload(task)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return handler.HandleInquiryReply(ctx, payload)
	})
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
