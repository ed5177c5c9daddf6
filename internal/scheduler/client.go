package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"marketplace_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const maxNotificationRetries = 5

type Client struct {
	client *asynq.Client
	queue  string
}

// NotificationQueue hands notification work to the background worker.
type NotificationQueue interface {
	EnqueueLeadTerminal(ctx context.Context, payload LeadTerminalPayload) error
	EnqueueInquiryReply(ctx context.Context, payload InquiryReplyPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newClient(opt, cfg.GetAsynqQueueName()), nil
}

func newClient(opt asynq.RedisConnOpt, queue string) *Client {
	if queue == "" {
		queue = "default"
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueLeadTerminal(ctx context.Context, payload LeadTerminalPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadTerminalTask(payload)
	if err != nil {
		return err
	}

	// One email per lead and status; a retried publish must not send twice.
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(maxNotificationRetries),
		asynq.TaskID(TaskLeadTerminal+":"+payload.LeadID+":"+payload.Status),
	)
	return ignoreDuplicate(err)
}

func (c *Client) EnqueueInquiryReply(ctx context.Context, payload InquiryReplyPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewInquiryReplyTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(maxNotificationRetries),
		asynq.TaskID(TaskInquiryReply+":"+payload.ReplyID),
	)
	return ignoreDuplicate(err)
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
