package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"admissions_crm/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue    = "default"
	batchMaxRetry   = 1
	perLeadMaxRetry = 3
)

// Enqueued identifies a task handed to the worker.
type Enqueued struct {
	TaskID string `json:"taskId"`
	Queue  string `json:"queue"`
}

type Client struct {
	client *asynq.Client
	queue  string
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueAssignBatch(ctx context.Context, method string) (Enqueued, error) {
	task, err := NewAssignBatchTask(AssignBatchPayload{Method: method})
	if err != nil {
		return Enqueued{}, err
	}
	return c.enqueue(ctx, task, asynq.MaxRetry(batchMaxRetry))
}

func (c *Client) EnqueueAIAssignBatch(ctx context.Context) (Enqueued, error) {
	task, err := NewAIAssignBatchTask()
	if err != nil {
		return Enqueued{}, err
	}
	return c.enqueue(ctx, task, asynq.MaxRetry(batchMaxRetry))
}

func (c *Client) EnqueueRouteLead(ctx context.Context, leadID uuid.UUID) (Enqueued, error) {
	task, err := NewRouteLeadTask(RouteLeadPayload{LeadID: leadID.String()})
	if err != nil {
		return Enqueued{}, err
	}
	return c.enqueue(ctx, task, asynq.MaxRetry(perLeadMaxRetry))
}

func (c *Client) EnqueueImport(ctx context.Context, payload ImportLeadsPayload) (Enqueued, error) {
	task, err := NewImportLeadsTask(payload)
	if err != nil {
		return Enqueued{}, err
	}
	return c.enqueue(ctx, task, asynq.MaxRetry(batchMaxRetry))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (Enqueued, error) {
	if c == nil || c.client == nil {
		return Enqueued{}, fmt.Errorf("scheduler client not configured")
	}
	opts = append(opts, asynq.Queue(c.queue))
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return Enqueued{}, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return Enqueued{TaskID: info.ID, Queue: info.Queue}, nil
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return defaultQueue
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
