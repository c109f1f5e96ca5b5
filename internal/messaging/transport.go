package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/logger"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/metrics"
)

const (
	queueKey       = "outbound_messages"
	failedQueueKey = "outbound_messages:failed"
)

type Transport interface {
	Enqueue(ctx context.Context, job MessageJob) error
}

// RedisTransport queues outbound WhatsApp messages on a redis list and
// drains it with a worker loop. Failed deliveries retry a few times,
// then land on a failed list for inspection.
type RedisTransport struct {
	redis  *redis.Client
	client *http.Client
	apiURL string
	token  string
}

func NewRedisTransport(redisAddr, apiURL, token string) *RedisTransport {
	return &RedisTransport{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		client: &http.Client{Timeout: 10 * time.Second},
		apiURL: apiURL,
		token:  token,
	}
}

// NewRedisTransportWithClient wires an existing redis client (tests).
func NewRedisTransportWithClient(rdb *redis.Client, apiURL, token string) *RedisTransport {
	return &RedisTransport{
		redis:  rdb,
		client: &http.Client{Timeout: 10 * time.Second},
		apiURL: apiURL,
		token:  token,
	}
}

func (t *RedisTransport) Enqueue(ctx context.Context, job MessageJob) error {
	if job.Created.IsZero() {
		job.Created = time.Now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal message job: %v", err)
		return err
	}

	if err := t.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue message %s: %v", job.ProviderMessageID, err)
		return err
	}

	logger.Infof("Message queued: %s to %s", job.ProviderMessageID, job.Phone)
	return nil
}

func (t *RedisTransport) Start(ctx context.Context) {
	logger.Info("Message transport started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Message transport stopped")
			return
		default:
			t.processNext(ctx)
		}
	}
}

func (t *RedisTransport) processNext(ctx context.Context) {
	result, err := t.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job MessageJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad message data: %v", err)
		return
	}

	job.Tries++
	if err := t.deliver(ctx, job); err != nil {
		logger.Errorf("Failed to deliver message %s: %v", job.ProviderMessageID, err)
		metrics.RecordOutbound("failed")

		if job.Tries < 3 {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			t.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying message %s (attempt %d)", job.ProviderMessageID, job.Tries+1)
		} else {
			t.saveFailed(job, err)
		}
		return
	}

	metrics.RecordOutbound("sent")
	logger.Infof("Message delivered: %s", job.ProviderMessageID)
}

func (t *RedisTransport) deliver(ctx context.Context, job MessageJob) error {
	if t.apiURL == "" {
		// No provider configured; drop the message after logging. The
		// debit already happened, matching the consume-on-attempt rule.
		logger.Infof("WhatsApp provider not configured, dropping message %s", job.ProviderMessageID)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"to":         job.Phone,
		"body":       job.Body,
		"message_id": job.ProviderMessageID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return nil
}

func (t *RedisTransport) saveFailed(job MessageJob, sendErr error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": sendErr.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	t.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Message moved to failed queue: %s", job.ProviderMessageID)
}

func (t *RedisTransport) QueueLength(ctx context.Context) int64 {
	length, _ := t.redis.LLen(ctx, queueKey).Result()
	return length
}

func (t *RedisTransport) Close() error {
	return t.redis.Close()
}
