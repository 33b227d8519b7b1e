// Package queue provides a Redis list receiver for out-of-band feedback
// messages.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/festa-dev/festa/pkg/models"
)

// FeedbackSink accepts feedback for a running party. The orchestrator
// satisfies it.
type FeedbackSink interface {
	Feedback(ctx context.Context, partyID, content string, metadata map[string]any) (*models.PartyState, error)
}

// payload is the wire shape pushed onto the Redis list by external systems.
type payload struct {
	PartyID  string         `json:"party_id"`
	Feedback string         `json:"feedback"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Receiver pops feedback messages off a Redis list and feeds them to the
// orchestrator. Malformed messages are logged and dropped.
type Receiver struct {
	Connection map[string]string
	Queue      string

	client redis.UniversalClient
	sink   FeedbackSink
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewReceiver(config map[string]any, logger *slog.Logger) (*Receiver, error) {
	queue, _ := config["queue"].(string)

	connectionConfig, _ := config["connection"].(map[string]any)

	connection := make(map[string]string)
	for k, v := range connectionConfig {
		if str, ok := v.(string); ok {
			connection[k] = str
		}
	}

	receiver := &Receiver{
		Connection: connection,
		Queue:      queue,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_receiver",
			"queue", queue,
		),
	}

	err := receiver.Validate()
	if err != nil {
		return nil, err
	}

	return receiver, nil
}

func (r *Receiver) Validate() error {
	if r.Queue == "" {
		return errors.New("queue receiver queue name is required")
	}

	return nil
}

func (r *Receiver) Start(ctx context.Context, sink FeedbackSink) error {
	r.logger.InfoContext(ctx, "Starting queue receiver")
	r.sink = sink

	err := r.initializeClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) initializeClient(ctx context.Context) error {
	addr := r.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	password := r.Connection["password"]
	db := 0

	if dbStr := r.Connection["db"]; dbStr != "" {
		var err error
		if db, err = r.parseDB(dbStr); err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}
	}

	r.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (r *Receiver) parseDB(dbStr string) (int, error) {
	var db int

	_, err := fmt.Sscanf(dbStr, "%d", &db)

	return db, err
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	r.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := r.processMessage(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, 1*time.Second, r.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	return r.handleMessage(ctx, result[1])
}

// handleMessage parses one raw list entry and forwards it to the sink.
// Malformed entries never return an error: they are dropped so the consumer
// does not stall on a poison message.
func (r *Receiver) handleMessage(ctx context.Context, message string) error {
	var parsed payload

	err := json.Unmarshal([]byte(message), &parsed)
	if err != nil {
		r.logger.WarnContext(ctx, "Dropping malformed queue message", "error", err)

		return nil
	}

	if parsed.PartyID == "" || parsed.Feedback == "" {
		r.logger.WarnContext(ctx, "Dropping queue message without party_id or feedback")

		return nil
	}

	_, err = r.sink.Feedback(ctx, parsed.PartyID, parsed.Feedback, parsed.Metadata)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to apply queued feedback", "error", err, "party_id", parsed.PartyID)
	}

	return nil
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping queue receiver")

	close(r.stopCh)
	r.wg.Wait()

	if r.client != nil {
		err := r.client.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
