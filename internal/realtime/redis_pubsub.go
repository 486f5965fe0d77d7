package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/internal/ingest"
)

const (
	// Channel carries every admin event.
	Channel = "viostream:events"
	// EventIngestStatus is sent whenever a tracked ingest is created or changes status.
	EventIngestStatus = "ingest_status"

	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis.
type redisPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// RedisPubSub publishes and subscribes to admin events over Redis.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for admin events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// Publish sends an event to every subscriber.
func (r *RedisPubSub) Publish(ctx context.Context, event string, payload []byte) error {
	body, err := json.Marshal(redisPayload{Event: event, Data: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, Channel, body).Err()
}

// Subscribe calls handler for each event until cancel is called.
func (r *RedisPubSub) Subscribe(handler func(event string, payload []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Debug("dropping malformed event", zap.Error(err))
					continue
				}
				handler(p.Event, p.Data)
			}
		}
	}()
	return cancelCtx, nil
}

// IngestEvents publishes ingest changes. It satisfies ingest.Notifier.
type IngestEvents struct {
	pub    *RedisPubSub
	logger *zap.Logger
}

// NewIngestEvents creates an ingest notifier backed by pub.
func NewIngestEvents(pub *RedisPubSub, logger *zap.Logger) *IngestEvents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestEvents{pub: pub, logger: logger}
}

// IngestChanged publishes ing. Failures are logged; the ingest itself is already stored.
func (e *IngestEvents) IngestChanged(ctx context.Context, ing *ingest.Ingest) {
	data, err := json.Marshal(ing)
	if err != nil {
		e.logger.Warn("marshal ingest event", zap.Error(err))
		return
	}
	if err := e.pub.Publish(ctx, EventIngestStatus, data); err != nil {
		e.logger.Warn("publish ingest event failed", zap.String("id", ing.ID.String()), zap.Error(err))
	}
}
