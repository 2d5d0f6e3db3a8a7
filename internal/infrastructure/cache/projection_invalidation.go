package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for invalidator configuration
const (
	defaultCloseTimeout       = 5 * time.Second
	defaultInvalidatorChannel = "crm:projection:invalidate"
)

// Invalidation actions
const (
	InvalidateActionEvict    = "evict"
	InvalidateActionEvictAll = "evict_all"
)

// InvalidationMessage is the payload broadcast over Pub/Sub when a cached
// projection must be dropped on every instance.
type InvalidationMessage struct {
	Action    string `json:"action"`
	Key       string `json:"key,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// RedisProjectionInvalidator broadcasts projection evictions across instances
// using Redis Pub/Sub. Each instance subscribes and drops the named key from
// its local cache.
type RedisProjectionInvalidator struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisProjectionInvalidatorOption is a functional option for configuring the invalidator
type RedisProjectionInvalidatorOption func(*RedisProjectionInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisProjectionInvalidatorOption {
	return func(i *RedisProjectionInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) RedisProjectionInvalidatorOption {
	return func(i *RedisProjectionInvalidator) {
		i.logger = logger
	}
}

// NewRedisProjectionInvalidator creates a new Redis Pub/Sub invalidator
func NewRedisProjectionInvalidator(cfg RedisConfig, opts ...RedisProjectionInvalidatorOption) (*RedisProjectionInvalidator, error) {
	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	invalidator := &RedisProjectionInvalidator{
		client:     client,
		ownsClient: true,
		channel:    defaultInvalidatorChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator, nil
}

// NewRedisProjectionInvalidatorWithClient creates an invalidator with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisProjectionInvalidatorWithClient(client *redis.Client, opts ...RedisProjectionInvalidatorOption) *RedisProjectionInvalidator {
	invalidator := &RedisProjectionInvalidator{
		client:     client,
		ownsClient: false,
		channel:    defaultInvalidatorChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator
}

// Publish sends an invalidation notification to all subscribers
func (i *RedisProjectionInvalidator) Publish(ctx context.Context, msg InvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("failed to publish invalidation message",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish invalidation message: %w", err)
	}

	i.logger.Debug("published invalidation message",
		zap.String("action", msg.Action),
		zap.String("key", msg.Key),
		zap.String("channel", i.channel))

	return nil
}

// PublishEvict publishes an eviction for a single projection key
func (i *RedisProjectionInvalidator) PublishEvict(ctx context.Context, key string) error {
	return i.Publish(ctx, InvalidationMessage{Action: InvalidateActionEvict, Key: key})
}

// PublishEvictAll publishes an evict-all notification
func (i *RedisProjectionInvalidator) PublishEvictAll(ctx context.Context) error {
	return i.Publish(ctx, InvalidationMessage{Action: InvalidateActionEvictAll})
}

// Subscribe starts listening for invalidation notifications.
// The callback function is invoked for each received message.
// This method blocks and should be called in a goroutine.
func (i *RedisProjectionInvalidator) Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	i.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	i.mu.Lock()
	i.cancelFn = cancel
	i.mu.Unlock()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(subCtx); err != nil {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	i.logger.Info("subscribed to projection invalidation channel",
		zap.String("channel", i.channel))

	ch := pubsub.Channel()

	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("projection invalidation subscription stopped")
			i.mu.Lock()
			i.isRunning = false
			i.mu.Unlock()
			i.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("projection invalidation channel closed")
				i.mu.Lock()
				i.isRunning = false
				i.mu.Unlock()
				i.markDone()
				return nil
			}

			var invMsg InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &invMsg); err != nil {
				i.logger.Error("failed to unmarshal invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			// Call the callback in a separate goroutine to prevent blocking
			go func(m InvalidationMessage) {
				defer func() {
					if r := recover(); r != nil {
						i.logger.Error("panic in invalidation callback", zap.Any("panic", r))
					}
				}()
				callback(m)
			}(invMsg)
		}
	}
}

// markDone safely marks the invalidator as done
func (i *RedisProjectionInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close releases any resources held by the invalidator
func (i *RedisProjectionInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		// Wait for subscription to stop with timeout
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("timeout waiting for subscription to stop")
		}
	}

	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}
