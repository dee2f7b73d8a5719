package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"quiz-room-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const subscriberBuffer = 16

// Relay is a Redis pub/sub implementation of app.Relay so that every server
// instance sees the events of every room.
// Notes:
//   - Each subscription holds its own PubSub connection.
//   - A listener counter per room marks which rooms have live clients; it
//     expires after ttl if an instance dies without cleaning up.
type Relay struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

func NewRelay(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Relay {
	return &Relay{
		client: client,
		ttl:    ttl,
		log:    logger,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

// Channel is the pub/sub channel carrying a room's events.
func Channel(roomCode string) string {
	return "quiz:room:" + roomCode + ":events"
}

func listenersKey(roomCode string) string {
	return "quiz:room:" + roomCode + ":listeners"
}

func (r *Relay) Publish(ctx context.Context, roomCode string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, Channel(roomCode), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published afterwards are delivered.
func (r *Relay) Subscribe(ctx context.Context, roomCode string) (<-chan domain.Event, func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("relay closed")
	}
	r.mu.Unlock()

	ps := r.client.Subscribe(ctx, Channel(roomCode))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", roomCode, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = ps.Close()
		return nil, nil, fmt.Errorf("relay closed")
	}
	r.subs[ps] = struct{}{}
	r.mu.Unlock()
	r.markListener(ctx, roomCode, 1)

	out := make(chan domain.Event, subscriberBuffer)
	go r.pump(ps, out)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ps)
			r.mu.Unlock()
			_ = ps.Close()
			r.markListener(context.Background(), roomCode, -1)
		})
	}
	return out, cancel, nil
}

// pump decodes messages until the subscription closes. When the client is
// slow the oldest buffered event is dropped.
func (r *Relay) pump(ps *redis.PubSub, out chan domain.Event) {
	defer close(out)
	for msg := range ps.Channel() {
		var event domain.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
			continue
		}
		select {
		case out <- event:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- event:
			default:
			}
		}
	}
}

// Listeners reports how many clients across all instances follow a room.
func (r *Relay) Listeners(ctx context.Context, roomCode string) (int, error) {
	n, err := r.client.Get(ctx, listenersKey(roomCode)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// best-effort liveness marker
func (r *Relay) markListener(ctx context.Context, roomCode string, delta int64) {
	key := listenersKey(roomCode)
	n, err := r.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		r.log.Debug().Err(err).Str("room", roomCode).Msg("listener counter update failed")
		return
	}
	if n <= 0 {
		_ = r.client.Del(ctx, key).Err()
		return
	}
	_ = r.client.Expire(ctx, key, r.ttl).Err()
}

// Close ends every subscription and closes the client.
func (r *Relay) Close() error {
	r.mu.Lock()
	r.closed = true
	subs := r.subs
	r.subs = make(map[*redis.PubSub]struct{})
	r.mu.Unlock()

	for ps := range subs {
		_ = ps.Close()
	}
	return r.client.Close()
}
