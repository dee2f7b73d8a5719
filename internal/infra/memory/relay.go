package memory

import (
	"context"
	"sync"

	"quiz-room-service/internal/domain"
)

const subscriberBuffer = 16

// Relay is an in-process implementation of app.Relay: one fan-out topic per
// room code.
type Relay struct {
	mu     sync.Mutex
	topics map[string]map[chan domain.Event]struct{}
	closed bool
}

func NewRelay() *Relay {
	return &Relay{topics: make(map[string]map[chan domain.Event]struct{})}
}

// Publish delivers event to every current subscriber of the room without
// blocking. A full subscriber loses its oldest buffered event.
func (r *Relay) Publish(_ context.Context, roomCode string, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.topics[roomCode] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

func (r *Relay) Subscribe(_ context.Context, roomCode string) (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, subscriberBuffer)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}, nil
	}
	subs, ok := r.topics[roomCode]
	if !ok {
		subs = make(map[chan domain.Event]struct{})
		r.topics[roomCode] = subs
	}
	subs[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		subs := r.topics[roomCode]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(r.topics, roomCode)
		}
	}
	return ch, cancel, nil
}

// Listeners reports how many clients listen on a room.
func (r *Relay) Listeners(_ context.Context, roomCode string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[roomCode]), nil
}

// Close ends every subscription.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, subs := range r.topics {
		for ch := range subs {
			close(ch)
		}
		delete(r.topics, code)
	}
	r.closed = true
	return nil
}
