package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quiz-room-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRelay(t *testing.T) (*Relay, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	relay := NewRelay(client, time.Minute, zerolog.Nop())
	t.Cleanup(func() { _ = relay.Close() })
	return relay, mr
}

func TestRelayDeliversAcrossConnections(t *testing.T) {
	ctx := context.Background()
	relay, _ := newTestRelay(t)

	events, cancel, err := relay.Subscribe(ctx, "ROOM42")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	evt, _ := domain.NewEvent(domain.EventAnswerSubmitted, "ROOM42", domain.AnswerSubmittedPayload{
		UserID: "u1", QuestionID: "q1", IsCorrect: true,
	})
	if err := relay.Publish(ctx, "ROOM42", evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-events:
		if got.Type != domain.EventAnswerSubmitted || got.RoomCode != "ROOM42" {
			t.Fatalf("unexpected event %+v", got)
		}
		var payload domain.AnswerSubmittedPayload
		if err := json.Unmarshal(got.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.UserID != "u1" || !payload.IsCorrect {
			t.Fatalf("unexpected payload %+v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestRelayKeepsRoomsApart(t *testing.T) {
	ctx := context.Background()
	relay, _ := newTestRelay(t)

	other, cancel, err := relay.Subscribe(ctx, "OTHER1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	evt, _ := domain.NewEvent(domain.EventQuizStarted, "ROOM42", domain.QuizStartedPayload{StartedAt: time.Now()})
	_ = relay.Publish(ctx, "ROOM42", evt)

	select {
	case got := <-other:
		t.Fatalf("other room must not receive events, got %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRelayTracksListeners(t *testing.T) {
	ctx := context.Background()
	relay, mr := newTestRelay(t)

	events, cancel, err := relay.Subscribe(ctx, "ROOM42")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if n, _ := relay.Listeners(ctx, "ROOM42"); n != 1 {
		t.Fatalf("expected one listener, got %d", n)
	}
	if ttl := mr.TTL("quiz:room:ROOM42:listeners"); ttl != time.Minute {
		t.Fatalf("expected listener key ttl, got %v", ttl)
	}

	cancel()
	cancel()
	if mr.Exists("quiz:room:ROOM42:listeners") {
		t.Fatalf("expected listener key to be removed")
	}
	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}
