package cli

import (
	"context"
	"testing"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/config"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"

	"github.com/rs/zerolog"
)

func TestSeedDemoOpensRoomWithValidQuestions(t *testing.T) {
	ctx := context.Background()
	service := app.New(memory.NewStore(), memory.NewRelay(), zerolog.Nop())

	code, err := seedDemo(ctx, service)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	room, err := service.Rooms.Get(ctx, code)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.Status != domain.StatusWaiting || room.Name != "Sala de Teste" {
		t.Fatalf("unexpected room %+v", room)
	}
	questions, _ := service.Rooms.Questions(ctx, code)
	if len(questions) != len(demoQuestions) {
		t.Fatalf("expected %d questions, got %d", len(demoQuestions), len(questions))
	}
	if invalid, _ := service.Rooms.AuditQuestions(ctx); len(invalid) != 0 {
		t.Fatalf("seeded questions must pass the audit, got %v", invalid)
	}
	for i, q := range questions {
		if q.Alternatives[demoQuestions[i].correct].IsCorrect != true {
			t.Fatalf("question %d: wrong correct alternative", i)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var cfg config.Config
	cfg.Log.Level = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", got)
	}
	cfg.Log.Level = "nonsense"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", got)
	}
}

func TestBuildServiceFallsBackToMemory(t *testing.T) {
	var cfg config.Config
	service, err := buildService(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer service.Close()
	if _, err := service.Users.Register(context.Background(), app.NewUser{Name: "Solo"}); err != nil {
		t.Fatalf("register on memory store: %v", err)
	}
}
