package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/postgres"
	infraredis "quiz-room-service/internal/infra/redis"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRoomScoringEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	store, err := postgres.Open(ctx, pgURL)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	relay := infraredis.NewRelay(redisClient, 5*time.Minute, zerolog.Nop())
	service := app.New(store, relay, zerolog.Nop())
	defer service.Close()

	host := mustRegister(t, ctx, service, "Host")
	alice := mustRegister(t, ctx, service, "Alice")
	bob := mustRegister(t, ctx, service, "Bob")

	room, err := service.Rooms.Create(ctx, app.NewRoom{Name: "Integration", CreatedBy: host.ID})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	var questions []domain.Question
	for i := 0; i < 2; i++ {
		q, err := service.Rooms.AddQuestion(ctx, room.Code, app.NewQuestion{
			UserID: host.ID,
			Text:   fmt.Sprintf("Question %d", i+1),
			Alternatives: []app.NewAlternative{
				{Text: "wrong"},
				{Text: "right", IsCorrect: true},
			},
		})
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		questions = append(questions, q)
	}
	if questions[1].Position != 2 {
		t.Fatalf("expected sequential positions, got %d", questions[1].Position)
	}
	if _, err := service.Rooms.Finalize(ctx, room.Code, host.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	for _, u := range []domain.User{alice, bob} {
		if _, err := service.Rooms.Join(ctx, room.Code, u.ID); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	_, events, cancel, err := service.Subscribe(ctx, room.Code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if p, err := service.Rooms.Presence(ctx, room.Code); err != nil || p.Online != 1 {
		t.Fatalf("expected one listener tracked in redis, got %+v err=%v", p, err)
	}

	if _, err := service.Rooms.Start(ctx, room.Code, host.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	expectEvent(t, events, domain.EventQuizStarted)

	submit := func(u domain.User, q domain.Question, alt int) domain.AnswerResult {
		t.Helper()
		res, err := service.Ledger.Submit(ctx, app.AnswerInput{
			RoomCode:      strings.ToLower(room.Code),
			UserID:        u.ID,
			QuestionID:    q.ID,
			AlternativeID: q.Alternatives[alt].ID,
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		return res
	}

	if res := submit(alice, questions[0], 0); res.IsCorrect {
		t.Fatalf("expected wrong answer")
	}
	expectEvent(t, events, domain.EventAnswerSubmitted)
	if res := submit(alice, questions[0], 1); !res.IsCorrect || res.Participant.Score != 10 || res.Participant.TotalAnswers != 1 {
		t.Fatalf("resubmission must overwrite, got %+v", res.Participant)
	}
	submit(bob, questions[0], 1)
	submit(bob, questions[1], 1)

	// Concurrent resubmissions of one question settle to a single ledger row.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(alt int) {
			defer wg.Done()
			_, _ = service.Ledger.Submit(ctx, app.AnswerInput{
				RoomCode: room.Code, UserID: alice.ID, QuestionID: questions[1].ID,
				AlternativeID: questions[1].Alternatives[alt].ID,
			})
		}(i % 2)
	}
	wg.Wait()
	submit(alice, questions[1], 0)

	ranking, err := service.Ranking.Ranking(ctx, room.Code)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranking) != 2 || ranking[0].UserID != bob.ID || ranking[0].Score != 20 || ranking[0].Accuracy != 100 {
		t.Fatalf("expected bob leading with 20, got %+v", ranking)
	}
	if ranking[1].Score != 10 || ranking[1].TotalAnswers != 2 || ranking[1].Accuracy != 50 {
		t.Fatalf("expected alice with 10 over 2 answers, got %+v", ranking[1])
	}

	stats, err := service.Ranking.UserStats(ctx, room.Code, alice.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalQuestions != 2 || stats.RankingEntry != ranking[1] {
		t.Fatalf("stats must agree with ranking, got %+v vs %+v", stats, ranking[1])
	}
	if p, err := service.Scores.Recompute(ctx, room.ID, alice.ID); err != nil || p.Score != 10 || p.CorrectAnswers != 1 {
		t.Fatalf("stored aggregate must match the ledger, got %+v err=%v", p, err)
	}

	if _, err := service.Ranking.UserStats(ctx, room.Code, host.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for non-participant, got %v", err)
	}
	if _, err := service.Ledger.Submit(ctx, app.AnswerInput{
		RoomCode: room.Code, UserID: alice.ID, QuestionID: questions[0].ID, AlternativeID: questions[1].Alternatives[0].ID,
	}); !errors.Is(err, domain.ErrAlternativeNotFound) {
		t.Fatalf("expected foreign alternative to be rejected, got %v", err)
	}
	if _, err := service.Ledger.Submit(ctx, app.AnswerInput{
		RoomCode: room.Code, UserID: "not-a-uuid", QuestionID: questions[0].ID, AlternativeID: questions[0].Alternatives[0].ID,
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected malformed id to be not found, got %v", err)
	}

	if invalid, err := service.Rooms.AuditQuestions(ctx); err != nil || len(invalid) != 0 {
		t.Fatalf("expected clean audit, got %v err=%v", invalid, err)
	}

	if _, err := service.Rooms.Finish(ctx, room.Code, host.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := service.Rooms.Finish(ctx, room.Code, host.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state on second finish, got %v", err)
	}
	rooms, err := service.Rooms.List(ctx)
	if err != nil || len(rooms) != 0 {
		t.Fatalf("finished rooms must not be listed, got %+v err=%v", rooms, err)
	}
}

func mustRegister(t *testing.T, ctx context.Context, service *app.Service, name string) domain.User {
	t.Helper()
	u, err := service.Users.Register(ctx, app.NewUser{Name: name})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return u
}

func expectEvent(t *testing.T, events <-chan domain.Event, typ domain.EventType) {
	t.Helper()
	select {
	case evt := <-events:
		if evt.Type != typ {
			t.Fatalf("expected %s, got %s", typ, evt.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", typ)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
