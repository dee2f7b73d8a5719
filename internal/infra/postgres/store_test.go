package postgres

import (
	"errors"
	"fmt"
	"testing"

	"quiz-room-service/internal/domain"

	"github.com/jackc/pgconn"
)

func TestValidID(t *testing.T) {
	if !validID("2f1c6f55-5a0a-4c4e-9a86-8b9f3f1f7d10") {
		t.Fatalf("expected uuid to be valid")
	}
	if validID("2f1c6f55-5a0a-4c4e-9a86-8b9f3f1f7d10", "ABC123") {
		t.Fatalf("expected room code to be rejected")
	}
}

func TestMembershipErrorMapsForeignKeys(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"room_participants_user_id_fkey", domain.ErrUserNotFound},
		{"user_answers_question_id_fkey", domain.ErrQuestionNotFound},
		{"user_answers_room_id_fkey", domain.ErrRoomNotFound},
	}
	for _, tc := range cases {
		err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: tc.constraint})
		if got := membershipError("op", err); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.constraint, tc.want, got)
		}
	}

	other := membershipError("op", errors.New("connection reset"))
	if domain.KindOf(other) != domain.KindStorage {
		t.Fatalf("expected storage error, got %v", other)
	}
}

func TestRoomRowRejectsUnknownStatus(t *testing.T) {
	room, err := roomRow{ID: "r1", Code: "ABC123", Status: string(domain.StatusWaiting)}.toDomain()
	if err != nil || room.Status != domain.StatusWaiting || room.StartedAt != nil {
		t.Fatalf("unexpected room %+v err=%v", room, err)
	}
	if _, err := (roomRow{Status: "paused"}).toDomain(); err == nil || domain.KindOf(err) != domain.KindStorage {
		t.Fatalf("expected storage error for corrupt status, got %v", err)
	}
}
