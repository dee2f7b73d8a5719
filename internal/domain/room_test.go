package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestRoomStatusTransitionsOnlyMoveForward(t *testing.T) {
	allowed := map[[2]RoomStatus]bool{
		{StatusConfiguring, StatusWaiting}: true,
		{StatusWaiting, StatusActive}:      true,
		{StatusActive, StatusFinished}:     true,
	}
	all := []RoomStatus{StatusConfiguring, StatusWaiting, StatusActive, StatusFinished}
	for _, from := range all {
		for _, to := range all {
			if got := from.CanTransition(to); got != allowed[[2]RoomStatus{from, to}] {
				t.Fatalf("%s -> %s: got %v", from, to, got)
			}
		}
	}
}

func TestRoomStatusValid(t *testing.T) {
	for _, s := range []RoomStatus{StatusConfiguring, StatusWaiting, StatusActive, StatusFinished} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if RoomStatus("paused").Valid() || RoomStatus("").Valid() {
		t.Fatalf("unknown status reported valid")
	}
}

func TestRoomStatusGates(t *testing.T) {
	if StatusConfiguring.CanJoin() || StatusFinished.CanJoin() {
		t.Fatalf("configuring and finished rooms must reject joins")
	}
	if !StatusWaiting.CanJoin() || !StatusActive.CanJoin() {
		t.Fatalf("waiting and active rooms must accept joins")
	}
	if !StatusConfiguring.CanEditQuestions() || StatusWaiting.CanEditQuestions() {
		t.Fatalf("only configuring rooms accept question edits")
	}
	if !StatusActive.AcceptsAnswers() || StatusFinished.AcceptsAnswers() || StatusWaiting.AcceptsAnswers() {
		t.Fatalf("only active rooms accept answers")
	}
}

func TestCanonicalCode(t *testing.T) {
	if got := CanonicalCode("  ab12cd "); got != "AB12CD" {
		t.Fatalf("expected AB12CD, got %q", got)
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("join: %w", ErrRoomNotFound)

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected kind match")
	}
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected exact match")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatalf("different message must not match")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("different kind must not match")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found kind, got %s", KindOf(err))
	}
	if KindOf(errors.New("boom")) != KindStorage {
		t.Fatalf("unclassified errors are storage errors")
	}
}
