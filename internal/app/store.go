package app

import (
	"context"
	"time"

	"quiz-room-service/internal/domain"
)

// UserStore persists registered users.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// RoomStore persists rooms and the questions they own.
type RoomStore interface {
	CreateRoom(ctx context.Context, room domain.Room) (domain.Room, error)
	GetRoomByCode(ctx context.Context, code string) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.RoomSummary, error)
	// TransitionRoom moves a room from one status to the next only if it is
	// still in from; otherwise it fails with an invalid state error.
	TransitionRoom(ctx context.Context, roomID string, from, to domain.RoomStatus, at time.Time) (domain.Room, error)

	// CreateQuestion writes the question and its alternatives atomically and
	// assigns the next position in the room.
	CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, roomID, questionID string) error
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	ListQuestions(ctx context.Context, roomID string) ([]domain.Question, error)
	CountQuestions(ctx context.Context, roomID string) (int, error)
	// InvalidQuestions lists ids of stored questions whose correct alternative
	// count is not exactly one.
	InvalidQuestions(ctx context.Context) ([]string, error)
}

// ParticipantStore persists room memberships and their derived aggregates.
type ParticipantStore interface {
	// AddParticipant creates the membership if absent and reports whether it did.
	AddParticipant(ctx context.Context, roomID, userID string, at time.Time) (domain.Participant, bool, error)
	GetParticipant(ctx context.Context, roomID, userID string) (domain.Participant, error)
	// ListParticipants returns members in join order.
	ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error)
	// RecomputeParticipant derives score, correct and total answers from every
	// ledger row of (room, user) and upserts the participant row.
	RecomputeParticipant(ctx context.Context, roomID, userID string, pointsPerCorrect int, at time.Time) (domain.Participant, error)
}

// AnswerStore is the answer ledger's backing store.
type AnswerStore interface {
	// UpsertAnswer inserts or overwrites the row keyed by (user, room, question).
	UpsertAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error)
	ListAnswers(ctx context.Context, roomID, userID string) ([]domain.Answer, error)
	ListRoomAnswers(ctx context.Context, roomID string) ([]domain.Answer, error)
}

// Store is the relational store the service runs on.
type Store interface {
	UserStore
	RoomStore
	ParticipantStore
	AnswerStore
	Close() error
}

// Relay broadcasts room-scoped events to connected clients. Delivery is
// best-effort and at most once.
type Relay interface {
	Publish(ctx context.Context, roomCode string, event domain.Event) error
	// Subscribe returns a channel of events for a room. The caller must invoke
	// the returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, roomCode string) (<-chan domain.Event, func(), error)
	Close() error
}

// ListenerCounter is implemented by relays that know how many clients follow
// a room.
type ListenerCounter interface {
	Listeners(ctx context.Context, roomCode string) (int, error)
}
