package app

import (
	"context"
	"time"

	"quiz-room-service/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AnswerInput is a single answer submission.
type AnswerInput struct {
	RoomCode      string `json:"roomCode" validate:"required"`
	UserID        string `json:"userId" validate:"required"`
	QuestionID    string `json:"questionId" validate:"required"`
	AlternativeID string `json:"alternativeId" validate:"required"`
}

// AnswerLedger records the latest answer per (user, room, question).
type AnswerLedger struct {
	users   UserStore
	rooms   RoomStore
	answers AnswerStore
	scores  *ScoreAggregator
	events  notifier
	now     func() time.Time
}

func NewAnswerLedger(users UserStore, rooms RoomStore, answers AnswerStore, scores *ScoreAggregator, relay Relay, logger zerolog.Logger, now func() time.Time) *AnswerLedger {
	return &AnswerLedger{
		users:   users,
		rooms:   rooms,
		answers: answers,
		scores:  scores,
		events:  notifier{relay: relay, log: logger},
		now:     now,
	}
}

// Submit records an answer, overwriting any earlier answer to the same
// question, then refreshes the participant aggregate and announces it.
func (l *AnswerLedger) Submit(ctx context.Context, in AnswerInput) (domain.AnswerResult, error) {
	if err := validateInput(in); err != nil {
		return domain.AnswerResult{}, err
	}

	room, err := l.rooms.GetRoomByCode(ctx, domain.CanonicalCode(in.RoomCode))
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !room.Status.AcceptsAnswers() {
		return domain.AnswerResult{}, domain.InvalidState("room is not accepting answers while " + string(room.Status))
	}
	if _, err := l.users.GetUser(ctx, in.UserID); err != nil {
		return domain.AnswerResult{}, err
	}

	question, err := l.rooms.GetQuestion(ctx, in.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if question.RoomID != room.ID {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	alt, ok := question.Alternative(in.AlternativeID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrAlternativeNotFound
	}

	// Correctness is a snapshot taken now; later edits to the question do not
	// rescore this row.
	answer, err := l.answers.UpsertAnswer(ctx, domain.Answer{
		ID:            uuid.NewString(),
		RoomID:        room.ID,
		UserID:        in.UserID,
		QuestionID:    question.ID,
		AlternativeID: alt.ID,
		IsCorrect:     alt.IsCorrect,
		AnsweredAt:    l.now().UTC(),
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}

	participant, err := l.scores.Recompute(ctx, room.ID, in.UserID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	l.events.notify(ctx, room.Code, domain.EventAnswerSubmitted, domain.AnswerSubmittedPayload{
		UserID:     answer.UserID,
		QuestionID: answer.QuestionID,
		IsCorrect:  answer.IsCorrect,
	})
	return domain.AnswerResult{Accepted: true, IsCorrect: answer.IsCorrect, Participant: participant}, nil
}
