package domain

import (
	"encoding/json"
	"time"
)

// EventType names a room-scoped realtime event.
type EventType string

const (
	EventUserJoined      EventType = "user-joined"
	EventQuizStarted     EventType = "quiz-started"
	EventAnswerSubmitted EventType = "answer-submitted"
	EventQuizFinished    EventType = "quiz-finished"
)

// Event is what the relay carries. Payload is kept encoded so every relay
// implementation can ship it unchanged.
type Event struct {
	Type     EventType       `json:"type"`
	RoomCode string          `json:"roomCode"`
	Payload  json.RawMessage `json:"payload"`
}

type UserJoinedPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type QuizStartedPayload struct {
	StartedAt time.Time `json:"startedAt"`
}

type AnswerSubmittedPayload struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
}

type QuizFinishedPayload struct {
	FinishedAt time.Time `json:"finishedAt"`
}

// NewEvent encodes payload into an event for the given room.
func NewEvent(typ EventType, roomCode string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, RoomCode: roomCode, Payload: raw}, nil
}
