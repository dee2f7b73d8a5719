package domain

import "time"

// PointsPerCorrect is the score awarded for every correct answer.
const PointsPerCorrect = 10

// DefaultAvatar is used when a user registers without one.
const DefaultAvatar = "👤"

// User is a registered player. Users are immutable after registration.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// Room is a play session grouping questions and participants under a shareable code.
type Room struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	Status      RoomStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// RoomSummary is a room listing row.
type RoomSummary struct {
	Room
	CreatorName      string `json:"createdByName"`
	ParticipantCount int    `json:"participantCount"`
}

// RoomPresence is a room plus the number of clients following its events.
type RoomPresence struct {
	Room
	Online int `json:"online"`
}

// Alternative is a possible answer for a question.
type Alternative struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
	Position   int    `json:"position"`
}

// Question models a multiple-choice question with exactly one correct alternative.
type Question struct {
	ID           string        `json:"id"`
	RoomID       string        `json:"roomId"`
	Text         string        `json:"text"`
	Explanation  string        `json:"explanation,omitempty"`
	Position     int           `json:"position"`
	TimeLimit    int           `json:"timeLimit"` // seconds, informational only
	CreatedAt    time.Time     `json:"createdAt"`
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative returns the alternative with the given id.
func (q Question) Alternative(id string) (Alternative, bool) {
	for _, alt := range q.Alternatives {
		if alt.ID == id {
			return alt, true
		}
	}
	return Alternative{}, false
}

// CorrectCount reports how many alternatives are marked correct.
func (q Question) CorrectCount() int {
	n := 0
	for _, alt := range q.Alternatives {
		if alt.IsCorrect {
			n++
		}
	}
	return n
}

// Participant is a user's membership and score record within a room.
type Participant struct {
	RoomID         string    `json:"roomId"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"name"`
	Avatar         string    `json:"avatar"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalAnswers   int       `json:"totalAnswers"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// Answer is the ledger row for one (user, room, question).
type Answer struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"roomId"`
	UserID        string    `json:"userId"`
	QuestionID    string    `json:"questionId"`
	AlternativeID string    `json:"alternativeId"`
	IsCorrect     bool      `json:"isCorrect"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// AnswerResult summarizes the outcome of a submission.
type AnswerResult struct {
	Accepted    bool        `json:"success"`
	IsCorrect   bool        `json:"isCorrect"`
	Participant Participant `json:"-"`
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	UserID         string  `json:"userId"`
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalAnswers   int     `json:"totalAnswers"`
	Accuracy       float64 `json:"accuracy"`
}

// UserStats is a single player's derived statistics within a room.
type UserStats struct {
	RankingEntry
	TotalQuestions int `json:"totalQuestions"`
}
