package domain

import "strings"

// RoomStatus is a room's lifecycle state.
type RoomStatus string

const (
	StatusConfiguring RoomStatus = "configuring"
	StatusWaiting     RoomStatus = "waiting"
	StatusActive      RoomStatus = "active"
	StatusFinished    RoomStatus = "finished"
)

// transitions lists the only forward edge out of each state.
var transitions = map[RoomStatus]RoomStatus{
	StatusConfiguring: StatusWaiting,
	StatusWaiting:     StatusActive,
	StatusActive:      StatusFinished,
}

// Valid reports whether s is a known status.
func (s RoomStatus) Valid() bool {
	switch s {
	case StatusConfiguring, StatusWaiting, StatusActive, StatusFinished:
		return true
	}
	return false
}

// CanTransition reports whether s may move to next.
func (s RoomStatus) CanTransition(next RoomStatus) bool {
	to, ok := transitions[s]
	return ok && to == next
}

// CanJoin reports whether players may join a room in this state.
func (s RoomStatus) CanJoin() bool {
	return s == StatusWaiting || s == StatusActive
}

// CanEditQuestions reports whether questions may be added or removed.
func (s RoomStatus) CanEditQuestions() bool {
	return s == StatusConfiguring
}

// AcceptsAnswers reports whether answers are accepted.
func (s RoomStatus) AcceptsAnswers() bool {
	return s == StatusActive
}

// CanonicalCode normalizes a user-entered room code.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
