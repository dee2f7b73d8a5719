package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary layer.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation"
	KindStorage      Kind = "storage"
)

// Error is the typed outcome every core operation returns on failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target without a message
// matches every error of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != e.Kind {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrStorage      = &Error{Kind: KindStorage}
)

var (
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = NotFound("user not found")
	// ErrRoomNotFound is returned when a room code does not resolve.
	ErrRoomNotFound = NotFound("room not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid for the room.
	ErrQuestionNotFound = NotFound("question not found")
	// ErrAlternativeNotFound indicates a submitted alternative ID is invalid for the question.
	ErrAlternativeNotFound = NotFound("alternative not found")
	// ErrParticipantNotFound is returned when a user never joined the room.
	ErrParticipantNotFound = NotFound("participant not found")
	// ErrNotCreator is returned when a creator-only operation is attempted by someone else.
	ErrNotCreator = Forbidden("only the room creator can do this")
	// ErrRoomCodeTaken is returned by stores when a generated room code collides.
	ErrRoomCodeTaken = &Error{Kind: KindStorage, Msg: "room code already taken"}
)

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }

func InvalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Msg: msg} }

func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Msg: msg} }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }

// Storage wraps a backing store failure.
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// KindOf reports the kind of err. Unclassified errors are storage errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}
