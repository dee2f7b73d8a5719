package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-room-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Service wires the quiz use cases around one store and one relay.
type Service struct {
	Users   *UserService
	Rooms   *RoomService
	Ledger  *AnswerLedger
	Scores  *ScoreAggregator
	Ranking *RankingService

	store Store
	relay Relay
}

// New builds every component on the given store and relay.
func New(store Store, relay Relay, logger zerolog.Logger) *Service {
	return NewWithClock(store, relay, logger, time.Now)
}

// NewWithClock allows deterministic timestamps in tests.
func NewWithClock(store Store, relay Relay, logger zerolog.Logger, now func() time.Time) *Service {
	scores := NewScoreAggregator(store, now)
	return &Service{
		Users:   NewUserService(store, now),
		Rooms:   NewRoomService(store, store, store, relay, logger, now),
		Ledger:  NewAnswerLedger(store, store, store, scores, relay, logger, now),
		Scores:  scores,
		Ranking: NewRankingService(store, store, store),
		store:   store,
		relay:   relay,
	}
}

// Subscribe streams the events of an existing room.
func (s *Service) Subscribe(ctx context.Context, code string) (domain.Room, <-chan domain.Event, func(), error) {
	room, err := s.Rooms.Get(ctx, code)
	if err != nil {
		return domain.Room{}, nil, nil, err
	}
	if s.relay == nil {
		return domain.Room{}, nil, nil, errors.New("realtime relay not configured")
	}
	events, cancel, err := s.relay.Subscribe(ctx, room.Code)
	if err != nil {
		return domain.Room{}, nil, nil, err
	}
	return room, events, cancel, nil
}

// Close tears down the relay and the store.
func (s *Service) Close() error {
	var relayErr error
	if s.relay != nil {
		relayErr = s.relay.Close()
	}
	return errors.Join(relayErr, s.store.Close())
}

// notifier publishes events without failing the operation that caused them.
type notifier struct {
	relay Relay
	log   zerolog.Logger
}

func (n notifier) notify(ctx context.Context, roomCode string, typ domain.EventType, payload any) {
	if n.relay == nil {
		return
	}
	evt, err := domain.NewEvent(typ, roomCode, payload)
	if err == nil {
		err = n.relay.Publish(ctx, roomCode, evt)
	}
	if err != nil {
		n.log.Warn().Err(err).Str("room", roomCode).Str("event", string(typ)).Msg("publish event")
	}
}

var validate = validator.New()

// validateInput runs struct tag validation and reports failures as validation errors.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.Validation(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return domain.Validation(strings.Join(msgs, "; "))
}
