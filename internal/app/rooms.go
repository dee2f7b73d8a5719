package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"quiz-room-service/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	codeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength       = 6
	codeAttempts     = 5
	defaultTimeLimit = 30
)

// NewRoom is the room creation input.
type NewRoom struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	CreatedBy   string `json:"createdBy" validate:"required"`
}

// NewQuestion is the question authoring input.
type NewQuestion struct {
	UserID       string           `json:"userId" validate:"required"`
	Text         string           `json:"text" validate:"required,max=1000"`
	Explanation  string           `json:"explanation" validate:"max=2000"`
	TimeLimit    int              `json:"timeLimit" validate:"gte=0,lte=600"`
	Alternatives []NewAlternative `json:"alternatives" validate:"min=2,max=6,dive"`
}

type NewAlternative struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"isCorrect"`
}

// RoomService is the room lifecycle manager: it owns the
// configuring → waiting → active → finished state machine and gates joins
// and question authoring on it.
type RoomService struct {
	users        UserStore
	rooms        RoomStore
	participants ParticipantStore
	events       notifier
	now          func() time.Time
}

func NewRoomService(users UserStore, rooms RoomStore, participants ParticipantStore, relay Relay, logger zerolog.Logger, now func() time.Time) *RoomService {
	return &RoomService{
		users:        users,
		rooms:        rooms,
		participants: participants,
		events:       notifier{relay: relay, log: logger},
		now:          now,
	}
}

// Create opens a new room in the configuring state under a fresh code.
func (s *RoomService) Create(ctx context.Context, in NewRoom) (domain.Room, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return domain.Room{}, err
	}
	if _, err := s.users.GetUser(ctx, in.CreatedBy); err != nil {
		return domain.Room{}, err
	}

	room := domain.Room{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   in.CreatedBy,
		Status:      domain.StatusConfiguring,
		CreatedAt:   s.now().UTC(),
	}
	var err error
	for i := 0; i < codeAttempts; i++ {
		room.Code = generateCode()
		var created domain.Room
		created, err = s.rooms.CreateRoom(ctx, room)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrRoomCodeTaken) {
			return domain.Room{}, err
		}
	}
	return domain.Room{}, err
}

// Get looks a room up by its case-insensitive code.
func (s *RoomService) Get(ctx context.Context, code string) (domain.Room, error) {
	return s.rooms.GetRoomByCode(ctx, domain.CanonicalCode(code))
}

// Presence returns the room together with how many clients follow its
// events. Relays that cannot count listeners report zero.
func (s *RoomService) Presence(ctx context.Context, code string) (domain.RoomPresence, error) {
	room, err := s.Get(ctx, code)
	if err != nil {
		return domain.RoomPresence{}, err
	}
	out := domain.RoomPresence{Room: room}
	counter, ok := s.events.relay.(ListenerCounter)
	if !ok {
		return out, nil
	}
	n, err := counter.Listeners(ctx, room.Code)
	if err != nil {
		s.events.log.Warn().Err(err).Str("room", room.Code).Msg("count listeners")
		return out, nil
	}
	out.Online = n
	return out, nil
}

// List returns every room that has not finished yet.
func (s *RoomService) List(ctx context.Context) ([]domain.RoomSummary, error) {
	return s.rooms.ListRooms(ctx)
}

// Join adds the user to the room. Joining twice is a no-op.
func (s *RoomService) Join(ctx context.Context, code, userID string) (domain.Room, error) {
	room, err := s.Get(ctx, code)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.Status.CanJoin() {
		if room.Status == domain.StatusConfiguring {
			return domain.Room{}, domain.InvalidState("room is still being configured by its creator")
		}
		return domain.Room{}, domain.InvalidState("room is " + string(room.Status))
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Room{}, err
	}

	_, created, err := s.participants.AddParticipant(ctx, room.ID, user.ID, s.now().UTC())
	if err != nil {
		return domain.Room{}, err
	}
	if created {
		s.events.notify(ctx, room.Code, domain.EventUserJoined, domain.UserJoinedPayload{
			UserID:   user.ID,
			UserName: user.Name,
		})
	}
	return room, nil
}

// AddQuestion appends a question to a room that is still configuring.
func (s *RoomService) AddQuestion(ctx context.Context, code string, in NewQuestion) (domain.Question, error) {
	room, err := s.editableRoom(ctx, code, in.UserID)
	if err != nil {
		return domain.Question{}, err
	}

	in.Text = strings.TrimSpace(in.Text)
	if err := validateInput(in); err != nil {
		return domain.Question{}, err
	}
	if correct := countCorrect(in.Alternatives); correct != 1 {
		return domain.Question{}, domain.Validation("a question needs exactly one correct alternative")
	}

	timeLimit := in.TimeLimit
	if timeLimit == 0 {
		timeLimit = defaultTimeLimit
	}
	q := domain.Question{
		ID:           uuid.NewString(),
		RoomID:       room.ID,
		Text:         in.Text,
		Explanation:  strings.TrimSpace(in.Explanation),
		TimeLimit:    timeLimit,
		CreatedAt:    s.now().UTC(),
		Alternatives: make([]domain.Alternative, 0, len(in.Alternatives)),
	}
	for i, alt := range in.Alternatives {
		q.Alternatives = append(q.Alternatives, domain.Alternative{
			ID:         uuid.NewString(),
			QuestionID: q.ID,
			Text:       strings.TrimSpace(alt.Text),
			IsCorrect:  alt.IsCorrect,
			Position:   i + 1,
		})
	}
	return s.rooms.CreateQuestion(ctx, q)
}

// RemoveQuestion deletes a question (and its alternatives) while configuring.
func (s *RoomService) RemoveQuestion(ctx context.Context, code, questionID, userID string) error {
	room, err := s.editableRoom(ctx, code, userID)
	if err != nil {
		return err
	}
	return s.rooms.DeleteQuestion(ctx, room.ID, questionID)
}

// Questions lists a room's questions in authoring order.
func (s *RoomService) Questions(ctx context.Context, code string) ([]domain.Question, error) {
	room, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.rooms.ListQuestions(ctx, room.ID)
}

// Finalize closes configuration and opens the room for players.
func (s *RoomService) Finalize(ctx context.Context, code, userID string) (domain.Room, error) {
	room, err := s.creatorRoom(ctx, code, userID)
	if err != nil {
		return domain.Room{}, err
	}
	if err := requireTransition(room, domain.StatusWaiting); err != nil {
		return domain.Room{}, err
	}
	n, err := s.rooms.CountQuestions(ctx, room.ID)
	if err != nil {
		return domain.Room{}, err
	}
	if n == 0 {
		return domain.Room{}, domain.Validation("add at least one question before opening the room")
	}
	return s.rooms.TransitionRoom(ctx, room.ID, domain.StatusConfiguring, domain.StatusWaiting, s.now().UTC())
}

// Start moves a waiting room to active and announces it.
func (s *RoomService) Start(ctx context.Context, code, userID string) (domain.Room, error) {
	room, err := s.creatorRoom(ctx, code, userID)
	if err != nil {
		return domain.Room{}, err
	}
	if err := requireTransition(room, domain.StatusActive); err != nil {
		return domain.Room{}, err
	}
	room, err = s.rooms.TransitionRoom(ctx, room.ID, domain.StatusWaiting, domain.StatusActive, s.now().UTC())
	if err != nil {
		return domain.Room{}, err
	}
	startedAt := s.now().UTC()
	if room.StartedAt != nil {
		startedAt = *room.StartedAt
	}
	s.events.notify(ctx, room.Code, domain.EventQuizStarted, domain.QuizStartedPayload{StartedAt: startedAt})
	return room, nil
}

// Finish ends an active room. Submitted answers stay valid for ranking.
func (s *RoomService) Finish(ctx context.Context, code, userID string) (domain.Room, error) {
	room, err := s.creatorRoom(ctx, code, userID)
	if err != nil {
		return domain.Room{}, err
	}
	if err := requireTransition(room, domain.StatusFinished); err != nil {
		return domain.Room{}, err
	}
	room, err = s.rooms.TransitionRoom(ctx, room.ID, domain.StatusActive, domain.StatusFinished, s.now().UTC())
	if err != nil {
		return domain.Room{}, err
	}
	finishedAt := s.now().UTC()
	if room.FinishedAt != nil {
		finishedAt = *room.FinishedAt
	}
	s.events.notify(ctx, room.Code, domain.EventQuizFinished, domain.QuizFinishedPayload{FinishedAt: finishedAt})
	return room, nil
}

// AuditQuestions reports stored questions that break the single-correct rule.
func (s *RoomService) AuditQuestions(ctx context.Context) ([]string, error) {
	return s.rooms.InvalidQuestions(ctx)
}

func (s *RoomService) creatorRoom(ctx context.Context, code, userID string) (domain.Room, error) {
	room, err := s.Get(ctx, code)
	if err != nil {
		return domain.Room{}, err
	}
	if userID == "" || room.CreatedBy != userID {
		return domain.Room{}, domain.ErrNotCreator
	}
	return room, nil
}

func (s *RoomService) editableRoom(ctx context.Context, code, userID string) (domain.Room, error) {
	room, err := s.creatorRoom(ctx, code, userID)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.Status.CanEditQuestions() {
		return domain.Room{}, domain.InvalidState("room is already open for play")
	}
	return room, nil
}

func requireTransition(room domain.Room, to domain.RoomStatus) error {
	if !room.Status.CanTransition(to) {
		return domain.InvalidState("room cannot move from " + string(room.Status) + " to " + string(to))
	}
	return nil
}

func countCorrect(alts []NewAlternative) int {
	n := 0
	for _, alt := range alts {
		if alt.IsCorrect {
			n++
		}
	}
	return n
}

func generateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}
