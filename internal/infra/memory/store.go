package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. It enforces the same
// uniqueness and cascade rules as the relational schema.
type Store struct {
	mu           sync.RWMutex
	users        map[string]domain.User
	rooms        map[string]domain.Room     // by id
	codes        map[string]string          // code -> room id
	questions    map[string]domain.Question // by id, alternatives included
	participants map[participantKey]domain.Participant
	answers      map[answerKey]domain.Answer
}

type participantKey struct {
	roomID string
	userID string
}

type answerKey struct {
	userID     string
	roomID     string
	questionID string
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		rooms:        make(map[string]domain.Room),
		codes:        make(map[string]string),
		questions:    make(map[string]domain.Question),
		participants: make(map[participantKey]domain.Participant),
		answers:      make(map[answerKey]domain.Answer),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) CreateRoom(_ context.Context, room domain.Room) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[room.Code]; taken {
		return domain.Room{}, domain.ErrRoomCodeTaken
	}
	if _, ok := s.users[room.CreatedBy]; !ok {
		return domain.Room{}, domain.ErrUserNotFound
	}
	s.rooms[room.ID] = room
	s.codes[room.Code] = room.ID
	return room, nil
}

func (s *Store) GetRoomByCode(_ context.Context, code string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return s.rooms[id], nil
}

func (s *Store) ListRooms(_ context.Context) ([]domain.RoomSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for key := range s.participants {
		counts[key.roomID]++
	}
	out := make([]domain.RoomSummary, 0, len(s.rooms))
	for _, room := range s.rooms {
		if room.Status == domain.StatusFinished {
			continue
		}
		out = append(out, domain.RoomSummary{
			Room:             room,
			CreatorName:      s.users[room.CreatedBy].Name,
			ParticipantCount: counts[room.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) TransitionRoom(_ context.Context, roomID string, from, to domain.RoomStatus, at time.Time) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if room.Status != from {
		return domain.Room{}, domain.InvalidState("room is " + string(room.Status))
	}
	room.Status = to
	switch to {
	case domain.StatusActive:
		room.StartedAt = &at
	case domain.StatusFinished:
		room.FinishedAt = &at
	}
	s.rooms[roomID] = room
	return room, nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[q.RoomID]; !ok {
		return domain.Question{}, domain.ErrRoomNotFound
	}
	maxPos := 0
	for _, existing := range s.questions {
		if existing.RoomID == q.RoomID && existing.Position > maxPos {
			maxPos = existing.Position
		}
	}
	q.Position = maxPos + 1
	q.Alternatives = append([]domain.Alternative(nil), q.Alternatives...)
	s.questions[q.ID] = q
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, roomID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok || q.RoomID != roomID {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	for key := range s.answers {
		if key.questionID == questionID {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *Store) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *Store) ListQuestions(_ context.Context, roomID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.RoomID == roomID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) CountQuestions(_ context.Context, roomID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, q := range s.questions {
		if q.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (s *Store) InvalidQuestions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, q := range s.questions {
		if q.CorrectCount() != 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) AddParticipant(_ context.Context, roomID, userID string, at time.Time) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{roomID: roomID, userID: userID}
	if p, ok := s.participants[key]; ok {
		return s.withUserLocked(p), false, nil
	}
	if _, ok := s.rooms[roomID]; !ok {
		return domain.Participant{}, false, domain.ErrRoomNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return domain.Participant{}, false, domain.ErrUserNotFound
	}
	p := domain.Participant{RoomID: roomID, UserID: userID, JoinedAt: at}
	s.participants[key] = p
	return s.withUserLocked(p), true, nil
}

func (s *Store) GetParticipant(_ context.Context, roomID, userID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantKey{roomID: roomID, userID: userID}]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return s.withUserLocked(p), nil
}

func (s *Store) ListParticipants(_ context.Context, roomID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0)
	for key, p := range s.participants {
		if key.roomID == roomID {
			out = append(out, s.withUserLocked(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *Store) RecomputeParticipant(_ context.Context, roomID, userID string, pointsPerCorrect int, at time.Time) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return domain.Participant{}, domain.ErrRoomNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return domain.Participant{}, domain.ErrUserNotFound
	}

	key := participantKey{roomID: roomID, userID: userID}
	p, ok := s.participants[key]
	if !ok {
		p = domain.Participant{RoomID: roomID, UserID: userID, JoinedAt: at}
	}
	p.Score, p.CorrectAnswers, p.TotalAnswers = 0, 0, 0
	for k, a := range s.answers {
		if k.roomID != roomID || k.userID != userID {
			continue
		}
		p.TotalAnswers++
		if a.IsCorrect {
			p.CorrectAnswers++
		}
	}
	p.Score = pointsPerCorrect * p.CorrectAnswers
	s.participants[key] = p
	return s.withUserLocked(p), nil
}

func (s *Store) UpsertAnswer(_ context.Context, a domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[a.RoomID]; !ok {
		return domain.Answer{}, domain.ErrRoomNotFound
	}
	q, ok := s.questions[a.QuestionID]
	if !ok {
		return domain.Answer{}, domain.ErrQuestionNotFound
	}
	if _, ok := q.Alternative(a.AlternativeID); !ok {
		return domain.Answer{}, domain.ErrAlternativeNotFound
	}

	key := answerKey{userID: a.UserID, roomID: a.RoomID, questionID: a.QuestionID}
	if existing, ok := s.answers[key]; ok {
		// Keep the row identity; everything else is last-write-wins.
		a.ID = existing.ID
	}
	s.answers[key] = a
	return a, nil
}

func (s *Store) ListAnswers(_ context.Context, roomID, userID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Answer, 0)
	for key, a := range s.answers {
		if key.roomID == roomID && key.userID == userID {
			out = append(out, a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (s *Store) ListRoomAnswers(_ context.Context, roomID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Answer, 0)
	for key, a := range s.answers {
		if key.roomID == roomID {
			out = append(out, a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (s *Store) withUserLocked(p domain.Participant) domain.Participant {
	if user, ok := s.users[p.UserID]; ok {
		p.UserName = user.Name
		p.Avatar = user.Avatar
	}
	return p
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Alternatives = append([]domain.Alternative(nil), q.Alternatives...)
	return q
}

func sortAnswers(answers []domain.Answer) {
	sort.Slice(answers, func(i, j int) bool {
		if !answers[i].AnsweredAt.Equal(answers[j].AnsweredAt) {
			return answers[i].AnsweredAt.Before(answers[j].AnsweredAt)
		}
		return answers[i].ID < answers[j].ID
	})
}
