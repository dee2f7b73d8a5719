package app

import (
	"context"
	"time"

	"quiz-room-service/internal/domain"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// sharedReadTimeout bounds a collapsed ranking read, which runs detached from
// the request that started it.
const sharedReadTimeout = 10 * time.Second

// RankingService projects leaderboards and per-player stats from the answer
// ledger. It never mutates state.
type RankingService struct {
	rooms        RoomStore
	participants ParticipantStore
	answers      AnswerStore
	sf           singleflight.Group
}

func NewRankingService(rooms RoomStore, participants ParticipantStore, answers AnswerStore) *RankingService {
	return &RankingService{rooms: rooms, participants: participants, answers: answers}
}

// Ranking returns every participant ordered by score and then correct
// answers. Concurrent calls for the same room share one read.
func (r *RankingService) Ranking(ctx context.Context, code string) ([]domain.RankingEntry, error) {
	code = domain.CanonicalCode(code)
	ch := r.sf.DoChan(code, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		return r.ranking(readCtx, code)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.([]domain.RankingEntry)
	entries := make([]domain.RankingEntry, len(shared))
	copy(entries, shared)
	return entries, nil
}

func (r *RankingService) ranking(ctx context.Context, code string) ([]domain.RankingEntry, error) {
	room, err := r.rooms.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var (
		participants []domain.Participant
		answers      []domain.Answer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = r.participants.ListParticipants(gctx, room.ID)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = r.answers.ListRoomAnswers(gctx, room.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byUser := make(map[string][]domain.Answer, len(participants))
	for _, a := range answers {
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}
	entries := make([]domain.RankingEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.NewRankingEntry(p, domain.TallyAnswers(byUser[p.UserID])))
	}
	domain.SortRanking(entries)
	return entries, nil
}

// UserStats returns one participant's derived stats plus the room's question
// count. Users that never joined the room are not found.
func (r *RankingService) UserStats(ctx context.Context, code, userID string) (domain.UserStats, error) {
	room, err := r.rooms.GetRoomByCode(ctx, domain.CanonicalCode(code))
	if err != nil {
		return domain.UserStats{}, err
	}

	var (
		participant domain.Participant
		answers     []domain.Answer
		total       int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participant, err = r.participants.GetParticipant(gctx, room.ID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = r.answers.ListAnswers(gctx, room.ID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = r.rooms.CountQuestions(gctx, room.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.UserStats{}, err
	}

	return domain.UserStats{
		RankingEntry:   domain.NewRankingEntry(participant, domain.TallyAnswers(answers)),
		TotalQuestions: total,
	}, nil
}
