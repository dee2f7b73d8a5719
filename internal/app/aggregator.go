package app

import (
	"context"
	"time"

	"quiz-room-service/internal/domain"
)

// ScoreAggregator keeps each participant's score, correct and total answer
// counts in line with the answer ledger.
type ScoreAggregator struct {
	participants ParticipantStore
	now          func() time.Time
}

func NewScoreAggregator(participants ParticipantStore, now func() time.Time) *ScoreAggregator {
	return &ScoreAggregator{participants: participants, now: now}
}

// Recompute rebuilds the aggregate from every ledger row of (room, user),
// creating the participant row first when needed. Running it twice without
// ledger changes in between leaves the row untouched, so redundant concurrent
// calls converge.
func (a *ScoreAggregator) Recompute(ctx context.Context, roomID, userID string) (domain.Participant, error) {
	return a.participants.RecomputeParticipant(ctx, roomID, userID, domain.PointsPerCorrect, a.now().UTC())
}
