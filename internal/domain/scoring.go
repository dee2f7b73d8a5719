package domain

import (
	"math"
	"sort"
)

// Tally is the aggregate derived from a participant's ledger rows.
type Tally struct {
	Score          int
	CorrectAnswers int
	TotalAnswers   int
}

// TallyAnswers recomputes an aggregate from scratch. Answers must already be
// unique per question, which the ledger guarantees.
func TallyAnswers(answers []Answer) Tally {
	var t Tally
	for _, a := range answers {
		t.TotalAnswers++
		if a.IsCorrect {
			t.CorrectAnswers++
		}
	}
	t.Score = PointsPerCorrect * t.CorrectAnswers
	return t
}

// Accuracy returns correct/total as a percentage rounded to one decimal.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

// NewRankingEntry builds a leaderboard row for a participant from its tally.
func NewRankingEntry(p Participant, t Tally) RankingEntry {
	return RankingEntry{
		UserID:         p.UserID,
		Name:           p.UserName,
		Avatar:         p.Avatar,
		Score:          t.Score,
		CorrectAnswers: t.CorrectAnswers,
		TotalAnswers:   t.TotalAnswers,
		Accuracy:       Accuracy(t.CorrectAnswers, t.TotalAnswers),
	}
}

// SortRanking orders entries by score, then correct answers, both descending.
// Remaining ties keep their input order.
func SortRanking(entries []RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].CorrectAnswers > entries[j].CorrectAnswers
	})
}
