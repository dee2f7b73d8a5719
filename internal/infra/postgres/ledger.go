package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"quiz-room-service/internal/domain"

	"github.com/jackc/pgx/v4"
)

const participantColumns = `
SELECT p.room_id::text, p.user_id::text, u.name, u.avatar,
       p.score, p.correct_answers, p.total_answers, p.joined_at
FROM room_participants p
JOIN users u ON u.id = p.user_id`

const addParticipantSQL = `
INSERT INTO room_participants (room_id, user_id, joined_at)
VALUES ($1::uuid, $2::uuid, $3)
ON CONFLICT (room_id, user_id) DO NOTHING`

// recomputeSQL rebuilds one participant row from the ledger in a single
// statement, creating it when the user answered without joining.
const recomputeSQL = `
INSERT INTO room_participants (room_id, user_id, score, correct_answers, total_answers, joined_at)
SELECT $1::uuid, $2::uuid,
       ($3::int * COUNT(*) FILTER (WHERE is_correct))::int,
       (COUNT(*) FILTER (WHERE is_correct))::int,
       COUNT(*)::int,
       $4::timestamptz
FROM user_answers
WHERE room_id = $1::uuid AND user_id = $2::uuid
ON CONFLICT (room_id, user_id) DO UPDATE
SET score = EXCLUDED.score,
    correct_answers = EXCLUDED.correct_answers,
    total_answers = EXCLUDED.total_answers`

// upsertAnswerSQL only inserts when the alternative belongs to the question;
// no returned row means the pair did not match.
const upsertAnswerSQL = `
INSERT INTO user_answers (id, user_id, room_id, question_id, alternative_id, is_correct, answered_at)
SELECT $1::uuid, $2::uuid, $3::uuid, a.question_id, a.id, $6::boolean, $7::timestamptz
FROM alternatives a
WHERE a.id = $5::uuid AND a.question_id = $4::uuid
ON CONFLICT (user_id, room_id, question_id) DO UPDATE
SET alternative_id = EXCLUDED.alternative_id,
    is_correct = EXCLUDED.is_correct,
    answered_at = EXCLUDED.answered_at
RETURNING id::text`

const answerColumns = `
SELECT id::text, room_id::text, user_id::text, question_id::text, alternative_id::text, is_correct, answered_at
FROM user_answers`

func (s *Store) AddParticipant(ctx context.Context, roomID, userID string, at time.Time) (domain.Participant, bool, error) {
	if !validID(roomID) {
		return domain.Participant{}, false, domain.ErrRoomNotFound
	}
	if !validID(userID) {
		return domain.Participant{}, false, domain.ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx, addParticipantSQL, roomID, userID, at)
	if err != nil {
		return domain.Participant{}, false, membershipError("add participant", err)
	}
	p, err := s.GetParticipant(ctx, roomID, userID)
	if err != nil {
		return domain.Participant{}, false, err
	}
	return p, tag.RowsAffected() == 1, nil
}

func (s *Store) GetParticipant(ctx context.Context, roomID, userID string) (domain.Participant, error) {
	if !validID(roomID, userID) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	row := s.pool.QueryRow(ctx, participantColumns+` WHERE p.room_id = $1::uuid AND p.user_id = $2::uuid`, roomID, userID)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, domain.Storage("get participant", err)
	}
	return p, nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	out := make([]domain.Participant, 0)
	if !validID(roomID) {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, participantColumns+` WHERE p.room_id = $1::uuid ORDER BY p.joined_at, p.user_id`, roomID)
	if err != nil {
		return nil, domain.Storage("list participants", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, domain.Storage("scan participant", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("list participants", err)
	}
	return out, nil
}

func (s *Store) RecomputeParticipant(ctx context.Context, roomID, userID string, pointsPerCorrect int, at time.Time) (domain.Participant, error) {
	if !validID(roomID) {
		return domain.Participant{}, domain.ErrRoomNotFound
	}
	if !validID(userID) {
		return domain.Participant{}, domain.ErrUserNotFound
	}
	if _, err := s.pool.Exec(ctx, recomputeSQL, roomID, userID, pointsPerCorrect, at); err != nil {
		return domain.Participant{}, membershipError("recompute participant", err)
	}
	return s.GetParticipant(ctx, roomID, userID)
}

func (s *Store) UpsertAnswer(ctx context.Context, a domain.Answer) (domain.Answer, error) {
	if !validID(a.RoomID) {
		return domain.Answer{}, domain.ErrRoomNotFound
	}
	if !validID(a.QuestionID) {
		return domain.Answer{}, domain.ErrQuestionNotFound
	}
	if !validID(a.AlternativeID) {
		return domain.Answer{}, domain.ErrAlternativeNotFound
	}
	if !validID(a.ID, a.UserID) {
		return domain.Answer{}, domain.ErrUserNotFound
	}

	err := s.pool.QueryRow(ctx, upsertAnswerSQL,
		a.ID, a.UserID, a.RoomID, a.QuestionID, a.AlternativeID, a.IsCorrect, a.AnsweredAt,
	).Scan(&a.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, domain.ErrAlternativeNotFound
	}
	if err != nil {
		return domain.Answer{}, membershipError("upsert answer", err)
	}
	return a, nil
}

func (s *Store) ListAnswers(ctx context.Context, roomID, userID string) ([]domain.Answer, error) {
	if !validID(roomID, userID) {
		return []domain.Answer{}, nil
	}
	return s.queryAnswers(ctx, answerColumns+` WHERE room_id = $1::uuid AND user_id = $2::uuid ORDER BY answered_at, id`, roomID, userID)
}

func (s *Store) ListRoomAnswers(ctx context.Context, roomID string) ([]domain.Answer, error) {
	if !validID(roomID) {
		return []domain.Answer{}, nil
	}
	return s.queryAnswers(ctx, answerColumns+` WHERE room_id = $1::uuid ORDER BY answered_at, id`, roomID)
}

func (s *Store) queryAnswers(ctx context.Context, query string, args ...any) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Storage("list answers", err)
	}
	defer rows.Close()

	out := make([]domain.Answer, 0)
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.RoomID, &a.UserID, &a.QuestionID, &a.AlternativeID, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, domain.Storage("scan answer", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("list answers", err)
	}
	return out, nil
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.RoomID, &p.UserID, &p.UserName, &p.Avatar,
		&p.Score, &p.CorrectAnswers, &p.TotalAnswers, &p.JoinedAt)
	return p, err
}

// membershipError maps a foreign key violation to the entity that is missing.
func membershipError(op string, err error) error {
	code, constraint := sqlState(err)
	if code != foreignKeyViolation {
		return domain.Storage(op, err)
	}
	switch {
	case strings.Contains(constraint, "user_id"):
		return domain.ErrUserNotFound
	case strings.Contains(constraint, "question_id"):
		return domain.ErrQuestionNotFound
	default:
		return domain.ErrRoomNotFound
	}
}
