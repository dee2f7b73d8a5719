package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-room-service/internal/domain"

	"github.com/uptrace/bun"
)

type roomRow struct {
	bun.BaseModel `bun:"table:rooms"`

	ID          string    `bun:"id,pk,type:uuid"`
	Code        string    `bun:"code"`
	Name        string    `bun:"name"`
	Description string    `bun:"description"`
	CreatedBy   string    `bun:"created_by,type:uuid"`
	Status      string    `bun:"status"`
	CreatedAt   time.Time `bun:"created_at"`
	StartedAt   time.Time `bun:"started_at,nullzero"`
	FinishedAt  time.Time `bun:"finished_at,nullzero"`
}

func (r roomRow) toDomain() (domain.Room, error) {
	status := domain.RoomStatus(r.Status)
	if !status.Valid() {
		return domain.Room{}, domain.Storage("decode room", fmt.Errorf("unknown status %q", r.Status))
	}
	room := domain.Room{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   r.CreatedBy,
		Status:      status,
		CreatedAt:   r.CreatedAt,
	}
	if !r.StartedAt.IsZero() {
		t := r.StartedAt
		room.StartedAt = &t
	}
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt
		room.FinishedAt = &t
	}
	return room, nil
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID          string    `bun:"id,pk,type:uuid"`
	RoomID      string    `bun:"room_id,type:uuid"`
	Text        string    `bun:"text"`
	Explanation string    `bun:"explanation"`
	Position    int       `bun:"position"`
	TimeLimit   int       `bun:"time_limit"`
	CreatedAt   time.Time `bun:"created_at"`
}

type alternativeRow struct {
	bun.BaseModel `bun:"table:alternatives"`

	ID         string `bun:"id,pk,type:uuid"`
	QuestionID string `bun:"question_id,type:uuid"`
	Text       string `bun:"text"`
	IsCorrect  bool   `bun:"is_correct"`
	Position   int    `bun:"position"`
}

func (r questionRow) toDomain(alts []alternativeRow) domain.Question {
	q := domain.Question{
		ID:           r.ID,
		RoomID:       r.RoomID,
		Text:         r.Text,
		Explanation:  r.Explanation,
		Position:     r.Position,
		TimeLimit:    r.TimeLimit,
		CreatedAt:    r.CreatedAt,
		Alternatives: make([]domain.Alternative, 0, len(alts)),
	}
	for _, a := range alts {
		q.Alternatives = append(q.Alternatives, domain.Alternative{
			ID:         a.ID,
			QuestionID: a.QuestionID,
			Text:       a.Text,
			IsCorrect:  a.IsCorrect,
			Position:   a.Position,
		})
	}
	return q
}

func (s *Store) CreateRoom(ctx context.Context, room domain.Room) (domain.Room, error) {
	row := roomRow{
		ID:          room.ID,
		Code:        room.Code,
		Name:        room.Name,
		Description: room.Description,
		CreatedBy:   room.CreatedBy,
		Status:      string(room.Status),
		CreatedAt:   room.CreatedAt,
	}
	if !validID(room.CreatedBy) {
		return domain.Room{}, domain.ErrUserNotFound
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		switch code, _ := sqlState(err); code {
		case uniqueViolation:
			return domain.Room{}, domain.ErrRoomCodeTaken
		case foreignKeyViolation:
			return domain.Room{}, domain.ErrUserNotFound
		}
		return domain.Room{}, domain.Storage("create room", err)
	}
	return row.toDomain()
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (domain.Room, error) {
	return s.getRoom(ctx, s.db, "code = ?", code)
}

func (s *Store) getRoom(ctx context.Context, db bun.IDB, where string, arg any) (domain.Room, error) {
	var row roomRow
	err := db.NewSelect().Model(&row).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, domain.Storage("get room", err)
	}
	return row.toDomain()
}

const listRoomsSQL = `
SELECT r.id::text, r.code, r.name, r.description, r.created_by::text, r.status,
       r.created_at, r.started_at, r.finished_at, u.name, COUNT(p.user_id)
FROM rooms r
JOIN users u ON u.id = r.created_by
LEFT JOIN room_participants p ON p.room_id = r.id
WHERE r.status <> $1
GROUP BY r.id, u.name
ORDER BY r.created_at DESC`

func (s *Store) ListRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	rows, err := s.pool.Query(ctx, listRoomsSQL, string(domain.StatusFinished))
	if err != nil {
		return nil, domain.Storage("list rooms", err)
	}
	defer rows.Close()

	out := make([]domain.RoomSummary, 0)
	for rows.Next() {
		var (
			sum    domain.RoomSummary
			status string
			count  int64
		)
		if err := rows.Scan(&sum.ID, &sum.Code, &sum.Name, &sum.Description, &sum.CreatedBy, &status,
			&sum.CreatedAt, &sum.StartedAt, &sum.FinishedAt, &sum.CreatorName, &count); err != nil {
			return nil, domain.Storage("scan room", err)
		}
		sum.Status = domain.RoomStatus(status)
		if !sum.Status.Valid() {
			return nil, domain.Storage("scan room", fmt.Errorf("unknown status %q", status))
		}
		sum.ParticipantCount = int(count)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("list rooms", err)
	}
	return out, nil
}

func (s *Store) TransitionRoom(ctx context.Context, roomID string, from, to domain.RoomStatus, at time.Time) (domain.Room, error) {
	if !validID(roomID) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	q := s.db.NewUpdate().
		Model((*roomRow)(nil)).
		Set("status = ?", string(to)).
		Where("id = ?", roomID).
		Where("status = ?", string(from))
	switch to {
	case domain.StatusActive:
		q = q.Set("started_at = ?", at)
	case domain.StatusFinished:
		q = q.Set("finished_at = ?", at)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return domain.Room{}, domain.Storage("transition room", err)
	}

	room, err := s.getRoom(ctx, s.db, "id = ?", roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Room{}, domain.InvalidState("room is " + string(room.Status))
	}
	return room, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if !validID(q.RoomID) {
		return domain.Question{}, domain.ErrRoomNotFound
	}
	row := questionRow{
		ID:          q.ID,
		RoomID:      q.RoomID,
		Text:        q.Text,
		Explanation: q.Explanation,
		TimeLimit:   q.TimeLimit,
		CreatedAt:   q.CreatedAt,
	}
	alts := make([]alternativeRow, 0, len(q.Alternatives))
	for _, a := range q.Alternatives {
		alts = append(alts, alternativeRow{
			ID:         a.ID,
			QuestionID: q.ID,
			Text:       a.Text,
			IsCorrect:  a.IsCorrect,
			Position:   a.Position,
		})
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Lock the room so concurrent authors get distinct positions.
		var room roomRow
		err := tx.NewSelect().Model(&room).Where("id = ?", q.RoomID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.NewSelect().
			Model((*questionRow)(nil)).
			ColumnExpr("COALESCE(MAX(position), 0) + 1").
			Where("room_id = ?", q.RoomID).
			Scan(ctx, &row.Position); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return err
		}
		if len(alts) > 0 {
			if _, err := tx.NewInsert().Model(&alts).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return domain.Question{}, err
		}
		return domain.Question{}, domain.Storage("create question", err)
	}
	return row.toDomain(alts), nil
}

func (s *Store) DeleteQuestion(ctx context.Context, roomID, questionID string) error {
	if !validID(roomID, questionID) {
		return domain.ErrQuestionNotFound
	}
	res, err := s.db.NewDelete().
		Model((*questionRow)(nil)).
		Where("id = ?", questionID).
		Where("room_id = ?", roomID).
		Exec(ctx)
	if err != nil {
		return domain.Storage("delete question", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	if !validID(questionID) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	var row questionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", questionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, domain.Storage("get question", err)
	}
	var alts []alternativeRow
	if err := s.db.NewSelect().
		Model(&alts).
		Where("question_id = ?", questionID).
		Order("position ASC").
		Scan(ctx); err != nil {
		return domain.Question{}, domain.Storage("get alternatives", err)
	}
	return row.toDomain(alts), nil
}

func (s *Store) ListQuestions(ctx context.Context, roomID string) ([]domain.Question, error) {
	out := make([]domain.Question, 0)
	if !validID(roomID) {
		return out, nil
	}
	var rows []questionRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("room_id = ?", roomID).
		Order("position ASC").
		Scan(ctx); err != nil {
		return nil, domain.Storage("list questions", err)
	}
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var alts []alternativeRow
	if err := s.db.NewSelect().
		Model(&alts).
		Where("question_id IN (?)", bun.In(ids)).
		Order("question_id ASC", "position ASC").
		Scan(ctx); err != nil {
		return nil, domain.Storage("list alternatives", err)
	}
	byQuestion := make(map[string][]alternativeRow, len(rows))
	for _, a := range alts {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
	}
	for _, r := range rows {
		out = append(out, r.toDomain(byQuestion[r.ID]))
	}
	return out, nil
}

func (s *Store) CountQuestions(ctx context.Context, roomID string) (int, error) {
	if !validID(roomID) {
		return 0, nil
	}
	n, err := s.db.NewSelect().Model((*questionRow)(nil)).Where("room_id = ?", roomID).Count(ctx)
	if err != nil {
		return 0, domain.Storage("count questions", err)
	}
	return n, nil
}

const invalidQuestionsSQL = `
SELECT q.id::text
FROM questions q
LEFT JOIN alternatives a ON a.question_id = q.id
GROUP BY q.id
HAVING COUNT(a.id) FILTER (WHERE a.is_correct) <> 1
ORDER BY q.id`

func (s *Store) InvalidQuestions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, invalidQuestionsSQL)
	if err != nil {
		return nil, domain.Storage("audit questions", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.Storage("scan question id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("audit questions", err)
	}
	return ids, nil
}
