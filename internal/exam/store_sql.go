package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fideprep/fideprep-api/internal/catalog"
	"github.com/fideprep/fideprep-api/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(conn *sql.DB) *SQLStore {
	return &SQLStore{db: conn}
}

const sessionCols = `id, user_id, status, attempt, selected_path, language,
	speaking_a1_id, speaking_a2_id, speaking_b1_id,
	listening_a1_id, listening_a2_id, listening_b1_id,
	speaking_b1_option1_id, speaking_b1_option2_id,
	version, created_at, updated_at`

func (s *SQLStore) CreateSession(ctx context.Context, in Session) (Session, error) {
	in.Version = 1
	err := s.db.QueryRowContext(ctx, `INSERT INTO mock_exams (user_id, status, attempt, selected_path, language,
		speaking_a1_id, speaking_a2_id, speaking_b1_id,
		listening_a1_id, listening_a2_id, listening_b1_id,
		speaking_b1_option1_id, speaking_b1_option2_id,
		version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`,
		in.UserID, string(in.Status), in.Attempt, nullStr(string(in.SelectedPath)), string(in.Language),
		nullStr(in.SpeakingA1), nullStr(in.SpeakingA2), nullStr(in.SpeakingB1),
		nullStr(in.ListeningA1), nullStr(in.ListeningA2), nullStr(in.ListeningB1),
		nullStr(in.B1Option1), nullStr(in.B1Option2),
		in.Version, in.CreatedAt.UnixMilli(), in.UpdatedAt.UnixMilli(),
	).Scan(&in.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Session{}, ErrDuplicate
		}
		return Session{}, err
	}
	return in, nil
}

func (s *SQLStore) GetSession(ctx context.Context, id int64) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM mock_exams WHERE id=$1`, id)
	return scanSession(row)
}

func (s *SQLStore) FindSessionByA2(ctx context.Context, userID, a2ID string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM mock_exams WHERE user_id=$1 AND speaking_a2_id=$2`, userID, a2ID)
	return scanSession(row)
}

func (s *SQLStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionCols+` FROM mock_exams WHERE user_id=$1 ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateSession(ctx context.Context, in Session) (Session, error) {
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE mock_exams SET
			status=$1, attempt=$2, selected_path=$3, language=$4,
			speaking_a1_id=$5, speaking_a2_id=$6, speaking_b1_id=$7,
			listening_a1_id=$8, listening_a2_id=$9, listening_b1_id=$10,
			speaking_b1_option1_id=$11, speaking_b1_option2_id=$12,
			version=version+1, updated_at=$13
			WHERE id=$14 AND version=$15`,
			string(in.Status), in.Attempt, nullStr(string(in.SelectedPath)), string(in.Language),
			nullStr(in.SpeakingA1), nullStr(in.SpeakingA2), nullStr(in.SpeakingB1),
			nullStr(in.ListeningA1), nullStr(in.ListeningA2), nullStr(in.ListeningB1),
			nullStr(in.B1Option1), nullStr(in.B1Option2),
			in.UpdatedAt.UnixMilli(), in.ID, in.Version)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM mock_exams WHERE id=$1`, in.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return ErrConflict
	})
	if err != nil {
		return Session{}, err
	}
	in.Version++
	return in, nil
}

func (s *SQLStore) InsertAnswer(ctx context.Context, a Answer) (Answer, error) {
	err := s.db.QueryRowContext(ctx, `INSERT INTO mock_answers
		(exam_id, attempt_number, user_id, level, mode, section_id, question_id, answer_text, audio_ref, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		a.ExamID, a.AttemptNumber, a.UserID, string(a.Level), string(a.Mode), a.SectionID,
		a.QuestionID, a.AnswerText, a.AudioRef, a.CreatedAt.UnixMilli(),
	).Scan(&a.ID)
	if err != nil {
		return Answer{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAnswers(ctx context.Context, examID int64) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, exam_id, attempt_number, user_id, level, mode,
		section_id, question_id, answer_text, audio_ref, created_at
		FROM mock_answers WHERE exam_id=$1 ORDER BY created_at, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Answer
	for rows.Next() {
		var (
			a           Answer
			level, mode string
			created     int64
		)
		if err := rows.Scan(&a.ID, &a.ExamID, &a.AttemptNumber, &a.UserID, &level, &mode,
			&a.SectionID, &a.QuestionID, &a.AnswerText, &a.AudioRef, &created); err != nil {
			return nil, err
		}
		a.Level, a.Mode = catalog.Level(level), catalog.Mode(mode)
		a.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteLatestAnswer selects and deletes in one transaction so two concurrent
// deletes remove two different rows.
func (s *SQLStore) DeleteLatestAnswer(ctx context.Context, q AnswerQuery) (int64, error) {
	if len(q.QuestionIDs) == 0 {
		return 0, ErrNotFound
	}
	args := []any{q.ExamID, string(q.Level), string(q.Mode), q.SectionID}
	marks := make([]string, len(q.QuestionIDs))
	for i, id := range q.QuestionIDs {
		args = append(args, id)
		marks[i] = fmt.Sprintf("$%d", len(args))
	}
	query := `SELECT id FROM mock_answers
		WHERE exam_id=$1 AND level=$2 AND mode=$3 AND section_id=$4
		AND question_id IN (` + strings.Join(marks, ",") + `)
		ORDER BY created_at DESC, id DESC LIMIT 1`

	var id int64
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM mock_answers WHERE id=$1`, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var (
		s                Session
		status, lang     string
		path             sql.NullString
		sa1, sa2, sb1    sql.NullString
		la1, la2, lb1    sql.NullString
		opt1, opt2       sql.NullString
		created, updated int64
	)
	err := r.Scan(&s.ID, &s.UserID, &status, &s.Attempt, &path, &lang,
		&sa1, &sa2, &sb1, &la1, &la2, &lb1, &opt1, &opt2,
		&s.Version, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	s.Status = Status(status)
	s.SelectedPath = Path(path.String)
	s.Language = catalog.Language(lang)
	s.SpeakingA1, s.SpeakingA2, s.SpeakingB1 = sa1.String, sa2.String, sb1.String
	s.ListeningA1, s.ListeningA2, s.ListeningB1 = la1.String, la2.String, lb1.String
	s.B1Option1, s.B1Option2 = opt1.String, opt2.String
	s.CreatedAt = time.UnixMilli(created).UTC()
	s.UpdatedAt = time.UnixMilli(updated).UTC()
	return s, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
