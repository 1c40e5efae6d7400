package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) ListSections(ctx context.Context, level Level, mode Mode, lang Language) ([]Section, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, level, mode, language, sequence_index, title, content_ref
		   FROM sections
		  WHERE level=$1 AND mode=$2 AND language=$3
		  ORDER BY sequence_index ASC, id ASC`,
		string(level), string(mode), string(lang))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLRepo) GetSection(ctx context.Context, level Level, mode Mode, id string) (Section, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, level, mode, language, sequence_index, title, content_ref
		   FROM sections WHERE level=$1 AND mode=$2 AND id=$3`,
		string(level), string(mode), id)
	s, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Section{}, ErrNotFound
	}
	return s, err
}

func (r *SQLRepo) UpsertSection(ctx context.Context, s Section) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sections (id, level, mode, language, sequence_index, title, content_ref, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (level, mode, id) DO UPDATE SET
		   language=EXCLUDED.language,
		   sequence_index=EXCLUDED.sequence_index,
		   title=EXCLUDED.title,
		   content_ref=EXCLUDED.content_ref`,
		s.ID, string(s.Level), string(s.Mode), string(s.Language), s.SequenceIndex, s.Title, s.ContentRef, time.Now().Unix())
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSection(sc scanner) (Section, error) {
	var s Section
	var level, mode, lang string
	if err := sc.Scan(&s.ID, &level, &mode, &lang, &s.SequenceIndex, &s.Title, &s.ContentRef); err != nil {
		return Section{}, err
	}
	s.Level, s.Mode, s.Language = Level(level), Mode(mode), Language(lang)
	return s, nil
}
