package exam

import (
	"context"
	"errors"

	"github.com/fideprep/fideprep-api/internal/catalog"
)

var (
	ErrNotFound  = errors.New("exam: not found")
	ErrDuplicate = errors.New("exam: session already exists for this A2 section")
	ErrConflict  = errors.New("exam: concurrent update")
)

// AnswerQuery addresses the answers of one question within one section of
// a session. QuestionIDs lists the accepted stored forms of the id.
type AnswerQuery struct {
	ExamID      int64
	Level       catalog.Level
	Mode        catalog.Mode
	SectionID   string
	QuestionIDs []string
}

type Store interface {
	// CreateSession assigns ID and Version. ErrDuplicate when the user already
	// has a session on the same speaking A2 section.
	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	FindSessionByA2(ctx context.Context, userID, a2ID string) (Session, error)
	// ListSessions returns the user's sessions, most recently updated first.
	ListSessions(ctx context.Context, userID string) ([]Session, error)
	// UpdateSession writes s if its Version still matches the stored one and
	// returns it with the bumped version. ErrConflict otherwise.
	UpdateSession(ctx context.Context, s Session) (Session, error)

	InsertAnswer(ctx context.Context, a Answer) (Answer, error)
	ListAnswers(ctx context.Context, examID int64) ([]Answer, error)
	// DeleteLatestAnswer removes the newest answer matching q and returns its id.
	DeleteLatestAnswer(ctx context.Context, q AnswerQuery) (int64, error)
}
