package exam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fideprep/fideprep-api/internal/apierr"
	"github.com/fideprep/fideprep-api/internal/catalog"
	"github.com/fideprep/fideprep-api/internal/logger"
	"github.com/fideprep/fideprep-api/internal/selection"
	syncx "github.com/fideprep/fideprep-api/internal/sync"
)

// maxUpdateAttempts bounds the optimistic read-modify-write loop.
const maxUpdateAttempts = 3

// errNoChange lets a mutation skip the write.
var errNoChange = errors.New("no change")

// Policies are the pluggable selection strategies the service uses.
type Policies struct {
	A2        selection.Policy
	A1        selection.Policy
	B1Options selection.Policy
	Listening selection.Policy
}

func DefaultPolicies(r selection.Rand) Policies {
	return Policies{
		A2:        selection.FirstUnseen{Rand: r},
		A1:        selection.IndexPaired{},
		B1Options: selection.PriorityShuffle{Rand: r},
		Listening: selection.LeastUsed{Rand: r},
	}
}

type EventSink interface {
	Append(ctx context.Context, e syncx.Event) error
}

type Service struct {
	store       Store
	cat         *catalog.Catalog
	policies    Policies
	events      EventSink
	log         *logger.Logger
	now         func() time.Time
	defaultLang catalog.Language
}

type Option func(*Service)

func WithPolicies(p Policies) Option { return func(s *Service) { s.policies = p } }

func WithEvents(e EventSink) Option { return func(s *Service) { s.events = e } }

func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithDefaultLanguage(l catalog.Language) Option {
	return func(s *Service) { s.defaultLang = l }
}

func NewService(store Store, cat *catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		store:       store,
		cat:         cat,
		policies:    DefaultPolicies(selection.DefaultRand),
		now:         time.Now,
		defaultLang: catalog.LangFR,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("service", "MockExam")
	return s
}

type StartRequest struct {
	ExamID   int64
	Language string
}

// Start resumes an in-progress session the caller owns, or assigns a speaking
// A2 section and opens (or resets) the session for it.
func (s *Service) Start(ctx context.Context, userID string, req StartRequest) (StartResult, error) {
	if req.ExamID != 0 {
		sess, err := s.store.GetSession(ctx, req.ExamID)
		switch {
		case err == nil && sess.UserID == userID && sess.Status == StatusInProgress:
			return s.resume(ctx, sess)
		case err != nil && !errors.Is(err, ErrNotFound):
			return StartResult{}, apierr.Internal(err)
		}
	}

	lang, err := s.language(req.Language)
	if err != nil {
		return StartResult{}, err
	}
	history, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return StartResult{}, apierr.Internal(err)
	}
	pick, err := s.pick(ctx, s.policies.A2, history, catalog.LevelA2, catalog.ModeSpeaking, lang, 1)
	if err != nil {
		return StartResult{}, err
	}
	a2 := pick.First()

	sess, reused, err := s.openSession(ctx, userID, lang, a2, history)
	if err != nil {
		return StartResult{}, err
	}
	alreadySeen := pick.AlreadySeen || reused
	if reused {
		s.record(ctx, "MockExamReset", sess, map[string]any{"speakingA2Id": a2})
	} else {
		s.record(ctx, "MockExamStarted", sess, map[string]any{"speakingA2Id": a2, "language": lang})
	}
	s.log.Info("mock exam started", "exam_id", sess.ID, "user_id", userID, "a2", a2,
		"attempt", sess.Attempt, "already_seen", alreadySeen)

	sections, err := s.loadSections(ctx, []sectionRef{{catalog.LevelA2, catalog.ModeSpeaking, a2}})
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{
		ExamID:      sess.ID,
		Attempt:     sess.Attempt,
		AlreadySeen: alreadySeen,
		Sections:    sections,
	}, nil
}

// openSession returns the user's session on a2, reset for a new attempt when
// one already exists.
func (s *Service) openSession(ctx context.Context, userID string, lang catalog.Language, a2 string, history []Session) (Session, bool, error) {
	for _, h := range history {
		if h.SpeakingA2 == a2 {
			sess, err := s.reset(ctx, h.ID, userID, lang)
			return sess, true, err
		}
	}
	now := s.now()
	sess, err := s.store.CreateSession(ctx, Session{
		UserID:     userID,
		Status:     StatusInProgress,
		Attempt:    1,
		Language:   lang,
		SpeakingA2: a2,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if errors.Is(err, ErrDuplicate) {
		existing, ferr := s.store.FindSessionByA2(ctx, userID, a2)
		if ferr != nil {
			return Session{}, false, apierr.Internal(ferr)
		}
		sess, err = s.reset(ctx, existing.ID, userID, lang)
		return sess, true, err
	}
	if err != nil {
		return Session{}, false, apierr.Internal(err)
	}
	return sess, false, nil
}

func (s *Service) reset(ctx context.Context, id int64, userID string, lang catalog.Language) (Session, error) {
	return s.mutate(ctx, id, userID, func(sess *Session) error {
		sess.Attempt++
		sess.Status = StatusInProgress
		sess.SelectedPath = PathNone
		sess.Language = lang
		sess.SpeakingA1 = ""
		sess.SpeakingB1 = ""
		return nil
	})
}

func (s *Service) resume(ctx context.Context, sess Session) (StartResult, error) {
	sections, answers, err := s.assemble(ctx, sess)
	if err != nil {
		return StartResult{}, err
	}
	s.log.Debug("mock exam resumed", "exam_id", sess.ID, "attempt", sess.Attempt)
	return StartResult{
		ExamID:       sess.ID,
		Attempt:      sess.Attempt,
		Resumed:      true,
		SelectedPath: sess.SelectedPath,
		Sections:     sections,
		Answers:      answers,
	}, nil
}

// Decide applies the post-A2 choice. Ownership is checked before the choice,
// so a zero DecisionChoice on someone else's exam is still NotFound.
func (s *Service) Decide(ctx context.Context, examID int64, userID string, choice DecisionChoice) (DecisionResult, error) {
	if _, err := s.owned(ctx, examID, userID); err != nil {
		return DecisionResult{}, err
	}
	switch choice.Kind {
	case ChoiceA1:
		return s.chooseA1(ctx, examID, userID)
	case ChoiceB1Start:
		return s.offerB1(ctx, examID, userID)
	case ChoiceB1Topic:
		return s.chooseTopic(ctx, examID, userID, choice.SectionID)
	}
	return DecisionResult{}, apierr.InvalidInput("%v", ErrInvalidChoice)
}

func (s *Service) chooseA1(ctx context.Context, examID int64, userID string) (DecisionResult, error) {
	sess, err := s.mutate(ctx, examID, userID, func(sess *Session) error {
		if sess.SpeakingA2 == "" {
			return apierr.InvalidInput("exam %d has no speaking A2 section", sess.ID)
		}
		a2s, err := s.cat.SectionIDs(ctx, catalog.LevelA2, catalog.ModeSpeaking, sess.Language)
		if err != nil {
			return apierr.Internal(err)
		}
		a1s, err := s.cat.SectionIDs(ctx, catalog.LevelA1, catalog.ModeSpeaking, sess.Language)
		if err != nil {
			return apierr.Internal(err)
		}
		pick, err := s.policies.A1.Select(selection.Input{
			Ordered: a1s,
			Anchor:  selection.Anchor{ID: sess.SpeakingA2, Ordered: a2s},
		})
		if err != nil {
			return selectionErr(catalog.LevelA1, catalog.ModeSpeaking, sess.Language, err)
		}
		sess.SpeakingA1 = pick.First()
		sess.SpeakingB1 = ""
		sess.SelectedPath = PathA1
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}
	s.record(ctx, "PathSelected", sess, map[string]any{"path": PathA1, "sectionId": sess.SpeakingA1})
	return s.decided(ctx, sess, catalog.ModeSpeaking, PathA1)
}

func (s *Service) offerB1(ctx context.Context, examID int64, userID string) (DecisionResult, error) {
	sess, err := s.owned(ctx, examID, userID)
	if err != nil {
		return DecisionResult{}, err
	}
	if sess.SpeakingA2 == "" {
		return DecisionResult{}, apierr.InvalidInput("exam %d has no speaking A2 section", sess.ID)
	}
	if !sess.hasOptions() {
		history, err := s.store.ListSessions(ctx, userID)
		if err != nil {
			return DecisionResult{}, apierr.Internal(err)
		}
		sess, err = s.mutate(ctx, examID, userID, func(sess *Session) error {
			if sess.hasOptions() {
				return errNoChange
			}
			pick, err := s.pick(ctx, s.policies.B1Options, history, catalog.LevelB1, catalog.ModeSpeaking, sess.Language, 2)
			if err != nil {
				return err
			}
			ids := pick.IDs
			for len(ids) < 2 {
				ids = append(ids, pick.First())
			}
			sess.B1Option1, sess.B1Option2 = ids[0], ids[1]
			return nil
		})
		if err != nil {
			return DecisionResult{}, err
		}
		s.record(ctx, "B1OptionsOffered", sess, map[string]any{"options": []string{sess.B1Option1, sess.B1Option2}})
	}

	opts := make([]TopicOption, 0, 2)
	for _, id := range []string{sess.B1Option1, sess.B1Option2} {
		title := id
		sec, err := s.cat.Section(ctx, catalog.LevelB1, catalog.ModeSpeaking, id)
		switch {
		case err == nil && sec.Title != "":
			title = sec.Title
		case err != nil && !errors.Is(err, catalog.ErrNotFound):
			return DecisionResult{}, apierr.Internal(err)
		}
		opts = append(opts, TopicOption{ID: id, Title: title})
	}
	return DecisionResult{
		ExamID:       sess.ID,
		Section:      catalog.LevelB1,
		SelectedPath: sess.SelectedPath,
		TopicSelection: &TopicSelection{
			Title:   "Choose your B1 topic",
			Options: opts,
		},
	}, nil
}

func (s *Service) chooseTopic(ctx context.Context, examID int64, userID, sectionID string) (DecisionResult, error) {
	sess, err := s.mutate(ctx, examID, userID, func(sess *Session) error {
		if !sess.hasOptions() {
			return apierr.InvalidInput("no B1 topics have been offered for exam %d", sess.ID)
		}
		if sectionID != sess.B1Option1 && sectionID != sess.B1Option2 {
			return apierr.InvalidInput("section %q is not one of the offered B1 topics", sectionID)
		}
		sess.SpeakingB1 = sectionID
		sess.SpeakingA1 = ""
		sess.SelectedPath = PathB1
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}
	s.record(ctx, "PathSelected", sess, map[string]any{"path": PathB1, "sectionId": sectionID})
	return s.decided(ctx, sess, catalog.ModeSpeaking, PathB1)
}

func (s *Service) decided(ctx context.Context, sess Session, mode catalog.Mode, path Path) (DecisionResult, error) {
	level := path.Level()
	sections, err := s.loadSections(ctx, []sectionRef{{level, mode, sess.SectionRef(level, mode)}})
	if err != nil {
		return DecisionResult{}, err
	}
	s.log.Info("mock exam path chosen", "exam_id", sess.ID, "mode", mode, "path", path,
		"section_id", sess.SectionRef(level, mode))
	return DecisionResult{
		ExamID:       sess.ID,
		Section:      level,
		SelectedPath: path,
		Sections:     sections,
	}, nil
}

type ListeningRequest struct {
	Path           string
	SpeakingExamID int64
	Language       string
}

// StartListening opens a listening session with an A2 section and, when a
// branch is known, its A1 or B1 section.
func (s *Service) StartListening(ctx context.Context, userID string, req ListeningRequest) (StartResult, error) {
	path, err := parsePath(req.Path)
	if err != nil {
		return StartResult{}, err
	}
	langRaw := req.Language
	if req.SpeakingExamID != 0 && (path == PathNone || langRaw == "") {
		sp, err := s.store.GetSession(ctx, req.SpeakingExamID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return StartResult{}, apierr.Internal(err)
		}
		if err == nil && sp.UserID == userID {
			if path == PathNone {
				path = sp.SelectedPath
			}
			if langRaw == "" {
				langRaw = string(sp.Language)
			}
		}
	}
	lang, err := s.language(langRaw)
	if err != nil {
		return StartResult{}, err
	}

	history, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return StartResult{}, apierr.Internal(err)
	}
	a2, err := s.pick(ctx, s.policies.Listening, history, catalog.LevelA2, catalog.ModeListening, lang, 1)
	if err != nil {
		return StartResult{}, err
	}
	now := s.now()
	sess := Session{
		UserID:       userID,
		Status:       StatusInProgress,
		Attempt:      1,
		Language:     lang,
		SelectedPath: path,
		ListeningA2:  a2.First(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	refs := []sectionRef{{catalog.LevelA2, catalog.ModeListening, sess.ListeningA2}}
	if path != PathNone {
		branch, err := s.pick(ctx, s.policies.Listening, history, path.Level(), catalog.ModeListening, lang, 1)
		if err != nil {
			return StartResult{}, err
		}
		sess.setSectionRef(path.Level(), catalog.ModeListening, branch.First())
		refs = append(refs, sectionRef{path.Level(), catalog.ModeListening, branch.First()})
	}

	sess, err = s.store.CreateSession(ctx, sess)
	if err != nil {
		return StartResult{}, apierr.Internal(err)
	}
	s.record(ctx, "ListeningStarted", sess, map[string]any{"listeningA2Id": sess.ListeningA2, "path": path})
	s.log.Info("listening exam started", "exam_id", sess.ID, "user_id", userID, "path", path)

	sections, err := s.loadSections(ctx, refs)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{
		ExamID:       sess.ID,
		Attempt:      sess.Attempt,
		AlreadySeen:  a2.AlreadySeen,
		SelectedPath: path,
		Sections:     sections,
	}, nil
}

// ListeningDecision assigns the listening section for the chosen branch.
func (s *Service) ListeningDecision(ctx context.Context, examID int64, userID string, path Path) (DecisionResult, error) {
	if _, err := s.owned(ctx, examID, userID); err != nil {
		return DecisionResult{}, err
	}
	if path != PathA1 && path != PathB1 {
		return DecisionResult{}, apierr.InvalidInput("choice must be A1 or B1")
	}
	history, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return DecisionResult{}, apierr.Internal(err)
	}
	sess, err := s.mutate(ctx, examID, userID, func(sess *Session) error {
		if sess.ListeningA2 == "" {
			return apierr.InvalidInput("exam %d is not a listening exam", sess.ID)
		}
		pick, err := s.pick(ctx, s.policies.Listening, history, path.Level(), catalog.ModeListening, sess.Language, 1)
		if err != nil {
			return err
		}
		sess.ListeningA1, sess.ListeningB1 = "", ""
		sess.setSectionRef(path.Level(), catalog.ModeListening, pick.First())
		sess.SelectedPath = path
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}
	s.record(ctx, "PathSelected", sess, map[string]any{
		"path": path, "mode": catalog.ModeListening, "sectionId": sess.SectionRef(path.Level(), catalog.ModeListening),
	})
	return s.decided(ctx, sess, catalog.ModeListening, path)
}

type AnswerInput struct {
	Level      string `json:"sectionType"`
	Mode       string `json:"mode"`
	QuestionID string `json:"questionId"`
	AnswerText string `json:"answerText"`
	AudioURL   string `json:"audioUrl"`
}

// SubmitAnswers appends one row per resolvable item and returns how many were
// stored. Items whose section cannot be resolved are skipped.
func (s *Service) SubmitAnswers(ctx context.Context, examID int64, userID string, items []AnswerInput) (int, error) {
	sess, err := s.owned(ctx, examID, userID)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, apierr.InvalidInput("answers must be a non-empty array")
	}
	count := 0
	for i, it := range items {
		level, err := catalog.ParseLevel(it.Level)
		if err != nil {
			s.log.Warn("answer skipped", "exam_id", examID, "index", i, "error", err)
			continue
		}
		mode := catalog.ModeSpeaking
		if it.Mode != "" {
			if mode, err = catalog.ParseMode(it.Mode); err != nil {
				s.log.Warn("answer skipped", "exam_id", examID, "index", i, "error", err)
				continue
			}
		}
		sectionID := sess.SectionRef(level, mode)
		if sectionID == "" || it.QuestionID == "" {
			s.log.Warn("answer skipped: unresolved section", "exam_id", examID, "index", i,
				"level", level, "mode", mode)
			continue
		}
		_, err = s.store.InsertAnswer(ctx, Answer{
			ExamID:        sess.ID,
			AttemptNumber: sess.Attempt,
			UserID:        userID,
			Level:         level,
			Mode:          mode,
			SectionID:     sectionID,
			QuestionID:    NormalizeQuestionID(it.QuestionID, level),
			AnswerText:    it.AnswerText,
			AudioRef:      it.AudioURL,
			CreatedAt:     s.now(),
		})
		if err != nil {
			s.log.Error("answer insert failed", "exam_id", examID, "index", i, "error", err)
			continue
		}
		count++
	}
	s.log.Debug("answers stored", "exam_id", examID, "received", len(items), "stored", count)
	return count, nil
}

// DeleteLatestAnswer removes the newest answer to one question, whatever form
// its id was stored under.
func (s *Service) DeleteLatestAnswer(ctx context.Context, examID int64, userID, levelRaw, modeRaw, questionID string) (int64, error) {
	level, err := catalog.ParseLevel(levelRaw)
	if err != nil {
		return 0, apierr.InvalidInput("%v", err)
	}
	mode := catalog.ModeSpeaking
	if modeRaw != "" {
		if mode, err = catalog.ParseMode(modeRaw); err != nil {
			return 0, apierr.InvalidInput("%v", err)
		}
	}
	if questionID == "" {
		return 0, apierr.InvalidInput("questionId is required")
	}
	sess, err := s.owned(ctx, examID, userID)
	if err != nil {
		return 0, err
	}
	sectionID := sess.SectionRef(level, mode)
	if sectionID == "" {
		return 0, apierr.NotFound(fmt.Sprintf("%s %s section", level, mode))
	}
	id, err := s.store.DeleteLatestAnswer(ctx, AnswerQuery{
		ExamID:      sess.ID,
		Level:       level,
		Mode:        mode,
		SectionID:   sectionID,
		QuestionIDs: QuestionIDCandidates(questionID, level),
	})
	if errors.Is(err, ErrNotFound) {
		return 0, apierr.NotFound("answer")
	}
	if err != nil {
		return 0, apierr.Internal(err)
	}
	s.record(ctx, "AnswerDeleted", sess, map[string]any{"answerId": id, "questionId": questionID})
	return id, nil
}

// Complete marks the session finished. Completing twice is a no-op.
func (s *Service) Complete(ctx context.Context, examID int64, userID string) (Session, error) {
	changed := false
	sess, err := s.mutate(ctx, examID, userID, func(sess *Session) error {
		if sess.Status == StatusCompleted {
			return errNoChange
		}
		sess.Status = StatusCompleted
		changed = true
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	if changed {
		s.record(ctx, "MockExamCompleted", sess, nil)
		s.log.Info("mock exam completed", "exam_id", sess.ID, "attempt", sess.Attempt)
	}
	return sess, nil
}

// History returns every session of the user, most recently updated first.
func (s *Service) History(ctx context.Context, userID string) ([]Detail, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	out := make([]Detail, 0, len(sessions))
	for _, sess := range sessions {
		sections, answers, err := s.assemble(ctx, sess)
		if err != nil {
			return nil, err
		}
		out = append(out, Detail{Exam: sess, Sections: sections, Answers: answers})
	}
	return out, nil
}

func (s *Service) Detail(ctx context.Context, examID int64, userID string) (Detail, error) {
	sess, err := s.owned(ctx, examID, userID)
	if err != nil {
		return Detail{}, err
	}
	sections, answers, err := s.assemble(ctx, sess)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Exam: sess, Sections: sections, Answers: answers}, nil
}

// Session returns the caller's session.
func (s *Service) Session(ctx context.Context, examID int64, userID string) (Session, error) {
	return s.owned(ctx, examID, userID)
}

// owned loads a session; sessions of other users are reported as missing.
func (s *Service) owned(ctx context.Context, examID int64, userID string) (Session, error) {
	sess, err := s.store.GetSession(ctx, examID)
	if errors.Is(err, ErrNotFound) || (err == nil && sess.UserID != userID) {
		return Session{}, apierr.NotFound("exam")
	}
	if err != nil {
		return Session{}, apierr.Internal(err)
	}
	return sess, nil
}

// mutate runs fn against the latest stored session and writes the result,
// retrying when another writer got there first.
func (s *Service) mutate(ctx context.Context, examID int64, userID string, fn func(*Session) error) (Session, error) {
	for i := 0; i < maxUpdateAttempts; i++ {
		sess, err := s.owned(ctx, examID, userID)
		if err != nil {
			return Session{}, err
		}
		if err := fn(&sess); err != nil {
			if errors.Is(err, errNoChange) {
				return sess, nil
			}
			return Session{}, err
		}
		sess.UpdatedAt = s.now()
		updated, err := s.store.UpdateSession(ctx, sess)
		switch {
		case errors.Is(err, ErrConflict):
			s.log.Debug("session update conflict, retrying", "exam_id", examID, "try", i+1)
			continue
		case errors.Is(err, ErrNotFound):
			return Session{}, apierr.NotFound("exam")
		case err != nil:
			return Session{}, apierr.Internal(err)
		}
		return updated, nil
	}
	return Session{}, apierr.Conflict(fmt.Errorf("exam %d: %w", examID, ErrConflict))
}

// pick runs policy over the catalog for level/mode/lang and the usage
// derived from history.
func (s *Service) pick(ctx context.Context, p selection.Policy, history []Session, level catalog.Level, mode catalog.Mode, lang catalog.Language, count int) (selection.Result, error) {
	ordered, err := s.cat.SectionIDs(ctx, level, mode, lang)
	if err != nil {
		return selection.Result{}, apierr.Internal(err)
	}
	assigned, offered := usage(history, level, mode)
	res, err := p.Select(selection.Input{Ordered: ordered, Assigned: assigned, Offered: offered, Count: count})
	if err != nil {
		return selection.Result{}, selectionErr(level, mode, lang, err)
	}
	return res, nil
}

// usage derives per-section history for level/mode. Offered lists B1 topics
// shown but not taken.
func usage(history []Session, level catalog.Level, mode catalog.Mode) (assigned, offered []string) {
	for _, h := range history {
		if id := h.SectionRef(level, mode); id != "" {
			assigned = append(assigned, id)
		}
		if level == catalog.LevelB1 && mode == catalog.ModeSpeaking {
			for _, o := range []string{h.B1Option1, h.B1Option2} {
				if o != "" && o != h.SpeakingB1 {
					offered = append(offered, o)
				}
			}
		}
	}
	return assigned, offered
}

func selectionErr(level catalog.Level, mode catalog.Mode, lang catalog.Language, err error) error {
	return apierr.Configuration(fmt.Errorf("%s %s sections (%s): %w", level, mode, lang, err))
}

func (s *Service) language(raw string) (catalog.Language, error) {
	if raw == "" {
		return s.defaultLang, nil
	}
	l, err := catalog.ParseLanguage(raw)
	if err != nil {
		return "", apierr.InvalidInput("%v", err)
	}
	return l, nil
}

func parsePath(raw string) (Path, error) {
	if raw == "" {
		return PathNone, nil
	}
	lvl, err := catalog.ParseLevel(raw)
	if err != nil || lvl == catalog.LevelA2 {
		return PathNone, apierr.InvalidInput("path must be A1 or B1")
	}
	return Path(lvl), nil
}

func (s *Service) record(ctx context.Context, typ string, sess Session, data map[string]any) {
	if s.events == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["examId"] = sess.ID
	data["userId"] = sess.UserID
	data["attempt"] = sess.Attempt
	e, err := syncx.NewEvent(typ, fmt.Sprintf("exam:%d", sess.ID), data)
	if err == nil {
		err = s.events.Append(ctx, e)
	}
	if err != nil {
		s.log.Warn("event append failed", "type", typ, "exam_id", sess.ID, "error", err)
	}
}

type sectionRef struct {
	level catalog.Level
	mode  catalog.Mode
	id    string
}

// assignedRefs lists the sections the session currently shows, in exam order.
func assignedRefs(sess Session) []sectionRef {
	var refs []sectionRef
	add := func(level catalog.Level, mode catalog.Mode) {
		if id := sess.SectionRef(level, mode); id != "" {
			refs = append(refs, sectionRef{level, mode, id})
		}
	}
	for _, mode := range []catalog.Mode{catalog.ModeSpeaking, catalog.ModeListening} {
		add(catalog.LevelA2, mode)
		if sess.SelectedPath != PathNone {
			add(sess.SelectedPath.Level(), mode)
		}
	}
	return refs
}

func (s *Service) assemble(ctx context.Context, sess Session) ([]SectionBundle, []AttributedAnswer, error) {
	sections, err := s.loadSections(ctx, assignedRefs(sess))
	if err != nil {
		return nil, nil, err
	}
	all, err := s.store.ListAnswers(ctx, sess.ID)
	if err != nil {
		return nil, nil, apierr.Internal(err)
	}
	current := all[:0:0]
	for _, a := range all {
		if a.SectionID == sess.SectionRef(a.Level, a.Mode) {
			current = append(current, a)
		}
	}
	return sections, LatestAnswers(current, sess.Attempt), nil
}

// loadSections fetches section bodies concurrently, preserving order.
func (s *Service) loadSections(ctx context.Context, refs []sectionRef) ([]SectionBundle, error) {
	out := make([]SectionBundle, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			sec, err := s.cat.Section(gctx, ref.level, ref.mode, ref.id)
			if err != nil {
				if !errors.Is(err, catalog.ErrNotFound) {
					return err
				}
				s.log.Warn("assigned section not in catalog", "level", ref.level, "mode", ref.mode, "section_id", ref.id)
				sec = catalog.Section{ID: ref.id, Level: ref.level, Mode: ref.mode}
			}
			body, err := s.cat.Content(gctx, sec)
			if err != nil {
				return err
			}
			out[i] = SectionBundle{Level: ref.level, Mode: ref.mode, Section: body}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apierr.Internal(err)
	}
	return out, nil
}
