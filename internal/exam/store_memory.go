package exam

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	answers  map[int64]Answer
	nextExam int64
	nextAns  int64
}

// NewInMemoryStore is a process-local Store for tests and offline demos.
func NewInMemoryStore() Store {
	return &memoryStore{
		sessions: map[int64]Session{},
		answers:  map[int64]Answer{},
	}
}

func (m *memoryStore) CreateSession(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.SpeakingA2 != "" {
		for _, cur := range m.sessions {
			if cur.UserID == s.UserID && cur.SpeakingA2 == s.SpeakingA2 {
				return Session{}, ErrDuplicate
			}
		}
	}
	m.nextExam++
	s.ID = m.nextExam
	s.Version = 1
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetSession(_ context.Context, id int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) FindSessionByA2(_ context.Context, userID, a2ID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.SpeakingA2 == a2ID && a2ID != "" {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

func (m *memoryStore) ListSessions(_ context.Context, userID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memoryStore) UpdateSession(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if cur.Version != s.Version {
		return Session{}, ErrConflict
	}
	s.Version++
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) InsertAnswer(_ context.Context, a Answer) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[a.ExamID]; !ok {
		return Answer{}, ErrNotFound
	}
	m.nextAns++
	a.ID = m.nextAns
	m.answers[a.ID] = a
	return a, nil
}

func (m *memoryStore) ListAnswers(_ context.Context, examID int64) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Answer
	for _, a := range m.answers {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[j], out[i]) })
	return out, nil
}

func (m *memoryStore) DeleteLatestAnswer(_ context.Context, q AnswerQuery) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]struct{}{}
	for _, id := range q.QuestionIDs {
		want[id] = struct{}{}
	}
	var best *Answer
	for _, a := range m.answers {
		if a.ExamID != q.ExamID || a.Level != q.Level || a.Mode != q.Mode || a.SectionID != q.SectionID {
			continue
		}
		if _, ok := want[a.QuestionID]; !ok {
			continue
		}
		if best == nil || newer(a, *best) {
			a := a
			best = &a
		}
	}
	if best == nil {
		return 0, ErrNotFound
	}
	delete(m.answers, best.ID)
	return best.ID, nil
}
