package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("section not found")

type Repo interface {
	// ListSections returns sections ordered by sequence index, then id.
	ListSections(ctx context.Context, level Level, mode Mode, lang Language) ([]Section, error)
	GetSection(ctx context.Context, level Level, mode Mode, id string) (Section, error)
	UpsertSection(ctx context.Context, s Section) error
}

type memoryRepo struct {
	mu       sync.RWMutex
	sections map[string]Section
}

// NewMemoryRepo is used by tests and DB_DRIVER=memory.
func NewMemoryRepo(seed ...Section) Repo {
	r := &memoryRepo{sections: map[string]Section{}}
	for _, s := range seed {
		r.sections[memKey(s.Level, s.Mode, s.ID)] = s
	}
	return r
}

func memKey(level Level, mode Mode, id string) string {
	return string(level) + "|" + string(mode) + "|" + id
}

func (m *memoryRepo) ListSections(_ context.Context, level Level, mode Mode, lang Language) ([]Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Section, 0, 8)
	for _, s := range m.sections {
		if s.Level == level && s.Mode == mode && s.Language == lang {
			out = append(out, s)
		}
	}
	sortSections(out)
	return out, nil
}

func (m *memoryRepo) GetSection(_ context.Context, level Level, mode Mode, id string) (Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[memKey(level, mode, id)]
	if !ok {
		return Section{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) UpsertSection(_ context.Context, s Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[memKey(s.Level, s.Mode, s.ID)] = s
	return nil
}

func sortSections(s []Section) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].SequenceIndex != s[j].SequenceIndex {
			return s[i].SequenceIndex < s[j].SequenceIndex
		}
		return s[i].ID < s[j].ID
	})
}
