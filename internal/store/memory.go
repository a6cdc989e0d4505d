package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Little6thingys/lyric-mind/internal/models"
)

// MemoryStore keeps scores for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[string]models.SavedScore
	nextID uint
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[string]models.SavedScore), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s *models.SavedScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s.PublicID == "" {
		s.PublicID = uuid.New().String()
	}
	if prev, ok := m.scores[s.PublicID]; ok {
		s.ID = prev.ID
		s.CreatedAt = prev.CreatedAt
	} else {
		m.nextID++
		s.ID = m.nextID
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.scores[s.PublicID] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.SavedScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scores[id]
	if !ok {
		return nil, notFound(id)
	}
	return &s, nil
}

// List returns the newest scores first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]models.ScoreSummary, error) {
	m.mu.RLock()
	all := make([]models.SavedScore, 0, len(m.scores))
	for _, s := range m.scores {
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if n := clampLimit(limit); len(all) > n {
		all = all[:n]
	}

	out := make([]models.ScoreSummary, len(all))
	for i := range all {
		out[i] = all[i].Summary()
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scores[id]; !ok {
		return notFound(id)
	}
	delete(m.scores, id)
	return nil
}
