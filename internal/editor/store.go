package editor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Little6thingys/lyric-mind/internal/logger"
	"github.com/Little6thingys/lyric-mind/internal/score"
)

// Store keeps open sessions in memory, keyed by a random id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps
	opts     Options
	now      func() time.Time
}

func NewStore(deps Deps, opts Options) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		deps:     deps,
		opts:     opts,
		now:      time.Now,
	}
}

// Create opens a session on a blank score.
func (st *Store) Create(blank score.BlankOptions) *Session {
	s := NewSession(uuid.New().String(), st.deps, st.opts, blank)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get looks up a session and counts the lookup as activity.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.markSeen(st.now())
	}
	return s, ok
}

// Delete closes and forgets a session. It reports whether it existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops every session idle for longer than the store's IdleTTL as of
// now and returns how many went.
func (st *Store) Sweep(now time.Time) int {
	if st.opts.IdleTTL <= 0 {
		return 0
	}
	var expired []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if now.Sub(s.lastActive()) > st.opts.IdleTTL {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		logger.Info("Idle sessions dropped", logger.Fields{"count": len(expired), "remaining": st.Len()})
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until the returned stop func is
// called. Without an IdleTTL it does nothing.
func (st *Store) StartSweeper(interval time.Duration) (stop func()) {
	if st.opts.IdleTTL <= 0 || interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				st.Sweep(st.now())
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
