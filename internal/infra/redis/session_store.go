package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions stay in a local map so subscribers keep receiving in-process
// broadcasts; Redis only carries a liveness marker per session.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.Bank(), s.ttl).Err()
}

// Get returns a local session while its liveness marker is present and
// slides the marker's TTL. A session whose marker expired is dropped.
// Redis errors leave the local entry untouched.
func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	alive, err := s.touch(context.Background(), sessionID)
	if err != nil || alive {
		return session, true
	}

	s.mu.Lock()
	if s.sessions[sessionID] == session {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	session.Close()
	return nil, false
}

func (s *SessionStore) touch(ctx context.Context, sessionID string) (bool, error) {
	if s.ttl > 0 {
		return s.client.Expire(ctx, s.key(sessionID), s.ttl).Result()
	}
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	return n > 0, err
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
