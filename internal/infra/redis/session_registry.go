package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Session aggregates still live in a local map so the in-process
//     serialization and broadcast logic keep working unchanged.
//   - Redis owns the join-code namespace: codes are reserved with SETNX,
//     which stays atomic even with several service instances handing out
//     codes against the same deployment.
//   - A liveness marker per session supports ops tooling and could be
//     extended to route cross-instance pub/sub.
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
	byCode   map[string]*app.Session
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
		byCode:   make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) Add(session *app.Session) error {
	ctx := context.Background()
	reserved, err := r.client.SetNX(ctx, r.codeKey(session.JoinCode()), session.ID(), r.ttl).Result()
	if err != nil {
		return err
	}
	if !reserved {
		return domain.ErrJoinCodeTaken
	}

	r.mu.Lock()
	r.sessions[session.ID()] = session
	r.byCode[session.JoinCode()] = session
	r.mu.Unlock()

	// best-effort liveness marker
	_ = r.client.Set(ctx, r.sessionKey(session.ID()), session.JoinCode(), r.ttl).Err()
	return nil
}

func (r *SessionRegistry) Get(sessionID string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

func (r *SessionRegistry) GetByCode(joinCode string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byCode[joinCode]
	return session, ok
}

func (r *SessionRegistry) ReleaseCode(joinCode string) {
	r.mu.Lock()
	session, ok := r.byCode[joinCode]
	delete(r.byCode, joinCode)
	r.mu.Unlock()

	ctx := context.Background()
	_ = r.client.Del(ctx, r.codeKey(joinCode)).Err()
	if ok {
		_ = r.client.Del(ctx, r.sessionKey(session.ID())).Err()
	}
}

func (r *SessionRegistry) EndedSessions() []*app.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ended []*app.Session
	for _, session := range r.sessions {
		if session.Ended() {
			ended = append(ended, session)
		}
	}
	return ended
}

func (r *SessionRegistry) codeKey(joinCode string) string {
	return "session:code:" + joinCode
}

func (r *SessionRegistry) sessionKey(sessionID string) string {
	return "session:live:" + sessionID
}
