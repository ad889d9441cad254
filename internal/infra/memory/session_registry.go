package memory

import (
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionRegistry is the in-process implementation of app.SessionRegistry.
// The registry lock only guards the maps; each session serializes its own
// mutations, so commands against different sessions never contend here
// beyond the map lookup.
//
// Ended sessions stay in the registry for review and history until an
// external retention policy archives them; only their join code is freed.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	byCode   map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*app.Session),
		byCode:   make(map[string]*app.Session),
	}
}

// Add registers the session and reserves its join code in one critical
// section, so two hosts can never race onto the same code.
func (r *SessionRegistry) Add(session *app.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byCode[session.JoinCode()]; taken {
		return domain.ErrJoinCodeTaken
	}
	r.sessions[session.ID()] = session
	r.byCode[session.JoinCode()] = session
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

// ReleaseCode frees a join code for reuse once its session has ended.
func (r *SessionRegistry) ReleaseCode(joinCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byCode, joinCode)
}

// EndedSessions returns every retained session that reached the terminal
// state, for history scans.
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
