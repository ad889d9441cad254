package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quiz-session-service/internal/domain"
)

// SessionRegistry abstracts how live sessions are stored (in-memory,
// Redis-backed, etc). Add must reserve the session's join code atomically
// and fail with domain.ErrJoinCodeTaken when another live session holds it.
type SessionRegistry interface {
	Add(s *Session) error
	Get(sessionID string) (*Session, bool)
	GetByCode(joinCode string) (*Session, bool)
	ReleaseCode(joinCode string)
	EndedSessions() []*Session
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Publisher fans push events out to a session's subscribers. Delivery is
// best-effort and must never block the mutating path.
type Publisher interface {
	Publish(sessionID, event string, payload any)
	DropSession(sessionID string)
}

// NopPublisher discards events; useful in tests and batch tooling.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, any) {}
func (NopPublisher) DropSession(string)          {}

const maxJoinCodeAttempts = 10

// Engine implements the session lifecycle, roster, answer processing and
// projection use cases on top of a registry and quiz content repository.
type Engine struct {
	registry SessionRegistry
	quizzes  QuizRepository
	events   Publisher
	codes    *JoinCodeGenerator
	scoring  ScoreConfig
	now      func() time.Time
	log      *logrus.Logger
}

func NewEngine(registry SessionRegistry, quizzes QuizRepository, events Publisher, scoring ScoreConfig, log *logrus.Logger) *Engine {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		registry: registry,
		quizzes:  quizzes,
		events:   events,
		codes:    NewJoinCodeGenerator(6),
		scoring:  scoring,
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the engine clock; deadlines in tests stay deterministic.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithJoinCodeLength overrides the default 6-char join codes.
func (e *Engine) WithJoinCodeLength(length int) *Engine {
	e.codes = NewJoinCodeGenerator(length)
	return e
}

// CreateSession loads the quiz, verifies ownership and registers a new
// lobby under a freshly reserved join code.
func (e *Engine) CreateSession(ctx context.Context, hostUserID, quizID string) (domain.SessionSnapshot, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if quiz.OwnerID != hostUserID {
		return domain.SessionSnapshot{}, domain.ErrForbidden
	}

	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code := e.codes.Generate()
		session := newSession(uuid.NewString(), code, quiz, hostUserID, e.scoring, e.now)
		err := e.registry.Add(session)
		if errors.Is(err, domain.ErrJoinCodeTaken) {
			continue
		}
		if err != nil {
			return domain.SessionSnapshot{}, err
		}
		e.log.WithFields(logrus.Fields{
			"session": session.id,
			"quiz":    quizID,
			"host":    hostUserID,
			"code":    code,
		}).Info("session created")
		return session.snapshot(), nil
	}
	return domain.SessionSnapshot{}, domain.ErrCodeSpaceExhausted
}

// JoinSession attaches a user to the lobby behind a join code. Re-joining
// is idempotent and never resets an existing score.
func (e *Engine) JoinSession(_ context.Context, joinCode string, profile domain.UserProfile) (string, error) {
	session, ok := e.registry.GetByCode(NormalizeJoinCode(joinCode))
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	if err := session.join(profile); err != nil {
		return "", err
	}
	e.events.Publish(session.id, domain.EventPlayerJoined, domain.ParticipantView{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		AvatarRef:   profile.AvatarRef,
	})
	return session.id, nil
}

// StartSession transitions Lobby -> Active and opens question zero.
func (e *Engine) StartSession(_ context.Context, sessionID, byUserID string) error {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := session.start(byUserID); err != nil {
		return err
	}
	e.log.WithField("session", sessionID).Info("quiz started")
	e.events.Publish(sessionID, domain.EventQuizStarted, nil)
	return nil
}

// AdvanceQuestion opens the next question, or ends the session past the
// last one. The host may advance before the current deadline elapses.
func (e *Engine) AdvanceQuestion(_ context.Context, sessionID, byUserID string) error {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	ended, err := session.advance(byUserID)
	if err != nil {
		return err
	}
	if ended {
		e.finishSession(session)
		return nil
	}
	e.events.Publish(sessionID, domain.EventNextQuestion, nil)
	return nil
}

// EndSessionEarly is the host-only forced termination.
func (e *Engine) EndSessionEarly(_ context.Context, sessionID, byUserID string) error {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := session.end(byUserID); err != nil {
		return err
	}
	e.finishSession(session)
	return nil
}

// LeaveSession is a voluntary exit. When the host leaves the session ends
// for everyone; there is no host handoff.
func (e *Engine) LeaveSession(_ context.Context, sessionID, userID string) error {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	wasHost, displayName, err := session.leave(userID)
	if err != nil {
		return err
	}
	if wasHost {
		e.finishSession(session)
		return nil
	}
	e.events.Publish(sessionID, domain.EventPlayerLeft, map[string]string{"displayName": displayName})
	return nil
}

// MarkDisconnected records a transport-level close without touching the
// participant's score or answers.
func (e *Engine) MarkDisconnected(_ context.Context, sessionID, userID string) error {
	return e.setConnected(sessionID, userID, false)
}

// MarkReconnected records a transport-level reopen.
func (e *Engine) MarkReconnected(_ context.Context, sessionID, userID string) error {
	return e.setConnected(sessionID, userID, true)
}

func (e *Engine) setConnected(sessionID, userID string, connected bool) error {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.setConnected(userID, connected)
}

// GetSession returns the pull-recoverable snapshot of a session.
func (e *Engine) GetSession(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// GetCurrentQuestion returns the open question for a participant, with
// the absolute deadline so clients can drive their own countdowns.
func (e *Engine) GetCurrentQuestion(_ context.Context, sessionID, userID string) (domain.QuestionView, error) {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.QuestionView{}, domain.ErrSessionNotFound
	}
	return session.currentQuestion(userID)
}

// SubmitAnswer records exactly one answer per (participant, question) and
// reveals the correct option in the response.
func (e *Engine) SubmitAnswer(_ context.Context, sessionID, userID string, questionIndex, selectedIndex int) (domain.AnswerOutcome, error) {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrSessionNotFound
	}
	outcome, err := session.submit(userID, questionIndex, selectedIndex)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	e.log.WithFields(logrus.Fields{
		"session":  sessionID,
		"user":     userID,
		"question": questionIndex,
		"correct":  outcome.Correct,
		"points":   outcome.PointsAwarded,
	}).Debug("answer recorded")
	e.events.Publish(sessionID, domain.EventLeaderboardUpdate, nil)
	return outcome, nil
}

// GetLeaderboard computes the ranked standings fresh from the roster.
func (e *Engine) GetLeaderboard(_ context.Context, sessionID string) ([]domain.LeaderboardEntry, error) {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.leaderboard(), nil
}

// GetReview returns the post-game breakdown; only available once Ended.
func (e *Engine) GetReview(_ context.Context, sessionID, userID string) ([]domain.ReviewEntry, error) {
	session, ok := e.registry.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.review(userID)
}

// GetHistory scans ended sessions for ones the user took part in, most
// recent first.
func (e *Engine) GetHistory(_ context.Context, userID string) []domain.HistoryEntry {
	var entries []domain.HistoryEntry
	for _, session := range e.registry.EndedSessions() {
		if entry, ok := session.historyFor(userID); ok {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EndedAt.After(entries[j].EndedAt)
	})
	return entries
}

// finishSession runs the common tail of every path into the Ended state:
// the join code becomes recyclable, subscribers get the terminal event and
// the broadcast channel is torn down.
func (e *Engine) finishSession(session *Session) {
	e.registry.ReleaseCode(session.joinCode)
	e.log.WithField("session", session.id).Info("quiz ended")
	e.events.Publish(session.id, domain.EventQuizEnded, nil)
	e.events.DropSession(session.id)
}
