package app

import (
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// participant is the engine's mutable per-player state. answers holds at
// most one record per question index; a second submission is rejected,
// never overwritten.
type participant struct {
	profile   domain.UserProfile
	joinedAt  time.Time
	connected bool
	left      bool
	score     int
	answers   map[int]answerRecord
}

type answerRecord struct {
	selectedIndex int
	submittedAt   time.Time
	correct       bool
	points        int
}

// Session is one run of a quiz from lobby to completion. All state is
// guarded by a single mutex, which is the per-session serialization point
// the concurrency contract requires: cross-session commands never contend.
//
// The question deadline is stored as an absolute timestamp and compared
// against the injected clock on each request; there is no background timer
// closing questions server-side.
type Session struct {
	mu sync.Mutex

	id         string
	joinCode   string
	quiz       domain.Quiz
	hostUserID string

	status       domain.SessionStatus
	currentIndex int
	deadline     time.Time

	participants map[string]*participant

	createdAt time.Time
	endedAt   time.Time

	now     func() time.Time
	scoring ScoreConfig
}

func newSession(id, joinCode string, quiz domain.Quiz, hostUserID string, scoring ScoreConfig, now func() time.Time) *Session {
	return &Session{
		id:           id,
		joinCode:     joinCode,
		quiz:         quiz,
		hostUserID:   hostUserID,
		status:       domain.StatusLobby,
		currentIndex: -1,
		participants: make(map[string]*participant),
		createdAt:    now(),
		now:          now,
		scoring:      scoring,
	}
}

// NewSession is exported for infrastructure layers and tests that need to
// seed sessions directly.
func NewSession(id, joinCode string, quiz domain.Quiz, hostUserID string, scoring ScoreConfig) *Session {
	return newSession(id, joinCode, quiz, hostUserID, scoring, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, joinCode string, quiz domain.Quiz, hostUserID string, scoring ScoreConfig, now func() time.Time) *Session {
	return newSession(id, joinCode, quiz, hostUserID, scoring, now)
}

func (s *Session) ID() string       { return s.id }
func (s *Session) JoinCode() string { return s.joinCode }
func (s *Session) QuizID() string   { return s.quiz.ID }

// Ended reports whether the session reached its terminal state.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == domain.StatusEnded
}

// join registers a participant during the lobby phase. Re-joining is
// idempotent for anyone already on the roster, including mid-game, so a
// client that lost its device can come back without resetting its score.
func (s *Session) join(profile domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.participants[profile.UserID]; ok {
		p.profile.DisplayName = profile.DisplayName
		p.profile.AvatarRef = profile.AvatarRef
		p.left = false
		p.connected = true
		return nil
	}
	if s.status != domain.StatusLobby {
		return domain.ErrInvalidState
	}
	s.participants[profile.UserID] = &participant{
		profile:   profile,
		joinedAt:  s.now(),
		connected: true,
		answers:   make(map[int]answerRecord),
	}
	return nil
}

// start opens question 0. Host-only, lobby-only, and refused for an
// empty roster.
func (s *Session) start(byUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byUserID != s.hostUserID {
		return domain.ErrForbidden
	}
	if s.status != domain.StatusLobby {
		return domain.ErrInvalidState
	}
	if s.activeRosterLocked() == 0 {
		return domain.ErrNoParticipants
	}
	s.status = domain.StatusActive
	s.openQuestionLocked(0)
	return nil
}

// advance opens the next question or, past the last one, ends the session.
// The host may force progression before the current deadline elapses;
// answers still targeting the old index then fail as stale.
func (s *Session) advance(byUserID string) (ended bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byUserID != s.hostUserID {
		return false, domain.ErrForbidden
	}
	if s.status != domain.StatusActive {
		return false, domain.ErrInvalidState
	}
	if s.currentIndex+1 < len(s.quiz.Questions) {
		s.openQuestionLocked(s.currentIndex + 1)
		return false, nil
	}
	s.endLocked()
	return true, nil
}

// end is the host-only forced termination from any non-Ended state.
func (s *Session) end(byUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byUserID != s.hostUserID {
		return domain.ErrForbidden
	}
	if s.status == domain.StatusEnded {
		return domain.ErrInvalidState
	}
	s.endLocked()
	return nil
}

// leave handles voluntary exit. The host leaving ends the game for
// everyone; a regular participant is flagged as gone but their answers
// and score are retained for the final leaderboard and review.
func (s *Session) leave(userID string) (wasHost bool, displayName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == s.hostUserID {
		if s.status == domain.StatusEnded {
			return true, "", domain.ErrInvalidState
		}
		s.endLocked()
		return true, "", nil
	}
	p, ok := s.participants[userID]
	if !ok {
		return false, "", domain.ErrParticipantNotFound
	}
	p.left = true
	p.connected = false
	return false, p.profile.DisplayName, nil
}

// setConnected toggles transport-level presence. Disconnection is not
// leaving: the participant keeps their roster slot, score and answers.
func (s *Session) setConnected(userID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[userID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.connected = connected
	return nil
}

// currentQuestion returns the open question view for a participant or the
// host, withholding the correct index.
func (s *Session) currentQuestion(userID string) (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		return domain.QuestionView{}, domain.ErrInvalidState
	}
	if _, ok := s.participants[userID]; !ok && userID != s.hostUserID {
		return domain.QuestionView{}, domain.ErrParticipantNotFound
	}
	q := s.quiz.Questions[s.currentIndex]
	return domain.QuestionView{
		Index:   s.currentIndex,
		Text:    q.Text,
		Options: q.Options,
		EndsAt:  s.deadline,
		Total:   len(s.quiz.Questions),
	}, nil
}

// submit validates and records exactly one answer per (participant,
// question). Checks run in taxonomy order: state, staleness, deadline,
// duplicate, option range.
func (s *Session) submit(userID string, questionIndex, selectedIndex int) (domain.AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive || questionIndex != s.currentIndex {
		return domain.AnswerOutcome{}, domain.ErrInvalidState
	}
	p, ok := s.participants[userID]
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrParticipantNotFound
	}
	now := s.now()
	if now.After(s.deadline) {
		return domain.AnswerOutcome{}, domain.ErrDeadlineExceeded
	}
	if _, dup := p.answers[questionIndex]; dup {
		return domain.AnswerOutcome{}, domain.ErrDuplicateAnswer
	}
	q := s.quiz.Questions[questionIndex]
	if selectedIndex < 0 || selectedIndex >= len(q.Options) {
		return domain.AnswerOutcome{}, domain.ErrInvalidOption
	}

	correct := selectedIndex == q.CorrectIndex
	points := 0
	if correct {
		limit := time.Duration(q.TimeLimitSeconds) * time.Second
		points = s.scoring.Points(s.deadline.Sub(now), limit)
	}
	p.answers[questionIndex] = answerRecord{
		selectedIndex: selectedIndex,
		submittedAt:   now,
		correct:       correct,
		points:        points,
	}
	p.score += points

	return domain.AnswerOutcome{
		CorrectIndex:  q.CorrectIndex,
		Correct:       correct,
		PointsAwarded: points,
	}, nil
}

// snapshot is the pull-recoverable view of the session. Participants who
// left voluntarily are excluded from the roster.
func (s *Session) snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{
		ID:                   s.id,
		QuizID:               s.quiz.ID,
		QuizTitle:            s.quiz.Title,
		HostUserID:           s.hostUserID,
		JoinCode:             s.joinCode,
		Status:               s.status,
		CurrentQuestionIndex: s.currentIndex,
		TotalQuestions:       len(s.quiz.Questions),
		CreatedAt:            s.createdAt,
		EndedAt:              s.endedAt,
	}
	for _, p := range s.participants {
		if p.left {
			continue
		}
		snap.Participants = append(snap.Participants, domain.ParticipantView{
			UserID:      p.profile.UserID,
			DisplayName: p.profile.DisplayName,
			AvatarRef:   p.profile.AvatarRef,
			Connected:   p.connected,
			Score:       p.score,
			JoinedAt:    p.joinedAt,
		})
	}
	sort.Slice(snap.Participants, func(i, j int) bool {
		return snap.Participants[i].JoinedAt.Before(snap.Participants[j].JoinedAt)
	})
	return snap
}

// leaderboard ranks every participant who ever joined, including those
// who left mid-game, by score descending with join time breaking ties.
func (s *Session) leaderboard() []domain.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

// review is the post-game per-question breakdown for one participant.
func (s *Session) review(userID string) ([]domain.ReviewEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusEnded {
		return nil, domain.ErrInvalidState
	}
	p, ok := s.participants[userID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}

	entries := make([]domain.ReviewEntry, 0, len(s.quiz.Questions))
	for i, q := range s.quiz.Questions {
		entry := domain.ReviewEntry{
			Index:        i,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
		if rec, ok := p.answers[i]; ok {
			selected := rec.selectedIndex
			entry.SelectedIndex = &selected
			entry.PointsAwarded = rec.points
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// historyFor summarizes this session for a user, if they took part.
// Only meaningful once the session has ended.
func (s *Session) historyFor(userID string) (domain.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusEnded {
		return domain.HistoryEntry{}, false
	}
	p, ok := s.participants[userID]
	if !ok {
		return domain.HistoryEntry{}, false
	}
	correct := 0
	for _, rec := range p.answers {
		if rec.correct {
			correct++
		}
	}
	return domain.HistoryEntry{
		SessionID:      s.id,
		QuizID:         s.quiz.ID,
		QuizTitle:      s.quiz.Title,
		Score:          p.score,
		CorrectAnswers: correct,
		TotalQuestions: len(s.quiz.Questions),
		EndedAt:        s.endedAt,
	}, true
}

func (s *Session) openQuestionLocked(index int) {
	s.currentIndex = index
	limit := time.Duration(s.quiz.Questions[index].TimeLimitSeconds) * time.Second
	s.deadline = s.now().Add(limit)
}

func (s *Session) endLocked() {
	s.status = domain.StatusEnded
	s.endedAt = s.now()
	s.deadline = time.Time{}
}

func (s *Session) activeRosterLocked() int {
	n := 0
	for _, p := range s.participants {
		if !p.left {
			n++
		}
	}
	return n
}

func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	type ranked struct {
		entry    domain.LeaderboardEntry
		joinedAt time.Time
	}
	rows := make([]ranked, 0, len(s.participants))
	for _, p := range s.participants {
		rows = append(rows, ranked{
			entry: domain.LeaderboardEntry{
				UserID:      p.profile.UserID,
				DisplayName: p.profile.DisplayName,
				Score:       p.score,
			},
			joinedAt: p.joinedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.Score != rows[j].entry.Score {
			return rows[i].entry.Score > rows[j].entry.Score
		}
		if !rows[i].joinedAt.Equal(rows[j].joinedAt) {
			return rows[i].joinedAt.Before(rows[j].joinedAt)
		}
		return rows[i].entry.UserID < rows[j].entry.UserID
	})
	entries := make([]domain.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry
	}
	return entries
}
