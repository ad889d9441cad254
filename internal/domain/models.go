package domain

import "time"

// SessionStatus is the lifecycle phase of a quiz session.
// Transitions only ever move forward: Lobby -> Active -> Ended.
type SessionStatus string

const (
	StatusLobby  SessionStatus = "lobby"
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// UserProfile is the identity projection handed to us by the auth layer.
type UserProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
}

// Question models a timed MCQ question. CorrectIndex points into Options.
type Question struct {
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	CorrectIndex     int      `json:"correctIndex"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// Quiz is immutable quiz content owned by a host user.
type Quiz struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// QuestionView is what a participant sees while a question is open.
// The correct index is withheld until the participant has answered.
type QuestionView struct {
	Index   int       `json:"index"`
	Text    string    `json:"text"`
	Options []string  `json:"options"`
	EndsAt  time.Time `json:"endsAt"`
	Total   int       `json:"totalQuestions"`
}

// AnswerOutcome is returned to a participant right after their submission
// is recorded; it both confirms the answer and reveals the correct option.
type AnswerOutcome struct {
	CorrectIndex  int  `json:"correctIndex"`
	Correct       bool `json:"correct"`
	PointsAwarded int  `json:"pointsAwarded"`
}

// ParticipantView is a roster entry in a session snapshot.
type ParticipantView struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	AvatarRef   string    `json:"avatarRef,omitempty"`
	Connected   bool      `json:"connected"`
	Score       int       `json:"score"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// SessionSnapshot is the pull-queryable state of a session, used by
// lobby screens and by clients recovering after a missed push event.
type SessionSnapshot struct {
	ID                   string            `json:"id"`
	QuizID               string            `json:"quizId"`
	QuizTitle            string            `json:"quizTitle"`
	HostUserID           string            `json:"hostUserId"`
	JoinCode             string            `json:"joinCode"`
	Status               SessionStatus     `json:"status"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	TotalQuestions       int               `json:"totalQuestions"`
	Participants         []ParticipantView `json:"participants"`
	CreatedAt            time.Time         `json:"createdAt"`
	EndedAt              time.Time         `json:"endedAt,omitempty"`
}

// LeaderboardEntry is one ranked row, ordered by score descending with
// earlier joiners winning ties.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// ReviewEntry is the post-game breakdown for one question.
// SelectedIndex is nil when the participant never answered.
type ReviewEntry struct {
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correctIndex"`
	SelectedIndex *int     `json:"yourSelectedIndex"`
	PointsAwarded int      `json:"pointsAwarded"`
}

// HistoryEntry summarizes one ended session a user took part in.
type HistoryEntry struct {
	SessionID      string    `json:"sessionId"`
	QuizID         string    `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	EndedAt        time.Time `json:"endedAt"`
}

// Push event names delivered over the broadcast gateway. Events carry at
// most a change signal; clients re-fetch authoritative state over REST.
const (
	EventPlayerJoined      = "player-joined"
	EventPlayerLeft        = "player-left"
	EventQuizStarted       = "quiz-started"
	EventNextQuestion      = "next-question"
	EventQuizEnded         = "quiz-ended"
	EventLeaderboardUpdate = "leaderboard-update"
)
