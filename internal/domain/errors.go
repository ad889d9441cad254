package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned for an unknown session id or join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrForbidden is returned when a non-host issues a host-only command.
	ErrForbidden = errors.New("not allowed for this user")
	// ErrInvalidState is returned when a command does not fit the current
	// lifecycle phase, e.g. answering before the quiz starts or a stale
	// submission targeting an already closed question.
	ErrInvalidState = errors.New("invalid session state for this action")
	// ErrNoParticipants is returned when starting a session with an empty roster.
	ErrNoParticipants = errors.New("session has no participants")
	// ErrDeadlineExceeded is returned for answers past the question deadline.
	ErrDeadlineExceeded = errors.New("question deadline exceeded")
	// ErrDuplicateAnswer is returned on a second submission for the same
	// question; the first submission wins and is never overwritten.
	ErrDuplicateAnswer = errors.New("answer already submitted")
	// ErrInvalidOption is returned when the selected option index is out of range.
	ErrInvalidOption = errors.New("selected option out of range")
	// ErrJoinCodeTaken signals a join-code collision inside the registry;
	// callers retry with a fresh draw.
	ErrJoinCodeTaken = errors.New("join code already in use")
	// ErrCodeSpaceExhausted is returned when join-code generation keeps
	// colliding past the retry cap. Practically unreachable at sane scale.
	ErrCodeSpaceExhausted = errors.New("join code space exhausted")
)
