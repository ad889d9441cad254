package http

import (
	"errors"
	"net/http"

	"quiz-session-service/internal/domain"
)

// Identity resolves the verified user behind a request. Authentication
// itself lives in the auth service; by the time a request reaches this
// engine, the gateway has already validated the token and stamped the
// identity headers.
type Identity interface {
	CurrentUser(r *http.Request) (domain.UserProfile, error)
}

var errNoIdentity = errors.New("missing identity headers")

// HeaderIdentity trusts the X-User-* headers set by the edge gateway.
type HeaderIdentity struct{}

func (HeaderIdentity) CurrentUser(r *http.Request) (domain.UserProfile, error) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		return domain.UserProfile{}, errNoIdentity
	}
	displayName := r.Header.Get("X-User-Name")
	if displayName == "" {
		displayName = userID
	}
	return domain.UserProfile{
		UserID:      userID,
		DisplayName: displayName,
		AvatarRef:   r.Header.Get("X-Avatar"),
	}, nil
}
