package memory

import (
	"errors"
	"testing"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func testSession(id, code string) *app.Session {
	quiz := domain.Quiz{
		ID:      "quiz-1",
		OwnerID: "host-1",
		Questions: []domain.Question{
			{Text: "q", Options: []string{"a", "b"}, CorrectIndex: 0, TimeLimitSeconds: 10},
		},
	}
	return app.NewSession(id, code, quiz, "host-1", app.DefaultScoreConfig())
}

func TestRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry()

	if err := registry.Add(testSession("s1", "AAAAAA")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := registry.Get("s1"); !ok {
		t.Fatalf("expected session by id")
	}
	if _, ok := registry.GetByCode("AAAAAA"); !ok {
		t.Fatalf("expected session by code")
	}
	if _, ok := registry.GetByCode("BBBBBB"); ok {
		t.Fatalf("unexpected session for unknown code")
	}
}

func TestRegistryRejectsCodeCollision(t *testing.T) {
	registry := NewSessionRegistry()

	if err := registry.Add(testSession("s1", "AAAAAA")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.Add(testSession("s2", "AAAAAA")); !errors.Is(err, domain.ErrJoinCodeTaken) {
		t.Fatalf("expected code taken, got %v", err)
	}

	// After release the code is free again, but the first session stays
	// resolvable by id for review and history.
	registry.ReleaseCode("AAAAAA")
	if err := registry.Add(testSession("s2", "AAAAAA")); err != nil {
		t.Fatalf("add after release: %v", err)
	}
	if _, ok := registry.Get("s1"); !ok {
		t.Fatalf("expected retained session after code release")
	}
}

func TestRegistryEndedSessions(t *testing.T) {
	registry := NewSessionRegistry()
	session := testSession("s1", "AAAAAA")
	if err := registry.Add(session); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := registry.EndedSessions(); len(got) != 0 {
		t.Fatalf("expected no ended sessions, got %d", len(got))
	}
}
