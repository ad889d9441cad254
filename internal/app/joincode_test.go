package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestGenerateDrawsFromAlphabet(t *testing.T) {
	gen := app.NewJoinCodeGenerator(6)
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	for i := 0; i < 100; i++ {
		code := gen.Generate()
		if len(code) != 6 {
			t.Fatalf("expected 6 chars, got %q", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
	}
}

func TestNormalizeJoinCode(t *testing.T) {
	if got := app.NormalizeJoinCode("  ab3x9k "); got != "AB3X9K" {
		t.Fatalf("expected AB3X9K, got %q", got)
	}
}

// collidingRegistry refuses every code reservation, simulating a fully
// contended namespace.
type collidingRegistry struct{}

func (collidingRegistry) Add(*app.Session) error                { return domain.ErrJoinCodeTaken }
func (collidingRegistry) Get(string) (*app.Session, bool)       { return nil, false }
func (collidingRegistry) GetByCode(string) (*app.Session, bool) { return nil, false }
func (collidingRegistry) ReleaseCode(string)                    {}
func (collidingRegistry) EndedSessions() []*app.Session         { return nil }

func TestCreateSessionExhaustsCodeSpace(t *testing.T) {
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": twoQuestionQuiz(),
	}), time.Minute)
	engine := app.NewEngine(collidingRegistry{}, quizzes, nil, app.DefaultScoreConfig(), nil)

	_, err := engine.CreateSession(context.Background(), "host-1", "quiz-1")
	if !errors.Is(err, domain.ErrCodeSpaceExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
}
