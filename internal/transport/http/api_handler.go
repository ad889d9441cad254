package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// APIHandler exposes the session engine's command and query surface over
// REST. Push events only signal change; these endpoints are the source of
// truth clients re-fetch from.
type APIHandler struct {
	engine   *app.Engine
	identity Identity
	log      *logrus.Logger
}

func NewAPIHandler(engine *app.Engine, identity Identity, log *logrus.Logger) *APIHandler {
	if identity == nil {
		identity = HeaderIdentity{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &APIHandler{engine: engine, identity: identity, log: log}
}

// Register wires all session routes onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("POST /sessions/join", h.joinSession)
	mux.HandleFunc("GET /sessions/{id}", h.getSession)
	mux.HandleFunc("POST /sessions/{id}/start", h.startSession)
	mux.HandleFunc("POST /sessions/{id}/advance", h.advanceQuestion)
	mux.HandleFunc("POST /sessions/{id}/end", h.endSession)
	mux.HandleFunc("POST /sessions/{id}/leave", h.leaveSession)
	mux.HandleFunc("GET /sessions/{id}/question", h.currentQuestion)
	mux.HandleFunc("POST /sessions/{id}/answer", h.submitAnswer)
	mux.HandleFunc("GET /sessions/{id}/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /sessions/{id}/review", h.review)
	mux.HandleFunc("GET /history", h.history)
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	JoinCode  string `json:"joinCode"`
}

func (h *APIHandler) createSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.QuizID == "" {
		h.writeError(w, "invalid-argument", "quizId is required", http.StatusBadRequest)
		return
	}
	snap, err := h.engine.CreateSession(r.Context(), user.UserID, req.QuizID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: snap.ID, JoinCode: snap.JoinCode})
}

type joinSessionRequest struct {
	JoinCode string `json:"joinCode"`
}

func (h *APIHandler) joinSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req joinSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sessionID, err := h.engine.JoinSession(r.Context(), req.JoinCode, user)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
}

func (h *APIHandler) getSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	snap, err := h.engine.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *APIHandler) startSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.engine.StartSession(r.Context(), r.PathValue("id"), user.UserID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

func (h *APIHandler) advanceQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.engine.AdvanceQuestion(r.Context(), r.PathValue("id"), user.UserID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"advanced": true})
}

func (h *APIHandler) endSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.engine.EndSessionEarly(r.Context(), r.PathValue("id"), user.UserID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

func (h *APIHandler) leaveSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.engine.LeaveSession(r.Context(), r.PathValue("id"), user.UserID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"left": true})
}

func (h *APIHandler) currentQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.engine.GetCurrentQuestion(r.Context(), r.PathValue("id"), user.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"question": view})
}

type submitAnswerRequest struct {
	QuestionIndex int `json:"questionIndex"`
	SelectedIndex int `json:"selectedIndex"`
}

func (h *APIHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	outcome, err := h.engine.SubmitAnswer(r.Context(), r.PathValue("id"), user.UserID, req.QuestionIndex, req.SelectedIndex)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	entries, err := h.engine.GetLeaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func (h *APIHandler) review(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	entries, err := h.engine.GetReview(r.Context(), r.PathValue("id"), user.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"review": entries})
}

func (h *APIHandler) history(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	entries := h.engine.GetHistory(r.Context(), user.UserID)
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *APIHandler) requireUser(w http.ResponseWriter, r *http.Request) (domain.UserProfile, bool) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		h.writeError(w, "unauthenticated", "identity headers missing", http.StatusUnauthorized)
		return domain.UserProfile{}, false
	}
	return user, true
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, "invalid-argument", "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses
// with a stable kind the client can branch on.
func (h *APIHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		h.writeError(w, "not-found", err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, "forbidden", err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrNoParticipants):
		h.writeError(w, "invalid-state", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrDeadlineExceeded):
		h.writeError(w, "deadline-exceeded", err.Error(), http.StatusGone)
	case errors.Is(err, domain.ErrDuplicateAnswer):
		h.writeError(w, "duplicate", err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidOption):
		h.writeError(w, "invalid-argument", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		h.writeError(w, "exhausted", err.Error(), http.StatusServiceUnavailable)
	default:
		h.log.WithError(err).Error("unhandled engine error")
		h.writeError(w, "internal", "internal error", http.StatusInternalServerError)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, kind, message string, status int) {
	h.writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.WithError(err).Warn("response encode failed")
	}
}
