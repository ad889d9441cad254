package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// WSHandler upgrades connections and subscribes them to a session's push
// channel. The socket is push-only: every command and query goes through
// REST, the socket just wakes clients up when state changed.
type WSHandler struct {
	engine   *app.Engine
	hub      *Hub
	identity Identity
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, hub *Hub, identity Identity, log *logrus.Logger) *WSHandler {
	if identity == nil {
		identity = HeaderIdentity{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		engine:   engine,
		hub:      hub,
		identity: identity,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS attaches a client to a session's broadcast channel. Presence is
// transport-driven: connecting marks the participant reconnected, a closed
// socket marks them disconnected. Neither touches score or answers.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	if _, err := h.engine.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}

	client := h.hub.Subscribe(sessionID, conn)
	// The host is not on the roster; presence marks apply to players only.
	if err := h.engine.MarkReconnected(r.Context(), sessionID, user.UserID); err != nil &&
		err != domain.ErrParticipantNotFound {
		h.log.WithError(err).WithField("session", sessionID).Warn("mark reconnected failed")
	}

	defer func() {
		h.hub.Unsubscribe(sessionID, client)
		_ = h.engine.MarkDisconnected(r.Context(), sessionID, user.UserID)
		_ = conn.Close()
	}()

	// Drain the connection; inbound frames only matter for detecting the
	// close and keeping control-frame processing alive.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
