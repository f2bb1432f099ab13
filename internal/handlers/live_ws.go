package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/middleware"
	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/services"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 90 * time.Second
	livePingPeriod = 30 * time.Second
)

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The session token is the credential; CORS is handled at the HTTP layer.
		return true
	},
}

const sessionExpiredMessage = "Session expired. Please log in again."

// LiveEvent is a server-to-client message on the live stream.
type LiveEvent struct {
	Type    string                  `json:"type"` // "snapshot" or "logout"
	Message string                  `json:"message,omitempty"`
	Account *models.AccountSnapshot `json:"account,omitempty"`
}

// LiveAccount streams the caller's snapshot: once on connect, then after every change.
// Browsers can't set headers on WebSocket requests, so the token may come as ?token=.
func (h *Handler) LiveAccount(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, "Please log in.")
		return
	}

	key, ok, err := h.Sessions.ValidateSession(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusUnauthorized, sessionExpiredMessage)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, unsubscribe, err := h.Changes.Subscribe(ctx, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer unsubscribe()

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reader: only needed for pongs and to notice the client going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	if !h.pushSnapshot(ctx, conn, key, token) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-changes:
			if !open {
				return
			}
			if !h.pushSnapshot(ctx, conn, key, token) {
				return
			}
		case <-ping.C:
			if !h.sessionStillValid(ctx, conn, key, token) {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

// pushSnapshot sends the current snapshot, or a logout event when the account is gone,
// locked or the session has ended. It returns false when the stream should end.
func (h *Handler) pushSnapshot(ctx context.Context, conn *websocket.Conn, key, token string) bool {
	reqCtx, cancel := withTimeout(ctx, h.RequestTimeout, 10*time.Second)
	defer cancel()

	snap, err := h.Accounts.Snapshot(reqCtx, key)
	switch {
	case errors.Is(err, services.ErrNotFound):
		h.sendLogout(conn, "User not found.")
		return false
	case err != nil:
		log.Warn().Err(err).Str("account", key).Msg("live: loading snapshot")
		// Transient; keep the stream and retry on the next change.
		return true
	case snap.Account.Locked:
		h.sendLogout(conn, "Account is locked.")
		return false
	}

	if !h.sessionStillValid(reqCtx, conn, key, token) {
		return false
	}

	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(LiveEvent{Type: "snapshot", Account: snap}); err != nil {
		return false
	}
	return true
}

// sessionStillValid ends the stream once the token no longer maps to key. Lookup
// errors keep the stream open.
func (h *Handler) sessionStillValid(ctx context.Context, conn *websocket.Conn, key, token string) bool {
	current, ok, err := h.Sessions.ValidateSession(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("account", key).Msg("live: validating session")
		return true
	}
	if !ok || current != key {
		h.sendLogout(conn, sessionExpiredMessage)
		return false
	}
	return true
}

func (h *Handler) sendLogout(conn *websocket.Conn, message string) {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	_ = conn.WriteJSON(LiveEvent{Type: "logout", Message: message})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message),
		time.Now().Add(liveWriteWait))
}
