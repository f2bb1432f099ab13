package handlers

import (
	"net/http"

	"github.com/AnshRaj112/ura-storage-backend/pkg/clientip"
)

type LockResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	UnlockCode string `json:"unlock_code,omitempty"`
}

type UnlockRequest struct {
	UserID     string `json:"user_id"`
	UnlockCode string `json:"unlock_code"`
}

// LockAccount locks the caller's account and returns the one-time unlock code.
func (h *Handler) LockAccount(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	code, err := h.Accounts.Lock(ctx, key, clientip.RealClientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LockResponse{Success: true, Message: "Account locked successfully.", UnlockCode: code})
}

// UnlockAccount needs no session: a locked account has none.
func (h *Handler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.Accounts.Unlock(ctx, req.UserID, req.UnlockCode, clientip.RealClientIP(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Account unlocked successfully!")
}
