package handlers

import (
	"net/http"

	"github.com/AnshRaj112/ura-storage-backend/internal/middleware"
)

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Created bool   `json:"created"`
}

// Login signs into an existing account.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.Accounts.Login(ctx, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Login successful",
		Token:   res.Token,
		UserID:  res.DisplayID,
	})
}

// LoginOrCreate creates the account on first use of an identifier.
func (h *Handler) LoginOrCreate(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.Accounts.LoginOrCreate(ctx, req.UserID, req.Username, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, message := http.StatusOK, "Login successful"
	if res.Created {
		status, message = http.StatusCreated, "Account created"
	}
	writeJSON(w, status, LoginResponse{
		Success: true,
		Message: message,
		Token:   res.Token,
		UserID:  res.DisplayID,
		Created: res.Created,
	})
}

// Logout drops the caller's session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.Accounts.Logout(ctx, key, middleware.BearerToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
