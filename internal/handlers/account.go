package handlers

import (
	"net/http"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
)

type AccountResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Account *models.AccountSnapshot `json:"account,omitempty"`
}

// GetAccount returns the caller's snapshot: profile, quota, diary and files.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	snap, err := h.Accounts.Snapshot(ctx, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{Success: true, Account: snap})
}
