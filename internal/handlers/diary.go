package handlers

import (
	"net/http"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

type DiaryRequest struct {
	Text string `json:"text"`
}

type DiaryResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Entry   *models.DiaryEntry `json:"entry,omitempty"`
}

func (h *Handler) CreateDiaryEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}
	var req DiaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	entry, err := h.Storage.SaveDiaryEntry(ctx, key, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DiaryResponse{Success: true, Message: "Diary entry saved.", Entry: entry})
}

func (h *Handler) UpdateDiaryEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}
	var req DiaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	entry, err := h.Storage.UpdateDiaryEntry(ctx, key, chi.URLParam(r, "entryID"), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DiaryResponse{Success: true, Message: "Diary entry updated successfully.", Entry: entry})
}

// DeleteItem handles DELETE /api/items/{kind}/{itemID} for kind diary or files.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.Storage.DeleteItem(ctx, key, chi.URLParam(r, "kind"), chi.URLParam(r, "itemID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Item deleted successfully.")
}
