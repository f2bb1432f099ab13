package handlers

import (
	"net/http"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/services"
)

type ExportRequest struct {
	DiaryIDs []string `json:"diary_ids"`
	FileIDs  []string `json:"file_ids"`
}

type ExportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ShareCodeRequest struct {
	Code string `json:"code"`
}

type PreviewResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Payload *models.SharePayload `json:"payload,omitempty"`
}

type ImportResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Report  *models.ImportReport `json:"report,omitempty"`
}

func (h *Handler) ExportShareCode(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}
	var req ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	code, err := h.Storage.ExportShareCode(ctx, key, req.DiaryIDs, req.FileIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Success: true, Message: "Share code generated.", Code: code})
}

// PreviewShareCode decodes a code without importing anything.
func (h *Handler) PreviewShareCode(w http.ResponseWriter, r *http.Request) {
	if _, ok := accountKey(w, r); !ok {
		return
	}
	var req ShareCodeRequest
	if !decodeJSONLimit(w, r, &req, maxShareBody) {
		return
	}

	payload, err := services.DecodeShareCode(req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Success: true, Payload: payload})
}

func (h *Handler) ImportShareCode(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}
	var req ShareCodeRequest
	if !decodeJSONLimit(w, r, &req, maxShareBody) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	report, err := h.Storage.ImportShareCode(ctx, key, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Items imported successfully."
	if len(report.Failures) > 0 {
		message = "Some items could not be imported."
	}
	writeJSON(w, http.StatusOK, ImportResponse{Success: true, Message: message, Report: report})
}
