package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/services"
)

// multipartOverhead leaves room for boundaries and headers around the inline file.
const multipartOverhead = 64 << 10

type FileResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	File    *models.StoredFile `json:"file,omitempty"`
}

type URLUploadRequest struct {
	URL string `json:"url"`
}

const inlineTooLargeMessage = "File is too large. Max 1MB for direct upload. Please use URL upload for larger files."

// UploadFile is the inline path: multipart field "file", at most 1 MiB.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}

	const maxBody = services.InlineUploadLimit + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(maxBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > maxBody {
			writeMessage(w, http.StatusRequestEntityTooLarge, inlineTooLargeMessage)
			return
		}
		writeMessage(w, http.StatusBadRequest, "File is required.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "File is required.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.InlineUploadLimit+1))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to read the uploaded file.")
		return
	}
	if int64(len(data)) > services.InlineUploadLimit {
		writeMessage(w, http.StatusRequestEntityTooLarge, inlineTooLargeMessage)
		return
	}

	ctx, cancel := h.uploadContext(r)
	defer cancel()

	stored, err := h.Storage.UploadFile(ctx, key, services.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, FileResponse{Success: true, Message: "File uploaded successfully.", File: stored})
}

// UploadFromURL re-hosts a remote file; only the account quota bounds its size.
func (h *Handler) UploadFromURL(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKey(w, r)
	if !ok {
		return
	}
	var req URLUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.uploadContext(r)
	defer cancel()

	stored, err := h.Storage.UploadFromURL(ctx, key, req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, FileResponse{Success: true, Message: "File uploaded successfully.", File: stored})
}
