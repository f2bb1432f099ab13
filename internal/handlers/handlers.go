package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/AnshRaj112/ura-storage-backend/internal/middleware"
	"github.com/AnshRaj112/ura-storage-backend/internal/models"
	"github.com/AnshRaj112/ura-storage-backend/internal/services"
	"github.com/rs/zerolog/log"
)

// Handler serves the HTTP API. Identity comes only from the request context
// populated by middleware.RequireSession.
type Handler struct {
	Accounts *services.AccountService
	Storage  *services.StorageService
	Sessions middleware.SessionValidator
	Changes  services.ChangeSubscriber

	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

// ResultFromError maps a service error to an HTTP status and the result envelope.
func ResultFromError(err error) (int, models.Result) {
	res := services.Describe(err, "")

	switch services.Kind(err) {
	case services.ErrValidation:
		return http.StatusBadRequest, res
	case services.ErrNotFound:
		return http.StatusNotFound, res
	case services.ErrAccountLocked, services.ErrInvalidUnlockCode:
		return http.StatusForbidden, res
	case services.ErrQuotaExceeded:
		return http.StatusInsufficientStorage, res
	case services.ErrMalformedShareCode:
		return http.StatusUnprocessableEntity, res
	case services.ErrUnauthorized:
		return http.StatusUnauthorized, res
	case services.ErrFetchFailed:
		return http.StatusBadGateway, res
	default:
		return http.StatusServiceUnavailable, res
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("writing response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, res := ResultFromError(err)
	if status == http.StatusServiceUnavailable {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, res)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.Result{Success: status < 400, Message: message})
}

const (
	maxJSONBody = 1 << 20
	// maxShareBody fits share codes for large exports; base64 adds a third to the JSON.
	maxShareBody = 32 << 20
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeJSONLimit(w, r, dst, maxJSONBody)
}

func decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body is too large.")
			return false
		}
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// accountKey reads the caller placed in the context by RequireSession.
func accountKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, ok := middleware.AccountKeyFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Please log in.")
	}
	return key, ok
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return withTimeout(r.Context(), h.RequestTimeout, 10*time.Second)
}

func (h *Handler) uploadContext(r *http.Request) (context.Context, context.CancelFunc) {
	return withTimeout(r.Context(), h.UploadTimeout, 2*time.Minute)
}

func withTimeout(parent context.Context, d, fallback time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = fallback
	}
	return context.WithTimeout(parent, d)
}

// Health is the liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
