package routes

import (
	"net/http"

	"github.com/AnshRaj112/ura-storage-backend/internal/handlers"
	"github.com/AnshRaj112/ura-storage-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r chi.Router, h *handlers.Handler) {
	r.Get("/health", handlers.Health)

	// Public: the identifier or the unlock code is the credential
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/login-or-create", h.LoginOrCreate)
	r.Post("/api/safety/unlock", h.UnlockAccount)

	// Live snapshot stream authenticates itself (token may be a query parameter)
	r.Get("/ws/account", h.LiveAccount)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.Sessions))

		r.Post("/api/auth/logout", h.Logout)
		r.Get("/api/account", h.GetAccount)

		r.Post("/api/diary", h.CreateDiaryEntry)
		r.Put("/api/diary/{entryID}", h.UpdateDiaryEntry)

		r.Post("/api/files", h.UploadFile)
		r.Post("/api/files/url", h.UploadFromURL)

		r.Delete("/api/items/{kind}/{itemID}", h.DeleteItem)

		r.Post("/api/share/export", h.ExportShareCode)
		r.Post("/api/share/preview", h.PreviewShareCode)
		r.Post("/api/share/import", h.ImportShareCode)

		r.Post("/api/safety/lock", h.LockAccount)
	})
}

// Walk lists the registered routes, for startup logging.
func Walk(r chi.Routes, fn func(method, route string)) error {
	return chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		fn(method, route)
		return nil
	})
}
