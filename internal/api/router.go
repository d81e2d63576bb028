package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/noteservice"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// AuthEnabled turns on Bearer token checks for every route.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events. It accepts the token as
	// a query parameter as well.
	Events http.Handler
	// VaultRoot is the vault directory; attachments live in its
	// attachments/ folder.
	VaultRoot string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *noteservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(cfg.VaultRoot)

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", h.ListNotes)
			r.Post("/", h.CreateNote)
			r.Get("/*", h.GetNote)
			r.Put("/*", h.UpdateNote)
			r.Delete("/*", h.DeleteNote)
		})

		r.Get("/search", h.Search)
		r.Get("/headlines", h.Headlines)
		r.Get("/graph", h.Graph)
		r.Get("/backlinks/*", h.Backlinks)

		r.Post("/attachments", ah.Upload)
		r.Get("/attachments/{filename}", ah.ServeFile)
	})

	if cfg.Events != nil {
		r.With(StreamAuthMiddleware(cfg.AuthEnabled, cfg.Token)).Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
