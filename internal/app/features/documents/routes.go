// internal/app/features/documents/routes.go
package documents

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter that serves the document management endpoints,
// mounted under /documents. Authentication is applied by the caller.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Setup)
	r.Post("/new", h.Provision)
	r.Post("/copy", h.Copy)
	r.Post("/absorb", h.Absorb)
	r.Get("/{slug}", h.Get)
	r.Delete("/{slug}", h.Delete)
	r.Put("/{slug}/title", h.UpdateTitle)
	r.Put("/{slug}/role", h.UpdateDefaultRole)
	r.Put("/{slug}/members/{userID}/role", h.UpdateMemberRole)
	return r
}
