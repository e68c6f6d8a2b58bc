// internal/app/features/access/routes.go
package access

import "github.com/go-chi/chi/v5"

// Attach registers the membership endpoints on the documents subrouter so
// the slug parameter lines up with the documents feature.
func Attach(r chi.Router, h *Handler) {
	r.Post("/{slug}/joins", h.Join)
	r.Post("/{slug}/bans", h.Ban)
	r.Delete("/{slug}/bans/{userID}", h.Unban)
	r.Post("/{slug}/cleanup", h.Cleanup)
}
