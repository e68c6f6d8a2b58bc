package documents

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/one-zero-eight/guard/internal/app/system/respond"
	"github.com/one-zero-eight/guard/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// List handles GET /documents: every registration owned by the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	recs, err := h.Svc.ListByAuthor(ctx, u.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	views := []documentView{}
	for _, rec := range recs {
		views = append(views, viewOf(rec))
	}
	respond.JSON(w, http.StatusOK, views)
}

// Get handles GET /documents/{slug}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	rec, err := h.Svc.Get(ctx, chi.URLParam(r, "slug"), u.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, viewOf(rec))
}

// Delete handles DELETE /documents/{slug}: unregisters the document. The
// provider-side file is left in place.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	ctx, cancel := timeouts.WithProvider(r.Context())
	defer cancel()

	if err := h.Svc.Delete(ctx, slug, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("document deleted", zap.String("slug", slug))
	w.WriteHeader(http.StatusNoContent)
}

type titleRequest struct {
	Title string `json:"title"`
}

// UpdateTitle handles PUT /documents/{slug}/title.
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body titleRequest
	if !decode(w, r, &body) {
		return
	}
	title := h.cleanTitle(body.Title)
	if title == "" {
		respond.Fail(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	ctx, cancel := timeouts.WithProvider(r.Context())
	defer cancel()

	rec, err := h.Svc.RenameTitle(ctx, chi.URLParam(r, "slug"), u.ID, title)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, viewOf(rec))
}

// ServiceAccountEmail handles GET /service-account-email. Authors share
// their file with this address before calling setup.
func (h *Handler) ServiceAccountEmail(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"email": h.Svc.ServiceAccountEmail(),
	})
}
