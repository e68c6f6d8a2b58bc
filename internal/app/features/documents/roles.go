package documents

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/one-zero-eight/guard/internal/app/system/respond"
	"github.com/one-zero-eight/guard/internal/app/system/timeouts"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type roleRequest struct {
	Role string `json:"role"`
}

type roleResponse struct {
	documentView
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// UpdateDefaultRole handles PUT /documents/{slug}/role: changes the role new
// members receive and propagates it to everyone already joined.
func (h *Handler) UpdateDefaultRole(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body roleRequest
	if !decode(w, r, &body) {
		return
	}
	slug := chi.URLParam(r, "slug")
	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	res, err := h.Svc.UpdateDefaultRole(ctx, slug, u.ID, models.Role(body.Role))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if res.Failed > 0 {
		h.Log.Warn("default role change partially applied",
			zap.String("slug", slug),
			zap.Int("updated", res.Updated),
			zap.Int("failed", res.Failed))
	}
	respond.JSON(w, http.StatusOK, roleResponse{
		documentView: viewOf(res.Record),
		Updated:      res.Updated,
		Failed:       res.Failed,
	})
}

// UpdateMemberRole handles PUT /documents/{slug}/members/{userID}/role.
func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	var body roleRequest
	if !decode(w, r, &body) {
		return
	}
	ctx, cancel := timeouts.WithProvider(r.Context())
	defer cancel()

	rec, err := h.Svc.UpdateUserRole(ctx, chi.URLParam(r, "slug"), u.ID, targetID, models.Role(body.Role))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, viewOf(rec))
}
