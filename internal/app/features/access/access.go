package access

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/system/respond"
	"github.com/one-zero-eight/guard/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type joinRequest struct {
	Email string `json:"email"`
}

type joinResponse struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	FileID   string    `json:"file_id"`
	Role     string    `json:"role"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
	Created  bool      `json:"created"`
}

// Join handles POST /documents/{slug}/joins. The body carries the provider
// contact the grant should go to; the caller's identity comes from the
// token.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body joinRequest
	if !decode(w, r, &body) {
		return
	}
	slug := chi.URLParam(r, "slug")
	ctx, cancel := timeouts.WithProvider(r.Context())
	defer cancel()

	res, err := h.Svc.Join(ctx, slug, grants.JoinRequest{
		UserID:   u.ID,
		Email:    body.Email,
		OrgEmail: u.Email,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		h.Log.Info("user joined document",
			zap.String("slug", slug),
			zap.String("user_id", u.ID.Hex()),
			zap.String("role", string(res.Join.Role)))
	}
	respond.JSON(w, status, joinResponse{
		Slug:     res.Record.Slug,
		Title:    res.Record.Title,
		FileID:   res.Record.FileID,
		Role:     string(res.Join.Role),
		Email:    res.Join.Email,
		JoinedAt: res.Join.JoinedAt,
		Created:  res.Created,
	})
}

type banRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	OrgEmail string `json:"org_email,omitempty"`
}

// Ban handles POST /documents/{slug}/bans: removes the user's membership,
// revokes their grant and blocks rejoining. Author only.
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body banRequest
	if !decode(w, r, &body) {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(body.UserID)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	slug := chi.URLParam(r, "slug")
	ctx, cancel := timeouts.WithProvider(r.Context())
	defer cancel()

	if _, err := h.Svc.Ban(ctx, slug, u.ID, targetID, body.Email, body.OrgEmail); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("user banned",
		zap.String("slug", slug),
		zap.String("user_id", targetID.Hex()))
	w.WriteHeader(http.StatusNoContent)
}

// Unban handles DELETE /documents/{slug}/bans/{userID}. Lifting a ban does
// not restore access; the user joins again if they want back in.
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if _, err := h.Svc.Unban(ctx, chi.URLParam(r, "slug"), u.ID, targetID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cleanupResponse struct {
	Revoked int `json:"revoked"`
}

// Cleanup handles POST /documents/{slug}/cleanup: revokes every provider
// grant the registration does not account for. Author only.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	revoked, err := h.Svc.Cleanup(ctx, slug, u.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("stray grants revoked",
		zap.String("slug", slug),
		zap.Int("revoked", revoked))
	respond.JSON(w, http.StatusOK, cleanupResponse{Revoked: revoked})
}
