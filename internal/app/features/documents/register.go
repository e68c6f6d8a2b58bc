package documents

import (
	"net/http"
	"time"

	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/system/respond"
	"github.com/one-zero-eight/guard/internal/app/system/timeouts"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.uber.org/zap"
)

type setupRequest struct {
	FileID      string     `json:"file_id"`
	DefaultRole string     `json:"default_role"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
}

// Setup handles POST /documents: registers a file the author has already
// shared with the service account.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body setupRequest
	if !decode(w, r, &body) {
		return
	}
	ctx, cancel := timeouts.WithProvider(r.Context())
	defer cancel()

	res, err := h.Svc.Setup(ctx, grants.SetupRequest{
		AuthorID:    u.ID,
		FileID:      body.FileID,
		DefaultRole: models.Role(body.DefaultRole),
		ExpireAt:    body.ExpireAt,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("document registered",
		zap.String("slug", res.Record.Slug),
		zap.String("file_id", res.Record.FileID))
	respond.JSON(w, http.StatusCreated, registered(res))
}

type provisionRequest struct {
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Email       string     `json:"email,omitempty"`
	DefaultRole string     `json:"default_role"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
}

// Provision handles POST /documents/new: creates a fresh service-owned file
// and registers it. The optional email receives writer access so the author
// can edit from their own account.
func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body provisionRequest
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

	res, err := h.Svc.Provision(ctx, grants.ProvisionRequest{
		AuthorID:    u.ID,
		AuthorEmail: body.Email,
		Kind:        models.FileKind(body.Kind),
		Title:       title,
		DefaultRole: models.Role(body.DefaultRole),
		ExpireAt:    body.ExpireAt,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("document provisioned",
		zap.String("slug", res.Record.Slug),
		zap.String("file_id", res.Record.FileID))
	respond.JSON(w, http.StatusCreated, registered(res))
}

type copyRequest struct {
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	Email       string     `json:"email,omitempty"`
	DefaultRole string     `json:"default_role"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
}

// Copy handles POST /documents/copy: duplicates a readable source file into
// a service-owned copy and registers the copy.
func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body copyRequest
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

	res, err := h.Svc.CopyFrom(ctx, grants.CopyRequest{
		AuthorID:    u.ID,
		AuthorEmail: body.Email,
		SourceID:    body.SourceID,
		Title:       title,
		DefaultRole: models.Role(body.DefaultRole),
		ExpireAt:    body.ExpireAt,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, registered(res))
}

type absorbRequest struct {
	FileID      string     `json:"file_id"`
	Email       string     `json:"email,omitempty"`
	DefaultRole string     `json:"default_role"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
}

type absorbResponse struct {
	registeredView
	PublicLinksRemoved int  `json:"public_links_removed"`
	StrayGrants        int  `json:"stray_grants"`
	CleanupRecommended bool `json:"cleanup_recommended"`
}

// Absorb handles POST /documents/absorb: completes a pending ownership
// transfer to the service account and registers the file.
func (h *Handler) Absorb(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body absorbRequest
	if !decode(w, r, &body) {
		return
	}
	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	res, err := h.Svc.Absorb(ctx, grants.AbsorbRequest{
		AuthorID:    u.ID,
		AuthorEmail: body.Email,
		FileID:      body.FileID,
		DefaultRole: models.Role(body.DefaultRole),
		ExpireAt:    body.ExpireAt,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Log.Info("document absorbed",
		zap.String("slug", res.Record.Slug),
		zap.String("file_id", res.Record.FileID),
		zap.Int("stray_grants", res.StrayGrants))
	respond.JSON(w, http.StatusCreated, absorbResponse{
		registeredView: registeredView{
			documentView: viewOf(res.Record),
			JoinLink:     res.JoinLink,
		},
		PublicLinksRemoved: res.PublicLinksRemoved,
		StrayGrants:        res.StrayGrants,
		CleanupRecommended: res.CleanupRecommended,
	})
}
