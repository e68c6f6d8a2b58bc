// Package documents exposes the document registration and management API.
// Every endpoint requires a verified bearer token; document-scoped
// operations are further restricted to the registering author inside the
// grants service.
package documents

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/system/auth"
	"github.com/one-zero-eight/guard/internal/app/system/respond"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the document management endpoints.
type Handler struct {
	Svc      *grants.Service
	Log      *zap.Logger
	sanitize *bluemonday.Policy
}

// NewHandler constructs a documents Handler.
func NewHandler(svc *grants.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:      svc,
		Log:      logger,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// cleanTitle strips markup and surrounding whitespace from user-supplied
// titles before they reach the provider.
func (h *Handler) cleanTitle(s string) string {
	return strings.TrimSpace(h.sanitize.Sanitize(s))
}

// decode parses a JSON request body into dst.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond.Fail(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	return true
}

// requireUser pulls the verified identity off the request.
func requireUser(w http.ResponseWriter, r *http.Request) (auth.TokenUser, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return auth.TokenUser{}, false
	}
	return u, true
}

// documentView is the API shape of a registration. Grant ids stay internal.
type documentView struct {
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	FileID      string      `json:"file_id"`
	FileKind    string      `json:"file_kind"`
	DefaultRole string      `json:"default_role"`
	ExpireAt    *time.Time  `json:"expire_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Joins       []joinView  `json:"joins"`
	Bans        []banView   `json:"bans"`
}

type joinView struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	OrgEmail string    `json:"org_email,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type banView struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email,omitempty"`
	OrgEmail string    `json:"org_email,omitempty"`
	BannedAt time.Time `json:"banned_at"`
}

func viewOf(rec models.DocumentRecord) documentView {
	v := documentView{
		Slug:        rec.Slug,
		Title:       rec.Title,
		FileID:      rec.FileID,
		FileKind:    string(rec.FileKind),
		DefaultRole: string(rec.DefaultRole),
		ExpireAt:    rec.ExpireAt,
		CreatedAt:   rec.CreatedAt,
		Joins:       []joinView{},
		Bans:        []banView{},
	}
	for _, j := range rec.Joins {
		v.Joins = append(v.Joins, joinView{
			UserID:   j.UserID.Hex(),
			Email:    j.Email,
			OrgEmail: j.OrgEmail,
			Role:     string(j.Role),
			JoinedAt: j.JoinedAt,
		})
	}
	for _, b := range rec.Bans {
		v.Bans = append(v.Bans, banView{
			UserID:   b.UserID.Hex(),
			Email:    b.Email,
			OrgEmail: b.OrgEmail,
			BannedAt: b.BannedAt,
		})
	}
	return v
}

// registeredView adds the join link handed back after a registration.
type registeredView struct {
	documentView
	JoinLink string `json:"join_link"`
}

func registered(res grants.SetupResult) registeredView {
	return registeredView{documentView: viewOf(res.Record), JoinLink: res.JoinLink}
}
