// Package access exposes the membership endpoints: joining a document,
// banning and unbanning users, and reconciling stray provider grants.
package access

import (
	"encoding/json"
	"net/http"

	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/system/auth"
	"github.com/one-zero-eight/guard/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler serves the membership endpoints.
type Handler struct {
	Svc *grants.Service
	Log *zap.Logger
}

// NewHandler constructs an access Handler.
func NewHandler(svc *grants.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond.Fail(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (auth.TokenUser, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return auth.TokenUser{}, false
	}
	return u, true
}
