package testutil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/one-zero-eight/guard/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context so a
// handler under test can read chi.URLParam values without a router.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithUser attaches an authenticated identity to the request, standing in
// for the bearer-token middleware.
func WithUser(r *http.Request, u auth.TokenUser) *http.Request {
	return auth.WithTestUser(r, u)
}

// NewUser returns a fresh identity with a derived organization email.
func NewUser() auth.TokenUser {
	id := primitive.NewObjectID()
	return auth.TokenUser{
		ID:    id,
		Email: id.Hex() + "@org.example",
	}
}
