// Package auth verifies bearer tokens issued by the organizational identity
// provider and makes the verified identity available to handlers through the
// request context. Once a token verifies, its identity is fully trusted.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rakutentech/jwk-go/jwk"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TokenUser is the verified identity injected into request contexts.
type TokenUser struct {
	ID    primitive.ObjectID // identity id at the provider
	Email string             // verified organizational address
}

// Claims is the token payload the identity provider issues. The subject is
// the identity id; email is the verified organizational address.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type ctxKey int

const currentUserKey ctxKey = 0

// CurrentUser returns the verified identity for the request, if any.
func CurrentUser(r *http.Request) (TokenUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(TokenUser)
	return u, ok
}

// WithTestUser injects an identity directly into the request context.
// Handler tests use this to bypass token verification.
func WithTestUser(r *http.Request, u TokenUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

var errUnknownKey = errors.New("token signed with an unknown key")

// Verifier checks bearer tokens against the identity provider's published
// key set. The key set is cached and refetched when a token arrives signed
// by a key we have not seen.
type Verifier struct {
	jwksURL string
	client  *http.Client
	log     *zap.Logger

	mu        sync.RWMutex
	keys      map[string]interface{} // kid -> public key
	fetchedAt time.Time
}

// minRefetchInterval stops a flood of bad tokens from hammering the
// provider's JWKS endpoint.
const minRefetchInterval = time.Minute

// NewVerifier creates a Verifier that loads keys from jwksURL on demand.
func NewVerifier(jwksURL string, logger *zap.Logger) *Verifier {
	return &Verifier{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger,
		keys:    map[string]interface{}{},
	}
}

// NewStaticVerifier creates a Verifier with a fixed key set and no remote
// endpoint. Used in tests.
func NewStaticVerifier(keys map[string]interface{}, logger *zap.Logger) *Verifier {
	return &Verifier{
		log:       logger,
		keys:      keys,
		fetchedAt: time.Now(),
	}
}

// Verify parses and validates a raw bearer token and returns the identity
// it asserts.
func (v *Verifier) Verify(ctx context.Context, raw string) (TokenUser, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyFor(ctx),
		jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Alg(),
			jwt.SigningMethodES256.Alg(),
		}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return TokenUser{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return TokenUser{}, errors.New("invalid token")
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return TokenUser{}, fmt.Errorf("token subject is not an identity id: %w", err)
	}
	return TokenUser{ID: id, Email: claims.Email}, nil
}

func (v *Verifier) keyFor(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)

		v.mu.RLock()
		key, ok := v.keys[kid]
		v.mu.RUnlock()
		if ok {
			return key, nil
		}

		// Unknown kid: the provider may have rotated keys.
		if err := v.refetch(ctx); err != nil {
			return nil, err
		}

		v.mu.RLock()
		key, ok = v.keys[kid]
		v.mu.RUnlock()
		if !ok {
			return nil, errUnknownKey
		}
		return key, nil
	}
}

func (v *Verifier) refetch(ctx context.Context) error {
	if v.jwksURL == "" {
		return errUnknownKey
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if time.Since(v.fetchedAt) < minRefetchInterval {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set jwk.KeySpecSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	// A JWKS endpoint publishes public keys; spec.Key holds the parsed
	// native key (e.g. *rsa.PublicKey).
	keys := make(map[string]interface{}, len(set.Keys))
	for _, spec := range set.Keys {
		if spec.Key == nil {
			v.log.Warn("skipping unusable jwk", zap.String("kid", spec.KeyID))
			continue
		}
		keys[spec.KeyID] = spec.Key
	}

	v.keys = keys
	v.fetchedAt = time.Now()
	v.log.Info("refreshed identity provider key set", zap.Int("keys", len(keys)))
	return nil
}

// RequireUser rejects requests without a valid bearer token and injects the
// verified identity into the context for everything downstream.
func (v *Verifier) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, raw, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := v.Verify(r.Context(), raw)
		if err != nil {
			v.log.Debug("token rejected", zap.Error(err))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
