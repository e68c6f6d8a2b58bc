// Package timeouts provides centralized timeout values for handler
// operations, used with context.WithTimeout around store and provider
// calls.
//
// Guidelines:
//   - Ping: health checks
//   - Short: single-record reads and writes
//   - Provider: one call to the external permission provider
//   - Long: operations that fan out over many grants (role propagation,
//     cleanup, absorption)
package timeouts

import (
	"context"
	"time"
)

const (
	ping     = 2 * time.Second
	short    = 5 * time.Second
	provider = 15 * time.Second
	long     = 60 * time.Second
)

// Ping returns the timeout for health checks.
func Ping() time.Duration { return ping }

// Short returns the timeout for single-record store operations.
func Short() time.Duration { return short }

// Provider returns the timeout for one remote provider call plus the
// surrounding record read-modify-write.
func Provider() time.Duration { return provider }

// Long returns the timeout for operations that touch many provider grants.
func Long() time.Duration { return long }

// WithShort derives a context bounded by the single-record budget.
func WithShort(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, short)
}

// WithProvider derives a context bounded by the one-provider-call budget.
func WithProvider(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, provider)
}

// WithLong derives a context bounded by the fan-out budget.
func WithLong(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, long)
}
