// Package metrics exposes Prometheus counters for the grant reconciliation
// traffic. Everything registers on the default registry; the /metrics route
// is mounted in bootstrap.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GrantsCreated counts provider permissions created through joins,
	// provisioning and setup.
	GrantsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_grants_created_total",
		Help: "Provider permissions created.",
	})

	// GrantsRevoked counts provider permissions removed by bans and
	// cleanup passes.
	GrantsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_grants_revoked_total",
		Help: "Provider permissions revoked.",
	})

	// ProviderErrors counts failed provider calls by operation.
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_provider_errors_total",
		Help: "Failed calls to the external permission provider.",
	}, []string{"op"})

	// JoinsRejected counts join attempts refused before any provider
	// call, by reason (banned, not_found).
	JoinsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_joins_rejected_total",
		Help: "Join attempts rejected locally.",
	}, []string{"reason"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
