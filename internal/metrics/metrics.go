// Package metrics exposes Prometheus counters for the bot. Registration is
// explicit; Serve starts the optional /metrics listener when configured.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpdatesTotal counts handled Telegram updates by handler and status.
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total handled Telegram updates",
		},
		[]string{"handler", "status"},
	)

	// LedgerOpsTotal counts ledger operations by action and outcome.
	LedgerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total ledger operations",
		},
		[]string{"action", "outcome"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(UpdatesTotal)
	prometheus.MustRegister(LedgerOpsTotal)
}

// Serve exposes /metrics on addr. It blocks until the server stops.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
