package obs

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
)

var (
	AuditAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_appended_total",
		Help: "Audit entries appended to the ledger.",
	})

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Audit ledger writes that failed and were swallowed.",
	})

	AuditPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_pruned_total",
		Help: "Audit entries removed by retention or cap pruning.",
	})

	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)

// Registry returns the private registry holding the application metrics.
// There is no scrape endpoint; metrics are flushed to a textfile instead.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(AuditAppended, AuditWriteFailures, AuditPruned, Logins)
	})
	return registry
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry())
}
