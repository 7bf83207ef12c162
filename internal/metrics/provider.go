package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	stage0metrics "github.com/gxo-labs/stage0/pkg/stage0/v1/metrics"
)

const namespace = "stage0"

// Result label values shared by the counters below.
const (
	ResultMatch    = "match"
	ResultMismatch = "mismatch"
	ResultError    = "error"
	ResultFresh    = "fresh"
	ResultStale    = "stale"
)

// PrometheusRegistryProvider owns a private Prometheus registry and the
// counters stage0 components report into.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry

	// Verifications counts checksum verifications by result.
	Verifications *prometheus.CounterVec
	// StampChecks counts staleness decisions by result.
	StampChecks *prometheus.CounterVec
	// OverridesApplied counts effective key assignments made while building
	// a configuration document, by origin ("composite", "flag" or "set").
	OverridesApplied *prometheus.CounterVec
}

// NewPrometheusRegistryProvider creates the registry and registers every
// stage0 collector on it.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	p := &PrometheusRegistryProvider{
		registry: prometheus.NewRegistry(),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checksum_verifications_total",
			Help:      "Number of artifact checksum verifications, by result.",
		}, []string{"result"}),
		StampChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stamp_checks_total",
			Help:      "Number of stamp staleness checks, by result.",
		}, []string{"result"}),
		OverridesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_overrides_applied_total",
			Help:      "Number of configuration key assignments applied, by origin.",
		}, []string{"origin"}),
	}
	p.registry.MustRegister(p.Verifications, p.StampChecks, p.OverridesApplied)
	return p
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}

// WriteTextfile writes the current metric values in the text exposition
// format, suitable for a node_exporter textfile collector.
func (p *PrometheusRegistryProvider) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

var _ stage0metrics.RegistryProvider = (*PrometheusRegistryProvider)(nil)
