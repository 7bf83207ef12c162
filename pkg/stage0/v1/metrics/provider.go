package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider gives access to the registry holding stage0's verification
// and staleness counters, so callers can export them however they like.
type RegistryProvider interface {
	Registry() *prometheus.Registry
}
