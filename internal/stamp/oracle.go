package stamp

import (
	"github.com/gxo-labs/stage0/internal/logger"
	"github.com/gxo-labs/stage0/internal/metrics"
	stage0log "github.com/gxo-labs/stage0/pkg/stage0/v1/log"
)

// Oracle wraps IsOutOfDate and RecordCurrent with logging and metrics. The
// zero value is usable.
type Oracle struct {
	Log     stage0log.Logger
	Metrics *metrics.PrometheusRegistryProvider
}

// NewOracle returns an Oracle logging to log (nil discards) and counting into m
// (nil disables counting).
func NewOracle(log stage0log.Logger, m *metrics.PrometheusRegistryProvider) *Oracle {
	return &Oracle{Log: logger.OrDiscard(log).With("component", "stamp"), Metrics: m}
}

// IsOutOfDate is the package-level IsOutOfDate plus a debug line and a counter.
func (o *Oracle) IsOutOfDate(path string, key Key) (bool, error) {
	log := logger.OrDiscard(o.Log)
	stale, err := IsOutOfDate(path, key)
	switch {
	case err != nil:
		o.count(metrics.ResultError)
		log.Errorf("Failed to check stamp %s: %v", path, err)
		return false, err
	case stale:
		o.count(metrics.ResultStale)
		log.Debugf("Stamp %s is out of date for %s", path, key)
	default:
		o.count(metrics.ResultFresh)
		log.Debugf("Stamp %s is current for %s", path, key)
	}
	return stale, nil
}

// RecordCurrent is the package-level RecordCurrent plus logging.
func (o *Oracle) RecordCurrent(path string, key Key) error {
	log := logger.OrDiscard(o.Log)
	if err := RecordCurrent(path, key); err != nil {
		log.Errorf("Failed to record stamp %s: %v", path, err)
		return err
	}
	log.Debugf("Recorded stamp %s as %s", path, key)
	return nil
}

func (o *Oracle) count(result string) {
	if o.Metrics != nil {
		o.Metrics.StampChecks.WithLabelValues(result).Inc()
	}
}
