package config

import (
	"github.com/gxo-labs/stage0/internal/logger"
	"github.com/gxo-labs/stage0/internal/metrics"
	stage0log "github.com/gxo-labs/stage0/pkg/stage0/v1/log"
)

// Store ties an option table to logging and metrics for the configure and
// lookup paths of the CLI.
type Store struct {
	Options *Options
	Log     stage0log.Logger
	Metrics *metrics.PrometheusRegistryProvider
}

// NewStore returns a Store over opts. A nil log discards; nil m disables
// counting.
func NewStore(opts *Options, log stage0log.Logger, m *metrics.PrometheusRegistryProvider) *Store {
	return &Store{Options: opts, Log: logger.OrDiscard(log).With("component", "config"), Metrics: m}
}

// Generate applies ov to the baseline and validates the result.
func (s *Store) Generate(ov Overrides) (*Document, error) {
	log := logger.OrDiscard(s.Log)
	doc, err := applyOverrides(s.Options.Baseline(), s.Options, ov, func(origin string, k Key, v Value) {
		log.Debugf("Set %s = %s (%s)", k, v, origin)
		if s.Metrics != nil {
			s.Metrics.OverridesApplied.WithLabelValues(origin).Inc()
		}
	})
	if err != nil {
		log.Errorf("Invalid override: %v", err)
		return nil, err
	}
	if err := Validate(doc); err != nil {
		log.Errorf("Generated configuration is invalid: %v", err)
		return nil, err
	}
	log.Infof("Generated configuration with %d keys in %d sections", doc.Len(), len(doc.Sections()))
	return doc, nil
}

// Write persists doc to path.
func (s *Store) Write(path string, doc *Document) error {
	log := logger.OrDiscard(s.Log)
	if err := WriteFile(path, doc); err != nil {
		log.Errorf("Failed to write configuration: %v", err)
		return err
	}
	log.Infof("Wrote configuration to %s", path)
	return nil
}

// Load reads and validates the document at path. A missing file yields the
// baseline.
func (s *Store) Load(path string) (*Document, error) {
	log := logger.OrDiscard(s.Log)
	doc, err := LoadFileOrBaseline(path, s.Options)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		return nil, err
	}
	if err := Validate(doc); err != nil {
		log.Errorf("Configuration %s is invalid: %v", path, err)
		return nil, err
	}
	log.Debugf("Loaded %d keys from %s", doc.Len(), path)
	return doc, nil
}
