package analytics

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigBundle holds unified service configuration, loadable from a YAML
// file. Nil pointer fields mean "not set in YAML" — they do not override
// CLI flag defaults. String fields use empty string for "not set".
type ConfigBundle struct {
	Environment string         `yaml:"environment"`
	Sensitivity string         `yaml:"sensitivity"`
	Database    DatabaseConfig `yaml:"database"`
	Anomaly     AnomalyConfig  `yaml:"anomaly"`
	Routing     RoutingConfig  `yaml:"routing"`
	Sinks       SinkConfig     `yaml:"sinks"`
	Listen      string         `yaml:"listen"`
}

// DatabaseConfig locates the metrics store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AnomalyConfig holds model-based detector configuration.
type AnomalyConfig struct {
	Contamination *float64 `yaml:"contamination"`
	ModelBucket   string   `yaml:"model_bucket"`
	ModelKey      string   `yaml:"model_key"`
}

// RoutingConfig holds task-router configuration.
type RoutingConfig struct {
	ModelBucket string `yaml:"model_bucket"`
	ModelKey    string `yaml:"model_key"`
}

// SinkConfig selects metric and alert sink implementations.
type SinkConfig struct {
	Metrics string `yaml:"metrics"`
	Alerts  string `yaml:"alerts"`
}

// LoadConfigBundle reads and parses a YAML configuration file.
func LoadConfigBundle(path string) (*ConfigBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var bundle ConfigBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &bundle, nil
}

// ValidSensitivities is the set of recognized sensitivity names.
// Empty string means "use the default".
var ValidSensitivities = map[string]bool{"": true, "low": true, "medium": true, "high": true}

// ValidMetricSinks is the set of recognized metric sink names.
var ValidMetricSinks = map[string]bool{"": true, "prometheus": true, "log": true}

// ValidAlertSinks is the set of recognized alert sink names.
var ValidAlertSinks = map[string]bool{"": true, "log": true}

// Validate checks that all names and parameter ranges in the bundle are
// valid.
func (b *ConfigBundle) Validate() error {
	if !ValidSensitivities[b.Sensitivity] {
		return fmt.Errorf("unknown sensitivity %q", b.Sensitivity)
	}
	if !ValidMetricSinks[b.Sinks.Metrics] {
		return fmt.Errorf("unknown metric sink %q", b.Sinks.Metrics)
	}
	if !ValidAlertSinks[b.Sinks.Alerts] {
		return fmt.Errorf("unknown alert sink %q", b.Sinks.Alerts)
	}
	if c := b.Anomaly.Contamination; c != nil && (*c <= 0 || *c > 0.5) {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", *c)
	}
	return nil
}
