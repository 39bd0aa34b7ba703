package cmd

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crowdverify/verify-analytics/analytics"
	"github.com/crowdverify/verify-analytics/analytics/emit"
	"github.com/crowdverify/verify-analytics/analytics/store"
)

var (
	// CLI flags shared across subcommands
	logLevel     string // Log verbosity level
	configPath   string // Optional YAML config bundle
	dbPath       string // SQLite metrics database path
	artifactsDir string // Root directory of the artifact store
	environment  string // Deployment environment tag (dev/staging/prod)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "verify-analytics",
	Short: "Anomaly detection and task routing for the verification pipeline",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// loadBundle reads the optional config file and validates it. A missing
// --config flag yields an empty bundle so flags alone are enough.
func loadBundle() *analytics.ConfigBundle {
	if configPath == "" {
		return &analytics.ConfigBundle{}
	}
	bundle, err := analytics.LoadConfigBundle(configPath)
	if err != nil {
		logrus.Fatalf("Loading config: %v", err)
	}
	if err := bundle.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}
	return bundle
}

// buildHandlers wires the handlers to their collaborators from flags and
// config. Config values take precedence over flag defaults. The returned
// cleanup closes the metrics database.
func buildHandlers(bundle *analytics.ConfigBundle, registry *prometheus.Registry) (*analytics.Handlers, func()) {
	path := dbPath
	if bundle.Database.Path != "" {
		path = bundle.Database.Path
	}
	db, err := store.OpenMetricsDB(path)
	if err != nil {
		logrus.Fatalf("Opening metrics database: %v", err)
	}

	env := environment
	if bundle.Environment != "" {
		env = bundle.Environment
	}

	// Prometheus emission needs a live registry (serve mode); one-shot CLI
	// runs fall back to the log sink.
	var metrics analytics.MetricSink = emit.LogMetricSink{}
	if registry != nil && bundle.Sinks.Metrics != "log" {
		metrics = emit.NewPromSink(registry)
	}

	h := &analytics.Handlers{
		Source:      db,
		Artifacts:   store.NewFSArtifactStore(artifactsDir),
		Metrics:     metrics,
		Alerts:      emit.LogAlertSink{},
		Environment: env,
	}
	return h, func() { db.Close() }
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config bundle")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "metrics.db", "Path to the SQLite metrics database")
	rootCmd.PersistentFlags().StringVar(&artifactsDir, "artifacts-dir", "artifacts", "Root directory for model artifacts")
	rootCmd.PersistentFlags().StringVar(&environment, "environment", "dev", "Deployment environment tag")
}
