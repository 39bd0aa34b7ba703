package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crowdverify/verify-analytics/analytics"
)

var (
	trainLookbackHours int
	trainContamination float64
	trainBucket        string
	trainKey           string
	trainExamplesPath  string
)

// trainAnomalyCmd fits the isolation-forest detector on historical
// metrics and saves the artifact.
var trainAnomalyCmd = &cobra.Command{
	Use:   "train-anomaly",
	Short: "Train the model-based anomaly detector and save the artifact",
	Run: func(cmd *cobra.Command, args []string) {
		bundle := loadBundle()
		contamination := trainContamination
		if c := bundle.Anomaly.Contamination; c != nil {
			contamination = *c
		}
		bucket, key := resolveArtifact(trainBucket, trainKey, bundle.Anomaly.ModelBucket, bundle.Anomaly.ModelKey)

		h, cleanup := buildHandlers(bundle, nil)
		defer cleanup()

		if err := h.TrainAnomaly(context.Background(), trainLookbackHours, contamination, bucket, key); err != nil {
			logrus.Fatalf("Training anomaly model: %v", err)
		}
	},
}

// trainRouterCmd fits the routing classifier on labeled examples and
// saves the artifact.
var trainRouterCmd = &cobra.Command{
	Use:   "train-router",
	Short: "Train the task-routing classifier and save the artifact",
	Run: func(cmd *cobra.Command, args []string) {
		bundle := loadBundle()
		bucket, key := resolveArtifact(trainBucket, trainKey, bundle.Routing.ModelBucket, bundle.Routing.ModelKey)

		data, err := os.ReadFile(trainExamplesPath)
		if err != nil {
			logrus.Fatalf("Reading routing examples: %v", err)
		}
		var examples []analytics.RoutingExample
		if err := json.Unmarshal(data, &examples); err != nil {
			logrus.Fatalf("Parsing routing examples: %v", err)
		}

		h, cleanup := buildHandlers(bundle, nil)
		defer cleanup()

		if err := h.TrainRouter(context.Background(), examples, bucket, key); err != nil {
			logrus.Fatalf("Training routing model: %v", err)
		}
	},
}

// resolveArtifact prefers explicit flags over config bundle values.
func resolveArtifact(flagBucket, flagKey, cfgBucket, cfgKey string) (string, string) {
	bucket, key := flagBucket, flagKey
	if bucket == "" {
		bucket = cfgBucket
	}
	if key == "" {
		key = cfgKey
	}
	if bucket == "" || key == "" {
		logrus.Fatal("Model artifact bucket and key must be set via flags or config")
	}
	return bucket, key
}

func init() {
	trainAnomalyCmd.Flags().IntVar(&trainLookbackHours, "lookback", 168, "Training window in hours")
	trainAnomalyCmd.Flags().Float64Var(&trainContamination, "contamination", analytics.DefaultContamination, "Expected outlier fraction")
	trainAnomalyCmd.Flags().StringVar(&trainBucket, "bucket", "", "Artifact bucket")
	trainAnomalyCmd.Flags().StringVar(&trainKey, "key", "", "Artifact key")

	trainRouterCmd.Flags().StringVar(&trainExamplesPath, "examples", "", "Path to JSON routing examples")
	trainRouterCmd.Flags().StringVar(&trainBucket, "bucket", "", "Artifact bucket")
	trainRouterCmd.Flags().StringVar(&trainKey, "key", "", "Artifact key")
	_ = trainRouterCmd.MarkFlagRequired("examples")

	rootCmd.AddCommand(trainAnomalyCmd)
	rootCmd.AddCommand(trainRouterCmd)
}
