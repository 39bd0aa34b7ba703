package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crowdverify/verify-analytics/analytics"
)

var (
	scoreBucket   string
	scoreKey      string
	scoreLookback int
)

// scoreAnomalyCmd applies a trained anomaly model to recent metrics.
var scoreAnomalyCmd = &cobra.Command{
	Use:   "score-anomaly",
	Short: "Score recent metrics with a trained anomaly model",
	Run: func(cmd *cobra.Command, args []string) {
		bundle := loadBundle()
		bucket, key := resolveArtifact(scoreBucket, scoreKey, bundle.Anomaly.ModelBucket, bundle.Anomaly.ModelKey)

		h, cleanup := buildHandlers(bundle, nil)
		defer cleanup()

		result := h.Score(context.Background(), analytics.ScoreRequest{
			ModelBucket:   bucket,
			ModelKey:      key,
			LookbackHours: scoreLookback,
		})
		printJSON(result)
		if result.Status != analytics.StatusOK {
			logrus.Exit(1)
		}
	},
}

func init() {
	scoreAnomalyCmd.Flags().StringVar(&scoreBucket, "bucket", "", "Artifact bucket")
	scoreAnomalyCmd.Flags().StringVar(&scoreKey, "key", "", "Artifact key")
	scoreAnomalyCmd.Flags().IntVar(&scoreLookback, "lookback", 12, "Scoring window in hours")
	rootCmd.AddCommand(scoreAnomalyCmd)
}
