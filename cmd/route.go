package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crowdverify/verify-analytics/analytics"
)

var (
	routeBucket       string
	routeKey          string
	routeTaskID       string
	routeContentType  string
	routeMethod       string
	routeComplexity   float64
	routeExpectedTime float64
	routeConfidence   float64
)

// routeCmd predicts the best workers for one task.
var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Rank workers for a verification task with the trained router",
	Run: func(cmd *cobra.Command, args []string) {
		bundle := loadBundle()
		bucket, key := resolveArtifact(routeBucket, routeKey, bundle.Routing.ModelBucket, bundle.Routing.ModelKey)

		h, cleanup := buildHandlers(bundle, nil)
		defer cleanup()

		result := h.Route(context.Background(), analytics.RouteRequest{
			ModelBucket: bucket,
			ModelKey:    key,
			TaskFeatures: analytics.TaskFeatures{
				TaskID:               routeTaskID,
				ContentType:          analytics.ContentType(routeContentType),
				VerificationMethod:   analytics.VerificationMethod(routeMethod),
				TaskComplexity:       routeComplexity,
				ExpectedResponseTime: routeExpectedTime,
				RequiredConfidence:   routeConfidence,
			},
		})
		printJSON(result)
		if result.Status != analytics.StatusOK {
			logrus.Exit(1)
		}
	},
}

func init() {
	routeCmd.Flags().StringVar(&routeBucket, "bucket", "", "Artifact bucket")
	routeCmd.Flags().StringVar(&routeKey, "key", "", "Artifact key")
	routeCmd.Flags().StringVar(&routeTaskID, "task-id", "", "Task identifier")
	routeCmd.Flags().StringVar(&routeContentType, "content-type", "text", "Task content type (text, image, video)")
	routeCmd.Flags().StringVar(&routeMethod, "method", "human", "Verification method (human, ai)")
	routeCmd.Flags().Float64Var(&routeComplexity, "complexity", 0.5, "Task complexity")
	routeCmd.Flags().Float64Var(&routeExpectedTime, "expected-response-time", 1000, "Expected response time in ms")
	routeCmd.Flags().Float64Var(&routeConfidence, "required-confidence", 0.8, "Required confidence")
	rootCmd.AddCommand(routeCmd)
}
