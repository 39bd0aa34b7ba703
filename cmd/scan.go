package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crowdverify/verify-analytics/analytics"
)

var scanSensitivity string

// scanCmd runs one threshold anomaly scan over recent metrics.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a threshold anomaly scan over recent verification metrics",
	Run: func(cmd *cobra.Command, args []string) {
		bundle := loadBundle()
		sensitivity := scanSensitivity
		if sensitivity == "" && bundle.Sensitivity != "" {
			sensitivity = bundle.Sensitivity
		}

		h, cleanup := buildHandlers(bundle, nil)
		defer cleanup()

		result := h.Scan(context.Background(), analytics.ScanRequest{Sensitivity: sensitivity})
		printJSON(result)
		if result.Status != analytics.StatusOK {
			logrus.Exit(1)
		}
	},
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Fatalf("Encoding result: %v", err)
	}
	fmt.Println(string(out))
}

func init() {
	scanCmd.Flags().StringVar(&scanSensitivity, "sensitivity", "", "Scan sensitivity: low, medium or high")
	rootCmd.AddCommand(scanCmd)
}
