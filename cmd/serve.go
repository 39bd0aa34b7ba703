package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crowdverify/verify-analytics/server"
)

var listenAddr string

// serveCmd runs the HTTP invocation surface.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics handlers over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		bundle := loadBundle()
		addr := listenAddr
		if bundle.Listen != "" {
			addr = bundle.Listen
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())

		h, cleanup := buildHandlers(bundle, registry)
		defer cleanup()

		router := server.NewRouter(h, registry)
		logrus.Infof("Serving analytics API on %s", addr)
		if err := router.Run(addr); err != nil {
			logrus.Fatalf("HTTP server: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
