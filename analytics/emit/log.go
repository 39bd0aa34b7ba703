package emit

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/crowdverify/verify-analytics/analytics"
)

// LogMetricSink writes emitted metrics to the log. Used by CLI runs where
// no scrape endpoint exists.
type LogMetricSink struct{}

// Emit implements analytics.MetricSink.
func (LogMetricSink) Emit(_ context.Context, namespace string, data []analytics.MetricDatum) error {
	for _, d := range data {
		logrus.WithFields(logrus.Fields{
			"namespace":  namespace,
			"dimensions": d.Dimensions,
			"unit":       d.Unit,
		}).Infof("metric %s=%v", d.Name, d.Value)
	}
	return nil
}

// LogAlertSink writes alert messages to the log at warning level.
type LogAlertSink struct{}

// Publish implements analytics.AlertSink.
func (LogAlertSink) Publish(_ context.Context, subject string, message analytics.AlertMessage) error {
	logrus.WithFields(logrus.Fields{
		"environment": message.Environment,
		"anomalies":   len(message.Anomalies),
		"timestamp":   message.Timestamp,
	}).Warnf("%s\n%s", subject, message.AlertSummary)
	return nil
}
