package ports

import "time"

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordRequest records a completed request round trip. kind is the
	// request kind label, result one of the outcome labels.
	RecordRequest(kind, result string, duration time.Duration)

	// RecordVerification records a response signature verification result.
	RecordVerification(success bool)

	// RecordBusinessError records an acquirer error code.
	RecordBusinessError(code string)
}
