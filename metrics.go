package ideal

import (
	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/metrics"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

// MetricsRecorder is the port interface for recording metrics.
type MetricsRecorder = ports.MetricsRecorder

type NoopMetricsRecorder = metrics.NoopMetricsRecorder
type PrometheusMetricsRecorder = metrics.PrometheusMetricsRecorder

var (
	NewNoopMetricsRecorder                   = metrics.NewNoopMetricsRecorder
	NewPrometheusMetricsRecorder             = metrics.NewPrometheusMetricsRecorder
	NewPrometheusMetricsRecorderWithRegistry = metrics.NewPrometheusMetricsRecorderWithRegistry
)
