package metrics

import (
	"time"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordRequest is a no-op.
func (n *NoopMetricsRecorder) RecordRequest(kind, result string, duration time.Duration) {}

// RecordVerification is a no-op.
func (n *NoopMetricsRecorder) RecordVerification(success bool) {}

// RecordBusinessError is a no-op.
func (n *NoopMetricsRecorder) RecordBusinessError(code string) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
