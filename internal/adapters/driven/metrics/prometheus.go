package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	verificationsTotal  *prometheus.CounterVec
	businessErrorsTotal *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics recorder
// with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ideal_requests_total",
		Help: "Total iDEAL requests by kind and outcome",
	}, []string{"kind", "result"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ideal_request_duration_seconds",
		Help:    "Duration of iDEAL requests including signing and verification",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	verificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ideal_signature_verifications_total",
		Help: "Total acquirer response signature verifications",
	}, []string{"result"})

	businessErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ideal_business_errors_total",
		Help: "Total business errors returned by the acquirer",
	}, []string{"code"})

	reg.MustRegister(
		requestsTotal,
		requestDuration,
		verificationsTotal,
		businessErrorsTotal,
	)

	return &PrometheusMetricsRecorder{
		requestsTotal:       requestsTotal,
		requestDuration:     requestDuration,
		verificationsTotal:  verificationsTotal,
		businessErrorsTotal: businessErrorsTotal,
	}
}

// RecordRequest records a completed request. result is "success" or the
// error category that ended it.
func (p *PrometheusMetricsRecorder) RecordRequest(kind, result string, duration time.Duration) {
	p.requestsTotal.WithLabelValues(kind, result).Inc()
	p.requestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordVerification records a response signature check.
func (p *PrometheusMetricsRecorder) RecordVerification(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.verificationsTotal.WithLabelValues(result).Inc()
}

// RecordBusinessError records an acquirer error code.
func (p *PrometheusMetricsRecorder) RecordBusinessError(code string) {
	p.businessErrorsTotal.WithLabelValues(code).Inc()
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
