package ideal

import (
	"go.uber.org/zap"

	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/message"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

// Clock supplies the creation timestamp of outgoing messages.
type Clock = message.Clock

// Transport posts signed documents to the acquirer.
type Transport = ports.Transport

// SchemaValidator validates outgoing and incoming documents.
type SchemaValidator = ports.SchemaValidator

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger    *zap.Logger
	metrics   ports.MetricsRecorder
	transport ports.Transport
	clock     message.Clock
	validator ports.SchemaValidator
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithMetricsRecorder sets the metrics recorder. Defaults to a no-op
// recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *clientOptions) {
		o.metrics = recorder
	}
}

// WithTransport replaces the HTTP transport built from the configuration.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// WithClock sets the clock used for createDateTimestamp.
func WithClock(clock Clock) Option {
	return func(o *clientOptions) {
		o.clock = clock
	}
}

// WithSchemaValidator enables schema validation with v, regardless of
// the validation section of the configuration.
func WithSchemaValidator(v SchemaValidator) Option {
	return func(o *clientOptions) {
		o.validator = v
	}
}
