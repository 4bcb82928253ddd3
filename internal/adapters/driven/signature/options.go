package signature

import "go.uber.org/zap"

// Option configures signers and verifiers.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for signing and verification events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
