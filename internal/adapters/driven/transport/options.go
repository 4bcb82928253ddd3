package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the HTTP transport.
type Option func(*options)

type options struct {
	timeout         time.Duration
	caPath          string
	httpClient      *http.Client
	userAgent       string
	maxResponseSize int64
	logger          *zap.Logger
}

// WithTimeout bounds each request, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithCAPath trusts the PEM certificates in a file, or in every file of a
// directory, instead of the system roots.
func WithCAPath(path string) Option {
	return func(o *options) {
		o.caPath = path
	}
}

// WithHTTPClient uses client as is. Timeout and CA path options are ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithMaxResponseSize limits how many bytes of a response body are read.
func WithMaxResponseSize(n int64) Option {
	return func(o *options) {
		o.maxResponseSize = n
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
