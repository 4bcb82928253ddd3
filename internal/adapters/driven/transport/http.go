// Package transport posts signed iDEAL messages to an acquirer over HTTPS.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

// Defaults for the HTTP transport.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultUserAgent       = "slm-ideal-payment/unknown"
	DefaultMaxResponseSize = 1 << 20

	contentType = `text/xml; charset="utf-8"`
)

// HTTPTransport sends request documents with a single POST per call. It
// does not retry.
type HTTPTransport struct {
	client          *http.Client
	userAgent       string
	maxResponseSize int64
	logger          *zap.Logger
}

// NewHTTPTransport creates a transport. It fails only when a CA path is
// configured and cannot be loaded.
func NewHTTPTransport(opts ...Option) (*HTTPTransport, error) {
	o := &options{
		timeout:         DefaultTimeout,
		userAgent:       DefaultUserAgent,
		maxResponseSize: DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
		if o.caPath != "" {
			pool, err := loadCertPool(o.caPath)
			if err != nil {
				return nil, err
			}
			base := http.DefaultTransport.(*http.Transport).Clone()
			base.TLSClientConfig = &tls.Config{
				RootCAs:    pool,
				MinVersion: tls.VersionTLS12,
			}
			client.Transport = base
		}
	}

	return &HTTPTransport{
		client:          client,
		userAgent:       o.userAgent,
		maxResponseSize: o.maxResponseSize,
		logger:          o.logger,
	}, nil
}

// Post sends body to url and returns the response body. Connection errors,
// timeouts and any non-2xx status are ErrHTTPRequestFailed errors.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.HTTPRequestError(fmt.Sprintf("create request for %s", url), err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/xml")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("acquirer request failed",
				zap.String("url", url),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
		}
		return nil, domain.HTTPRequestError(fmt.Sprintf("post to %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		statusErr := &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
		return nil, domain.HTTPRequestError(fmt.Sprintf("post to %s", url), statusErr)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseSize+1))
	if err != nil {
		return nil, domain.HTTPRequestError(fmt.Sprintf("read response from %s", url), err)
	}
	if int64(len(data)) > t.maxResponseSize {
		return nil, domain.HTTPRequestError(
			fmt.Sprintf("response from %s exceeds %d bytes", url, t.maxResponseSize), nil)
	}

	if t.logger != nil {
		t.logger.Debug("acquirer response received",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.Int("bytes", len(data)),
			zap.Duration("duration", time.Since(start)))
	}
	return data, nil
}

// HTTPStatusError is the cause of an ErrHTTPRequestFailed error for a
// non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// loadCertPool reads PEM certificates from a file or every regular file in
// a directory.
func loadCertPool(path string) (*x509.CertPool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.ConfigError(fmt.Sprintf("cannot open CA path %s: %v", path, err))
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("cannot read CA directory %s: %v", path, err))
		}
		files = files[:0]
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}

	pool := x509.NewCertPool()
	added := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("cannot read CA file %s: %v", f, err))
		}
		if pool.AppendCertsFromPEM(data) {
			added++
		}
	}
	if added == 0 {
		return nil, domain.ConfigError(fmt.Sprintf("no PEM certificates found in %s", path))
	}
	return pool, nil
}

var _ ports.Transport = (*HTTPTransport)(nil)
