package ports

import "context"

// Transport delivers a signed request document to the acquirer and returns
// the raw response body. This is a port interface - implementations are
// adapters.
type Transport interface {
	// Post sends body to url. A non-success HTTP status must be reported as
	// an error; the response body is only returned on success.
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
}
