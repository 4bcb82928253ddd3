// Package ideal is a client for the iDEAL merchant-acquirer protocol. It
// builds directory, transaction and status requests, signs them with the
// merchant key, posts them to the acquirer and returns the verified,
// classified response.
package ideal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/message"
	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/metrics"
	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/schema"
	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/signature"
	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/transport"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

// Result labels recorded for successful calls. Failures are recorded with
// their error category.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// Client sends iDEAL requests to one acquirer. It is immutable after New
// and safe for concurrent use.
type Client struct {
	merchant  domain.Merchant
	url       string
	builder   *message.Builder
	parser    *message.Parser
	signer    ports.DocumentSigner
	verifier  ports.DocumentVerifier
	transport ports.Transport
	validator ports.SchemaValidator
	logger    *zap.Logger
	metrics   ports.MetricsRecorder
}

// New validates cfg and creates a client. Key and certificate files are not
// read here; they are loaded on every signing and verification.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNoopMetricsRecorder()
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	protocol, err := message.ProtocolForVersion(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	url, err := cfg.ResolvedRequestURL()
	if err != nil {
		return nil, err
	}
	acquirerCert, err := cfg.ResolvedAcquirerCertificate()
	if err != nil {
		return nil, err
	}

	c := &Client{
		merchant: domain.Merchant{ID: cfg.MerchantID, SubID: cfg.SubID},
		url:      url,
		builder:  message.NewBuilder(protocol, o.clock),
		parser:   message.NewParser(),
		signer: signature.NewXMLDsigSigner(cfg.Certificate, cfg.KeyFile, cfg.KeyPassword,
			signature.WithLogger(o.logger)),
		verifier:  signature.NewXMLDsigVerifier(acquirerCert, signature.WithLogger(o.logger)),
		transport: o.transport,
		validator: o.validator,
		logger:    o.logger,
		metrics:   o.metrics,
	}

	if c.transport == nil {
		t, err := transport.NewHTTPTransport(
			transport.WithTimeout(cfg.timeout()),
			transport.WithCAPath(cfg.Transport.CAPath),
			transport.WithUserAgent(cfg.Transport.UserAgent),
			transport.WithLogger(o.logger),
		)
		if err != nil {
			return nil, err
		}
		c.transport = t
	}

	if c.validator == nil && cfg.Validation.Enabled {
		v, err := newSchemaValidator(cfg.Validation.Schema, o.logger)
		if err != nil {
			return nil, err
		}
		c.validator = v
	}

	o.logger.Debug("iDEAL client created",
		zap.String("url", url),
		zap.String("protocol", protocol.Version),
		zap.String("merchant_id", cfg.MerchantID),
		zap.Bool("validation", c.validator != nil),
	)
	return c, nil
}

func newSchemaValidator(path string, logger *zap.Logger) (*schema.XSDValidator, error) {
	if path == "" {
		return schema.Default(schema.WithLogger(logger))
	}
	return schema.Load(path, schema.WithLogger(logger))
}

// RequestURL returns the acquirer URL requests are posted to.
func (c *Client) RequestURL() string {
	return c.url
}

// SendDirectoryRequest fetches the list of issuers.
func (c *Client) SendDirectoryRequest(ctx context.Context) (*DirectoryResponse, error) {
	resp, err := c.Send(ctx, DirectoryRequest{})
	if err != nil {
		return nil, err
	}
	return resp.(*DirectoryResponse), nil
}

// SendTransactionRequest starts a payment. The consumer must be redirected
// to the AuthenticationURL of the response.
func (c *Client) SendTransactionRequest(ctx context.Context, req TransactionRequest) (*TransactionResponse, error) {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*TransactionResponse), nil
}

// SendStatusRequest polls the state of a transaction.
func (c *Client) SendStatusRequest(ctx context.Context, req StatusRequest) (*StatusResponse, error) {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.(*StatusResponse), nil
}

// Send performs one request round trip: build, sign, post, verify and
// classify. A request without merchant details uses the configured
// merchant. The response type matches the request kind.
//
// Errors are *AppError values, except acquirer error messages, which are
// returned as *BusinessError.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	req, err := c.withMerchant(req)
	if err != nil {
		return nil, err
	}

	kind := req.Kind()
	start := time.Now()
	resp, err := c.send(ctx, kind, req)
	c.metrics.RecordRequest(kind.String(), resultLabel(err), time.Since(start))

	var bizErr *domain.BusinessError
	switch {
	case errors.As(err, &bizErr):
		c.metrics.RecordBusinessError(bizErr.Code)
		c.logger.Warn("acquirer returned an error",
			zap.String("kind", kind.String()),
			zap.String("code", bizErr.Code),
			zap.String("message", bizErr.Message),
			zap.String("detail", bizErr.Detail),
		)
	case err != nil:
		c.logger.Error("iDEAL request failed",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, kind domain.RequestKind, req Request) (Response, error) {
	doc, err := c.builder.Build(req)
	if err != nil {
		return nil, err
	}
	if err := c.signer.Sign(doc); err != nil {
		return nil, err
	}
	if c.validator != nil {
		if err := c.validator.Validate(doc); err != nil {
			return nil, err
		}
	}

	body, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", kind.RequestElement(), err)
	}

	c.logger.Debug("sending iDEAL request",
		zap.String("kind", kind.String()),
		zap.String("url", c.url),
	)
	data, err := c.transport.Post(ctx, c.url, body)
	if err != nil {
		return nil, err
	}

	if c.validator != nil {
		if err := c.validateResponse(data); err != nil {
			return nil, err
		}
	}

	verified, err := c.verifier.Verify(data)
	c.metrics.RecordVerification(err == nil)
	if err != nil {
		return nil, err
	}

	return c.parser.Classify(kind, verified)
}

func (c *Client) validateResponse(data []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return domain.MalformedResponseError("failed to parse response XML", err)
	}
	return c.validator.Validate(doc)
}

// withMerchant normalizes req to a value request carrying the merchant.
func (c *Client) withMerchant(req Request) (Request, error) {
	switch r := req.(type) {
	case DirectoryRequest:
		if r.Merchant.IsZero() {
			r.Merchant = c.merchant
		}
		return r, nil
	case *DirectoryRequest:
		if r == nil {
			break
		}
		return c.withMerchant(*r)
	case TransactionRequest:
		if r.Merchant.IsZero() {
			r.Merchant = c.merchant
		}
		return r, nil
	case *TransactionRequest:
		if r == nil {
			break
		}
		return c.withMerchant(*r)
	case StatusRequest:
		if r.Merchant.IsZero() {
			r.Merchant = c.merchant
		}
		return r, nil
	case *StatusRequest:
		if r == nil {
			break
		}
		return c.withMerchant(*r)
	}
	return nil, InvalidRequestError(fmt.Sprintf("unsupported request %T", req))
}

func resultLabel(err error) string {
	if err == nil {
		return resultSuccess
	}
	var bizErr *domain.BusinessError
	if errors.As(err, &bizErr) {
		return string(domain.CategoryBusiness)
	}
	if code, ok := domain.CodeOf(err); ok {
		return string(code.Category())
	}
	return resultError
}
