package ideal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/message"
)

// Config is the merchant configuration. It is read once by New; the client
// never mutates it.
type Config struct {
	// Production selects the live acquirer URL instead of the test URL.
	Production bool `json:"production,omitempty" yaml:"production,omitempty"`

	// Acquirer names an entry of Acquirers or of the built-in table.
	Acquirer string `json:"acquirer,omitempty" yaml:"acquirer,omitempty"`

	// RequestURL overrides the acquirer endpoint.
	RequestURL string `json:"request_url,omitempty" yaml:"request_url,omitempty"`

	// AcquirerCertificate is the public certificate responses are verified
	// against. Overrides the certificate of the acquirer entry.
	AcquirerCertificate string `json:"acquirer_certificate,omitempty" yaml:"acquirer_certificate,omitempty"`

	MerchantID string `json:"merchant_id,omitempty" yaml:"merchant_id,omitempty"`
	SubID      string `json:"sub_id,omitempty" yaml:"sub_id,omitempty"`

	// Certificate is the merchant's public certificate. May be empty when
	// KeyFile is a PKCS#12 bundle.
	Certificate string `json:"certificate,omitempty" yaml:"certificate,omitempty"`
	KeyFile     string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	KeyPassword string `json:"key_password,omitempty" yaml:"key_password,omitempty"`

	// Protocol is "3.3.1" (default) or "1.1.0".
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`

	Validation ValidationConfig            `json:"validation,omitempty" yaml:"validation,omitempty"`
	Transport  TransportConfig             `json:"transport,omitempty" yaml:"transport,omitempty"`
	Acquirers  map[string]AcquirerEndpoint `json:"acquirers,omitempty" yaml:"acquirers,omitempty"`
}

// ValidationConfig controls XSD validation of outgoing and incoming
// documents.
type ValidationConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Schema is an XSD path. Empty uses the embedded 3.3.1 schema.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// TransportConfig configures the HTTP transport.
type TransportConfig struct {
	// Timeout is a Go duration string, e.g. "30s".
	Timeout   string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	CAPath    string `json:"ca_path,omitempty" yaml:"ca_path,omitempty"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// SetDefaults fills unset optional fields.
func (c *Config) SetDefaults() {
	if c.SubID == "" {
		c.SubID = "0"
	}
	if c.Protocol == "" {
		c.Protocol = message.Protocol331.Version
	}
	if c.Transport.Timeout == "" {
		c.Transport.Timeout = "30s"
	}
}

// Validate checks the configuration without touching the filesystem. Key
// and certificate files are read when a request is signed or verified.
func (c *Config) Validate() error {
	if c.MerchantID == "" {
		return ConfigError("merchant_id is required")
	}
	if c.KeyFile == "" {
		return ConfigError("key_file is required")
	}
	if c.Certificate == "" && !isPKCS12Path(c.KeyFile) {
		return ConfigError("certificate is required unless key_file is a PKCS#12 bundle")
	}

	protocol, err := message.ProtocolForVersion(c.Protocol)
	if err != nil {
		return err
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}
	if c.RequestURL == "" && endpoint.URL(c.Production) == "" {
		env := "test"
		if c.Production {
			env = "live"
		}
		return ConfigError(fmt.Sprintf("acquirer %q has no %s URL", c.Acquirer, env))
	}
	if c.AcquirerCertificate == "" && endpoint.Certificate == "" {
		return ConfigError("acquirer_certificate is required")
	}

	if c.Transport.Timeout != "" {
		d, err := time.ParseDuration(c.Transport.Timeout)
		if err != nil || d <= 0 {
			return ConfigError(fmt.Sprintf("transport.timeout %q is not a positive duration", c.Transport.Timeout))
		}
	}

	if c.Validation.Enabled && c.Validation.Schema == "" && protocol != message.Protocol331 {
		return ConfigError(fmt.Sprintf("validation.schema is required for protocol %s", protocol.Version))
	}
	return nil
}

// ResolvedRequestURL returns the URL requests are posted to.
func (c *Config) ResolvedRequestURL() (string, error) {
	if c.RequestURL != "" {
		return c.RequestURL, nil
	}
	endpoint, err := c.endpoint()
	if err != nil {
		return "", err
	}
	return endpoint.URL(c.Production), nil
}

// ResolvedAcquirerCertificate returns the certificate path responses are
// verified against.
func (c *Config) ResolvedAcquirerCertificate() (string, error) {
	if c.AcquirerCertificate != "" {
		return c.AcquirerCertificate, nil
	}
	endpoint, err := c.endpoint()
	if err != nil {
		return "", err
	}
	return endpoint.Certificate, nil
}

// endpoint looks the acquirer up in Acquirers, then in the built-in table.
// Without an acquirer name only RequestURL can address the acquirer.
func (c *Config) endpoint() (AcquirerEndpoint, error) {
	if c.Acquirer == "" {
		if c.RequestURL == "" {
			return AcquirerEndpoint{}, ConfigError("either acquirer or request_url must be specified")
		}
		return AcquirerEndpoint{}, nil
	}
	if e, ok := c.Acquirers[c.Acquirer]; ok {
		return e, nil
	}
	if e, ok := BuiltinAcquirer(c.Acquirer); ok {
		return e, nil
	}
	return AcquirerEndpoint{}, ConfigError(fmt.Sprintf("unknown acquirer %q", c.Acquirer))
}

func (c *Config) timeout() time.Duration {
	d, err := time.ParseDuration(c.Transport.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) configuration file.
// Relative file paths inside the configuration are resolved against the
// directory of the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ConfigError(fmt.Sprintf("cannot read config %s: %v", path, err))
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return nil, ConfigError(fmt.Sprintf("unsupported config format %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, ConfigError(fmt.Sprintf("cannot parse config %s: %v", path, err))
	}

	cfg.resolvePaths(filepath.Dir(path))
	cfg.SetDefaults()
	return &cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&c.AcquirerCertificate)
	resolve(&c.Certificate)
	resolve(&c.KeyFile)
	resolve(&c.Validation.Schema)
	resolve(&c.Transport.CAPath)
	for name, e := range c.Acquirers {
		resolve(&e.Certificate)
		c.Acquirers[name] = e
	}
}

func isPKCS12Path(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return true
	}
	return false
}
