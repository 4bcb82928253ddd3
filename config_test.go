//go:build unit

package ideal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Acquirer:            "ing",
		AcquirerCertificate: "/etc/ideal/ing.cer",
		MerchantID:          "001234567",
		Certificate:         "/etc/ideal/merchant.cer",
		KeyFile:             "/etc/ideal/merchant.key",
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.SubID != "0" {
		t.Errorf("SubID = %q, want %q", cfg.SubID, "0")
	}
	if cfg.Protocol != "3.3.1" {
		t.Errorf("Protocol = %q, want %q", cfg.Protocol, "3.3.1")
	}
	if cfg.Transport.Timeout != "30s" {
		t.Errorf("Transport.Timeout = %q, want %q", cfg.Transport.Timeout, "30s")
	}
	if cfg.Validation.Enabled {
		t.Error("Validation.Enabled should default to false")
	}
	if cfg.Production {
		t.Error("Production should default to false")
	}
}

func TestConfig_Defaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{SubID: "12", Protocol: "1.1.0", Transport: TransportConfig{Timeout: "5s"}}
	cfg.SetDefaults()

	if cfg.SubID != "12" || cfg.Protocol != "1.1.0" || cfg.Transport.Timeout != "5s" {
		t.Errorf("SetDefaults() overwrote explicit values: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing merchant id", func(c *Config) { c.MerchantID = "" }, "merchant_id"},
		{"missing key file", func(c *Config) { c.KeyFile = "" }, "key_file"},
		{"missing certificate", func(c *Config) { c.Certificate = "" }, "certificate is required"},
		{"pkcs12 without certificate", func(c *Config) {
			c.Certificate = ""
			c.KeyFile = "/etc/ideal/merchant.p12"
		}, ""},
		{"unknown protocol", func(c *Config) { c.Protocol = "2.0" }, "protocol"},
		{"unknown acquirer", func(c *Config) { c.Acquirer = "nobank" }, "unknown acquirer"},
		{"no acquirer and no url", func(c *Config) { c.Acquirer = "" }, "either acquirer or request_url"},
		{"request url only", func(c *Config) {
			c.Acquirer = ""
			c.RequestURL = "https://acquirer.example.com/ideal"
		}, ""},
		{"missing acquirer certificate", func(c *Config) { c.AcquirerCertificate = "" }, "acquirer_certificate"},
		{"acquirer entry certificate", func(c *Config) {
			c.Acquirer = "mybank"
			c.AcquirerCertificate = ""
			c.Acquirers = map[string]AcquirerEndpoint{
				"mybank": {Test: "https://test.mybank.example/ideal", Certificate: "/etc/ideal/mybank.cer"},
			}
		}, ""},
		{"acquirer entry without live url", func(c *Config) {
			c.Production = true
			c.Acquirer = "mybank"
			c.Acquirers = map[string]AcquirerEndpoint{"mybank": {Test: "https://test.mybank.example/ideal"}}
		}, "no live URL"},
		{"bad timeout", func(c *Config) { c.Transport.Timeout = "soon" }, "transport.timeout"},
		{"negative timeout", func(c *Config) { c.Transport.Timeout = "-1s" }, "transport.timeout"},
		{"legacy validation without schema", func(c *Config) {
			c.Protocol = "1.1.0"
			c.Validation.Enabled = true
		}, "validation.schema"},
		{"legacy validation with schema", func(c *Config) {
			c.Protocol = "1.1.0"
			c.Validation = ValidationConfig{Enabled: true, Schema: "/etc/ideal/ideal-1.1.0.xsd"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			cfg.SetDefaults()

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("Validate() error = %v, want ErrConfigInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ResolvedRequestURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"builtin test", Config{Acquirer: "rabobank"}, "https://idealtest.rabobank.nl/ideal/iDEALv3"},
		{"builtin live", Config{Acquirer: "rabobank", Production: true}, "https://ideal.rabobank.nl/ideal/iDEALv3"},
		{"override", Config{Acquirer: "rabobank", RequestURL: "https://proxy.example.com/ideal"}, "https://proxy.example.com/ideal"},
		{"configured entry wins", Config{
			Acquirer:  "ing",
			Acquirers: map[string]AcquirerEndpoint{"ing": {Test: "https://ing.example.com/test"}},
		}, "https://ing.example.com/test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolvedRequestURL()
			if err != nil {
				t.Fatalf("ResolvedRequestURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolvedRequestURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_ResolvedAcquirerCertificate(t *testing.T) {
	cfg := Config{
		Acquirer:  "mybank",
		Acquirers: map[string]AcquirerEndpoint{"mybank": {Test: "https://t.example", Certificate: "/certs/mybank.cer"}},
	}
	if got, _ := cfg.ResolvedAcquirerCertificate(); got != "/certs/mybank.cer" {
		t.Errorf("ResolvedAcquirerCertificate() = %q, want entry certificate", got)
	}

	cfg.AcquirerCertificate = "/certs/override.cer"
	if got, _ := cfg.ResolvedAcquirerCertificate(); got != "/certs/override.cer" {
		t.Errorf("ResolvedAcquirerCertificate() = %q, want override", got)
	}
}

func TestBuiltinAcquirers(t *testing.T) {
	for _, name := range BuiltinAcquirerNames() {
		e, ok := BuiltinAcquirer(name)
		if !ok {
			t.Errorf("BuiltinAcquirer(%q) not found", name)
			continue
		}
		for _, u := range []string{e.Test, e.Live} {
			if !strings.HasPrefix(u, "https://") {
				t.Errorf("acquirer %s URL %q is not https", name, u)
			}
		}
	}
	if _, ok := BuiltinAcquirer("unknown"); ok {
		t.Error("BuiltinAcquirer(unknown) should not be found")
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "ideal.yaml", `
acquirer: mybank
merchant_id: "001234567"
certificate: certs/merchant.cer
key_file: /abs/merchant.key
key_password: secret
validation:
  enabled: true
transport:
  timeout: 10s
  ca_path: ca
acquirers:
  mybank:
    test: https://test.mybank.example/ideal
    live: https://mybank.example/ideal
    certificate: certs/mybank.cer
`)
	dir := filepath.Dir(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MerchantID != "001234567" {
		t.Errorf("MerchantID = %q", cfg.MerchantID)
	}
	if cfg.SubID != "0" {
		t.Errorf("SubID = %q, want default 0", cfg.SubID)
	}
	if cfg.Certificate != filepath.Join(dir, "certs/merchant.cer") {
		t.Errorf("Certificate = %q, want resolved against config dir", cfg.Certificate)
	}
	if cfg.KeyFile != "/abs/merchant.key" {
		t.Errorf("KeyFile = %q, absolute path should be kept", cfg.KeyFile)
	}
	if cfg.Transport.CAPath != filepath.Join(dir, "ca") {
		t.Errorf("Transport.CAPath = %q", cfg.Transport.CAPath)
	}
	if got := cfg.Acquirers["mybank"].Certificate; got != filepath.Join(dir, "certs/mybank.cer") {
		t.Errorf("acquirer certificate = %q", got)
	}
	if !cfg.Validation.Enabled || cfg.Transport.Timeout != "10s" || cfg.KeyPassword != "secret" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "ideal.json", `{
  "acquirer": "ing",
  "production": true,
  "acquirer_certificate": "ing.cer",
  "merchant_id": "001234567",
  "sub_id": "1",
  "key_file": "merchant.p12",
  "protocol": "3.3.1"
}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.Production || cfg.SubID != "1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.AcquirerCertificate != filepath.Join(filepath.Dir(path), "ing.cer") {
		t.Errorf("AcquirerCertificate = %q", cfg.AcquirerCertificate)
	}
	url, err := cfg.ResolvedRequestURL()
	if err != nil || url != "https://ideal.secure-ing.com/ideal/iDEALv3" {
		t.Errorf("ResolvedRequestURL() = %q, %v", url, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := map[string]string{
		"missing":     filepath.Join(t.TempDir(), "missing.yaml"),
		"bad yaml":    writeConfig(t, "bad.yaml", "merchant_id: [unclosed"),
		"bad json":    writeConfig(t, "bad.json", "{"),
		"unsupported": writeConfig(t, "ideal.toml", "merchant_id = 1"),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(path); !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("LoadConfig() error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}
