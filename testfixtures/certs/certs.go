// Package certs generates throwaway RSA key pairs and certificates on disk
// for tests that exercise the file-based signing configuration.
package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// KeyPair is a generated key and self-signed certificate, with the PEM
// encoded certificate and unencrypted PKCS#1 key already written to disk.
type KeyPair struct {
	t           testing.TB
	dir         string
	name        string
	Key         *rsa.PrivateKey
	Certificate *x509.Certificate
	CertPath    string
	KeyPath     string
}

// New generates a 2048 bit key pair for commonName in a fresh temp dir.
func New(t testing.TB, commonName string) *KeyPair {
	t.Helper()
	return NewInDir(t, t.TempDir(), commonName)
}

// NewInDir is like New but writes into dir.
func NewInDir(t testing.TB, dir, commonName string) *KeyPair {
	t.Helper()

	key, cert, err := generateSelfSignedCert(commonName)
	if err != nil {
		t.Fatalf("failed to generate certificate: %v", err)
	}

	kp := &KeyPair{
		t:           t,
		dir:         dir,
		name:        sanitize(commonName),
		Key:         key,
		Certificate: cert,
	}
	kp.CertPath = kp.write(".cer", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
	kp.KeyPath = kp.write(".key", pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
	return kp
}

// CertificatePEM returns the PEM encoded certificate.
func (kp *KeyPair) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: kp.Certificate.Raw})
}

// WriteCertificateDER writes the certificate in binary DER form.
func (kp *KeyPair) WriteCertificateDER() string {
	return kp.write(".der", kp.Certificate.Raw)
}

// WritePKCS8Key writes the key as an unencrypted PKCS#8 PEM block.
func (kp *KeyPair) WritePKCS8Key() string {
	der, err := x509.MarshalPKCS8PrivateKey(kp.Key)
	if err != nil {
		kp.t.Fatalf("failed to marshal PKCS#8 key: %v", err)
	}
	return kp.write(".pk8", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// WriteEncryptedKey writes the key as a legacy password protected PEM block
// (Proc-Type/DEK-Info headers), the format produced by openssl genrsa -aes128.
func (kp *KeyPair) WriteEncryptedKey(password string) string {
	//nolint:staticcheck
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY",
		x509.MarshalPKCS1PrivateKey(kp.Key), []byte(password), x509.PEMCipherAES128)
	if err != nil {
		kp.t.Fatalf("failed to encrypt key: %v", err)
	}
	return kp.write(".enc.key", pem.EncodeToMemory(block))
}

// WritePKCS12 writes key and certificate as a PKCS#12 bundle.
func (kp *KeyPair) WritePKCS12(password string) string {
	data, err := pkcs12.Encode(rand.Reader, kp.Key, kp.Certificate, nil, password)
	if err != nil {
		kp.t.Fatalf("failed to encode PKCS#12: %v", err)
	}
	return kp.write(".p12", data)
}

func (kp *KeyPair) write(suffix string, data []byte) string {
	path := filepath.Join(kp.dir, kp.name+suffix)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		kp.t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "cert"
	}
	return string(out)
}

// generateSelfSignedCert creates a self-signed certificate for signing.
func generateSelfSignedCert(commonName string) (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"Test"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, nil, fmt.Errorf("parse certificate: %w", err)
	}

	return key, cert, nil
}
