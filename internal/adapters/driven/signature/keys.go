package signature

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
)

func keyLoadError(message string, cause error) *domain.AppError {
	return &domain.AppError{Code: domain.ErrCodeKeyLoadFailed, Message: message, Cause: cause}
}

// LoadKeyPair loads the merchant private key and its certificate.
// keyPath may be a PEM key file or a PKCS#12 bundle (.p12, .pfx); for
// bundles certPath may be empty and the bundled certificate is used.
func LoadKeyPair(certPath, keyPath, password string) (*rsa.PrivateKey, *x509.Certificate, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, keyLoadError(fmt.Sprintf("cannot open key file %s", keyPath), err)
	}

	var (
		key  *rsa.PrivateKey
		cert *x509.Certificate
	)
	if isPKCS12(keyPath, data) {
		key, cert, err = decodePKCS12(data, password)
	} else {
		key, err = decodePEMKey(data, password)
	}
	if err != nil {
		return nil, nil, keyLoadError(fmt.Sprintf("cannot load private key %s", keyPath), err)
	}

	if certPath != "" {
		cert, err = LoadCertificate(certPath)
		if err != nil {
			return nil, nil, err
		}
	}
	if cert == nil {
		return nil, nil, &domain.AppError{
			Code:    domain.ErrCodeCertificateNotFound,
			Message: "no certificate configured for the private key",
		}
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok || pub.N.Cmp(key.N) != 0 || pub.E != key.E {
		return nil, nil, keyLoadError("private key does not match certificate", nil)
	}
	return key, cert, nil
}

func isPKCS12(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return true
	}
	block, _ := pem.Decode(data)
	return block == nil && len(data) > 0 && data[0] == 0x30
}

func decodePKCS12(data []byte, password string) (*rsa.PrivateKey, *x509.Certificate, error) {
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("decode PKCS#12: %w", err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("only RSA private keys are supported, got %T", priv)
	}
	return key, cert, nil
}

func decodePEMKey(data []byte, password string) (*rsa.PrivateKey, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("no private key found")
		}
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}
		if block.Type == "ENCRYPTED PRIVATE KEY" {
			return nil, errors.New("encrypted PKCS#8 keys are not supported, convert the key to PKCS#12 or traditional PEM")
		}

		der := block.Bytes
		if x509.IsEncryptedPEMBlock(block) {
			if password == "" {
				return nil, errors.New("key is encrypted but no password is configured")
			}
			var err error
			der, err = x509.DecryptPEMBlock(block, []byte(password))
			if err != nil {
				return nil, fmt.Errorf("decrypt key: %w", err)
			}
		}
		return parseRSAKey(der)
	}
}

func parseRSAKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("only RSA private keys are supported, got %T", parsed)
	}
	return key, nil
}
