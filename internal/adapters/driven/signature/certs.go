package signature

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
)

// LoadCertificate loads an X.509 certificate from a PEM or DER file.
// Acquirers ship their certificates as .cer files in either encoding.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.AppError{
			Code:    domain.ErrCodeCertificateNotFound,
			Message: fmt.Sprintf("cannot open certificate file %s", path),
			Cause:   err,
		}
	}

	cert, err := ParseCertificate(data)
	if err != nil {
		return nil, &domain.AppError{
			Code:    domain.ErrCodeCertificateNotValid,
			Message: fmt.Sprintf("error in certificate %s", path),
			Cause:   err,
		}
	}
	return cert, nil
}

// ParseCertificate parses the first CERTIFICATE block of PEM data, falling
// back to DER when the data holds no PEM block.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
	return x509.ParseCertificate(data)
}

// Fingerprint returns the key identifier iDEAL expects in KeyInfo/KeyName:
// the uppercase hex SHA-1 of the certificate's DER encoding.
func Fingerprint(path string) (string, error) {
	cert, err := LoadCertificate(path)
	if err != nil {
		return "", err
	}
	return FingerprintCertificate(cert), nil
}

// FingerprintCertificate computes the fingerprint of a parsed certificate.
// It only depends on the DER bytes, so PEM line wrapping does not matter.
func FingerprintCertificate(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
