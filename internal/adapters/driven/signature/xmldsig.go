package signature

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/ports"
)

// Algorithm identifiers accepted on iDEAL messages.
const (
	algExcC14N            = "http://www.w3.org/2001/10/xml-exc-c14n#"
	algEnvelopedSignature = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	algSHA256             = "http://www.w3.org/2001/04/xmlenc#sha256"
	algRSASHA256          = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
)

// algorithmURIToName maps XML DSig algorithm URIs to human-readable names.
var algorithmURIToName = map[string]string{
	"http://www.w3.org/2000/09/xmldsig#rsa-sha1":        "RSA-SHA1",
	"http://www.w3.org/2001/04/xmldsig-more#rsa-sha256": "RSA-SHA256",
	"http://www.w3.org/2001/04/xmldsig-more#rsa-sha512": "RSA-SHA512",
	"http://www.w3.org/2000/09/xmldsig#sha1":            "SHA1",
	"http://www.w3.org/2001/04/xmlenc#sha256":           "SHA256",
	"http://www.w3.org/2001/04/xmlenc#sha512":           "SHA512",
}

// algorithmName converts an XML DSig algorithm URI to a human-readable name.
// Returns the URI unchanged if not recognized.
func algorithmName(uri string) string {
	if name, ok := algorithmURIToName[uri]; ok {
		return name
	}
	return uri
}

// XMLDsigSigner signs outgoing iDEAL messages using goxmldsig.
// The key pair is read from disk on every Sign call.
type XMLDsigSigner struct {
	certificatePath string
	keyPath         string
	keyPassword     string
	logger          *zap.Logger
}

// NewXMLDsigSigner creates a signer for the merchant certificate and key.
// keyPassword may be empty for unencrypted keys.
func NewXMLDsigSigner(certificatePath, keyPath, keyPassword string, opts ...Option) *XMLDsigSigner {
	o := applyOptions(opts)
	return &XMLDsigSigner{
		certificatePath: certificatePath,
		keyPath:         keyPath,
		keyPassword:     keyPassword,
		logger:          o.logger,
	}
}

// Sign adds an enveloped signature over the whole document: exclusive C14N,
// SHA-256 digest with URI="" and RSA-SHA256. KeyInfo carries the certificate
// fingerprint as KeyName instead of the certificate itself.
func (s *XMLDsigSigner) Sign(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return errors.New("empty XML document")
	}

	key, cert, err := LoadKeyPair(s.certificatePath, s.keyPath, s.keyPassword)
	if err != nil {
		return err
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
	}
	signingContext := dsig.NewDefaultSigningContext(dsig.TLSCertKeyStore(tlsCert))
	signingContext.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")
	if err := signingContext.SetSignatureMethod(dsig.RSASHA256SignatureMethod); err != nil {
		return fmt.Errorf("set signature method: %w", err)
	}

	signedRoot, err := signingContext.SignEnveloped(doc.Root())
	if err != nil {
		return fmt.Errorf("sign XML: %w", err)
	}

	sig := signatureElement(signedRoot)
	if sig == nil {
		return errors.New("sign XML: signature element missing")
	}
	fingerprint := FingerprintCertificate(cert)
	setKeyName(sig, fingerprint)

	doc.SetRoot(signedRoot)

	if s.logger != nil {
		s.logger.Debug("message signed",
			zap.String("root", signedRoot.Tag),
			zap.String("key_name", fingerprint),
		)
	}
	return nil
}

// setKeyName replaces the KeyInfo contents with a single KeyName element.
// KeyInfo is outside SignedInfo, so this does not affect the signature value.
func setKeyName(sig *etree.Element, name string) {
	keyInfo := sig.SelectElement("KeyInfo")
	if keyInfo == nil {
		keyInfo = sig.CreateElement(qualified(sig.Space, "KeyInfo"))
	}
	for _, child := range keyInfo.ChildElements() {
		keyInfo.RemoveChild(child)
	}
	keyInfo.CreateElement(qualified(sig.Space, "KeyName")).SetText(name)
}

// XMLDsigVerifier verifies enveloped signatures on acquirer responses.
// The trusted certificate is configured out of band per acquirer; key
// identifiers embedded in the response are never used to pick a key.
type XMLDsigVerifier struct {
	certificatePath string
	logger          *zap.Logger
}

// NewXMLDsigVerifier creates a verifier trusting the certificate at path.
func NewXMLDsigVerifier(certificatePath string, opts ...Option) *XMLDsigVerifier {
	o := applyOptions(opts)
	return &XMLDsigVerifier{
		certificatePath: certificatePath,
		logger:          o.logger,
	}
}

// Verify parses data and validates its signature. The returned document
// holds only the signed content: a copy of the root without its Signature
// element, so nothing from KeyInfo or Object can reach the caller.
func (v *XMLDsigVerifier) Verify(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, domain.MalformedResponseError("failed to parse response XML", err)
	}
	if doc.Root() == nil {
		return nil, domain.MalformedResponseError("empty XML document", nil)
	}

	if err := v.VerifyDocument(doc); err != nil {
		return nil, err
	}
	verified := etree.NewDocument()
	verified.SetRoot(signedContent(doc.Root()))
	return verified, nil
}

// signedContent returns a copy of root without its Signature child. This is
// the element the reference digest is computed over.
func signedContent(root *etree.Element) *etree.Element {
	content := root.Copy()
	if sig := signatureElement(content); sig != nil {
		content.RemoveChild(sig)
	}
	return content
}

// VerifyDocument validates the signature of an already parsed document.
// Checks run in order: signature presence, reference digest, key
// resolution, signature value. The first failure aborts.
func (v *XMLDsigVerifier) VerifyDocument(doc *etree.Document) error {
	root := doc.Root()
	if root == nil {
		return domain.MalformedResponseError("empty XML document", nil)
	}

	sig, err := locateSignature(root)
	if err != nil {
		return err
	}

	signedInfo := sig.SelectElement("SignedInfo")
	if signedInfo == nil {
		return &domain.AppError{
			Code:    domain.ErrCodeSignatureInvalid,
			Message: "signature has no SignedInfo",
		}
	}

	if err := validateReference(root, signedInfo); err != nil {
		return err
	}

	cert, err := LoadCertificate(v.certificatePath)
	if err != nil {
		return err
	}
	v.checkKeyName(sig, cert)

	if err := validateSignatureValue(sig, signedInfo, cert); err != nil {
		return err
	}

	if v.logger != nil {
		v.logger.Debug("response signature verified",
			zap.String("root", root.Tag),
			zap.String("algorithm", algorithmName(algRSASHA256)),
			zap.String("cert_subject", cert.Subject.String()),
			zap.Time("cert_expiry", cert.NotAfter),
		)
	}
	return nil
}

// checkKeyName logs when the KeyName in the response does not match the
// configured certificate. It never influences the verification result.
func (v *XMLDsigVerifier) checkKeyName(sig *etree.Element, cert *x509.Certificate) {
	if v.logger == nil {
		return
	}
	keyName := sig.FindElement("./KeyInfo/KeyName")
	if keyName == nil {
		return
	}
	expected := FingerprintCertificate(cert)
	if got := strings.TrimSpace(keyName.Text()); !strings.EqualFold(got, expected) {
		v.logger.Warn("response KeyName does not match configured acquirer certificate",
			zap.String("key_name", got),
			zap.String("expected", expected),
		)
	}
}

// locateSignature returns the single XML DSig Signature child of root.
func locateSignature(root *etree.Element) (*etree.Element, error) {
	var found *etree.Element
	for _, child := range root.ChildElements() {
		if child.Tag != "Signature" || namespaceOf(child) != dsig.Namespace {
			continue
		}
		if found != nil {
			return nil, &domain.AppError{
				Code:    domain.ErrCodeSignatureInvalid,
				Message: "document contains more than one signature",
			}
		}
		found = child
	}
	if found == nil {
		return nil, &domain.AppError{
			Code:    domain.ErrCodeSignatureNotFound,
			Message: "cannot locate signature node",
		}
	}
	return found, nil
}

// signatureElement returns the Signature child of root, or nil.
func signatureElement(root *etree.Element) *etree.Element {
	sig, err := locateSignature(root)
	if err != nil {
		return nil
	}
	return sig
}

func referenceError(message string, cause error) *domain.AppError {
	return &domain.AppError{Code: domain.ErrCodeReferenceInvalid, Message: message, Cause: cause}
}

// validateReference recomputes the digest of the document without its
// signature and compares it with the DigestValue.
func validateReference(root, signedInfo *etree.Element) error {
	refs := signedInfo.SelectElements("Reference")
	if len(refs) != 1 {
		return referenceError(fmt.Sprintf("expected exactly one reference, found %d", len(refs)), nil)
	}
	ref := refs[0]

	if uri := ref.SelectAttrValue("URI", ""); uri != "" {
		return referenceError(fmt.Sprintf("reference %q does not cover the whole document", uri), nil)
	}

	enveloped := false
	if transforms := ref.SelectElement("Transforms"); transforms != nil {
		for _, t := range transforms.SelectElements("Transform") {
			switch alg := t.SelectAttrValue("Algorithm", ""); alg {
			case algEnvelopedSignature:
				enveloped = true
			case algExcC14N:
			default:
				return referenceError(fmt.Sprintf("unsupported transform %s", alg), nil)
			}
		}
	}
	if !enveloped {
		return referenceError("reference lacks the enveloped-signature transform", nil)
	}

	digestMethod := ref.SelectElement("DigestMethod")
	if digestMethod == nil || digestMethod.SelectAttrValue("Algorithm", "") != algSHA256 {
		return referenceError("unsupported digest method", nil)
	}

	digestValue := ref.SelectElement("DigestValue")
	if digestValue == nil {
		return referenceError("reference has no DigestValue", nil)
	}
	expected, err := decodeBase64(digestValue.Text())
	if err != nil {
		return referenceError("invalid DigestValue", err)
	}

	canonical, err := exclusiveC14N(signedContent(root))
	if err != nil {
		return referenceError("canonicalize document", err)
	}
	digest := sha256.Sum256(canonical)
	if !bytes.Equal(digest[:], expected) {
		return referenceError("reference validation failed: digest mismatch", nil)
	}
	return nil
}

// validateSignatureValue checks the RSA-SHA256 signature over the
// canonical SignedInfo.
func validateSignatureValue(sig, signedInfo *etree.Element, cert *x509.Certificate) error {
	invalid := func(message string, cause error) error {
		return &domain.AppError{Code: domain.ErrCodeSignatureInvalid, Message: message, Cause: cause}
	}

	cm := signedInfo.SelectElement("CanonicalizationMethod")
	if cm == nil || cm.SelectAttrValue("Algorithm", "") != algExcC14N {
		return invalid("unsupported canonicalization method", nil)
	}
	sm := signedInfo.SelectElement("SignatureMethod")
	if sm == nil || sm.SelectAttrValue("Algorithm", "") != algRSASHA256 {
		return invalid("unsupported signature method", nil)
	}

	sigValue := sig.SelectElement("SignatureValue")
	if sigValue == nil {
		return invalid("signature has no SignatureValue", nil)
	}
	raw, err := decodeBase64(sigValue.Text())
	if err != nil {
		return invalid("invalid SignatureValue", err)
	}

	// SignedInfo inherits its namespace from Signature; declare it on the
	// detached copy so the canonical form matches what the signer hashed.
	detached := signedInfo.Copy()
	nsAttr := "xmlns"
	if signedInfo.Space != "" {
		nsAttr += ":" + signedInfo.Space
	}
	if detached.SelectAttr(nsAttr) == nil {
		detached.CreateAttr(nsAttr, namespaceOf(signedInfo))
	}
	canonical, err := exclusiveC14N(detached)
	if err != nil {
		return invalid("canonicalize SignedInfo", err)
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return invalid(fmt.Sprintf("certificate key type %T is not RSA", cert.PublicKey), nil)
	}
	hashed := sha256.Sum256(canonical)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed[:], raw); err != nil {
		return invalid("signature verification failed", err)
	}
	return nil
}

// exclusiveC14N canonicalizes el in place; callers pass copies.
func exclusiveC14N(el *etree.Element) ([]byte, error) {
	return dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("").Canonicalize(el)
}

// namespaceOf resolves the namespace URI bound to el's prefix by walking the
// ancestor chain.
func namespaceOf(el *etree.Element) string {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if el.Space == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if el.Space != "" && a.Space == "xmlns" && a.Key == el.Space {
				return a.Value
			}
		}
	}
	return ""
}

func qualified(space, tag string) string {
	if space == "" {
		return tag
	}
	return space + ":" + tag
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
}

// Ensure implementations satisfy interfaces
var _ ports.DocumentSigner = (*XMLDsigSigner)(nil)
var _ ports.DocumentVerifier = (*XMLDsigVerifier)(nil)
