package ports

import "github.com/beevik/etree"

// DocumentSigner adds an enveloped XML signature to an outgoing message.
// This is a port interface - implementations are adapters.
type DocumentSigner interface {
	// Sign appends a Signature element as the last child of the document
	// root. The document is modified in place.
	Sign(doc *etree.Document) error
}

// DocumentVerifier verifies the enveloped signature of an acquirer response.
// This is a port interface - implementations are adapters.
//
// The interface returns the parsed, verified document rather than just an
// error so the caller never re-parses untrusted bytes after verification.
type DocumentVerifier interface {
	// Verify parses data and validates its signature. It returns an error if
	// the signature is missing, the reference digest does not match or the
	// signature value does not verify against the trusted certificate.
	Verify(data []byte) (*etree.Document, error)
}
