package ports

import "github.com/beevik/etree"

// SchemaValidator validates a message document against an XML schema.
// This is a port interface - implementations are adapters.
type SchemaValidator interface {
	// Validate returns an error describing the first violations found.
	Validate(doc *etree.Document) error
}
