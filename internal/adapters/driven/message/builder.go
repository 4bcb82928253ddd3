// Package message builds iDEAL request documents and classifies verified
// response documents into domain values.
package message

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
)

// TimestampLayout is the createDateTimestamp format. Milliseconds are always
// zero because timestamps are truncated to the second.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Protocol is the namespace and version stamped on every request root.
type Protocol struct {
	Namespace string
	Version   string
}

var (
	// Protocol331 is the current merchant-acquirer protocol.
	Protocol331 = Protocol{
		Namespace: "http://www.idealdesk.com/ideal/messages/mer-acq/3.3.1",
		Version:   "3.3.1",
	}

	// ProtocolLegacy is the 1.1.0 message format.
	ProtocolLegacy = Protocol{
		Namespace: "http://www.idealdesk.com/Message",
		Version:   "1.1.0",
	}
)

// ProtocolForVersion returns the protocol for a configured version string.
// An empty version selects Protocol331.
func ProtocolForVersion(version string) (Protocol, error) {
	switch version {
	case "", Protocol331.Version:
		return Protocol331, nil
	case ProtocolLegacy.Version:
		return ProtocolLegacy, nil
	}
	return Protocol{}, domain.ConfigError(fmt.Sprintf("unsupported protocol version %q", version))
}

// Clock provides time functionality for testing.
type Clock interface {
	Now() time.Time
}

// RealClock uses the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Builder creates unsigned request documents.
type Builder struct {
	protocol Protocol
	clock    Clock
}

// NewBuilder creates a builder for protocol. A nil clock uses RealClock.
func NewBuilder(protocol Protocol, clock Clock) *Builder {
	if clock == nil {
		clock = RealClock{}
	}
	return &Builder{protocol: protocol, clock: clock}
}

// Build creates the unsigned document for req. Required fields are checked
// here so invalid requests never reach the signer or the network.
func (b *Builder) Build(req domain.Request) (*etree.Document, error) {
	switch r := req.(type) {
	case domain.DirectoryRequest:
		return b.buildDirectory(r)
	case *domain.DirectoryRequest:
		return b.buildDirectory(*r)
	case domain.TransactionRequest:
		return b.buildTransaction(r)
	case *domain.TransactionRequest:
		return b.buildTransaction(*r)
	case domain.StatusRequest:
		return b.buildStatus(r)
	case *domain.StatusRequest:
		return b.buildStatus(*r)
	default:
		return nil, domain.InvalidRequestError(fmt.Sprintf("unsupported request type %T", req))
	}
}

func (b *Builder) buildDirectory(r domain.DirectoryRequest) (*etree.Document, error) {
	if err := checkMerchant(r.Merchant); err != nil {
		return nil, err
	}
	doc, root := b.newDocument(domain.KindDirectory)
	addMerchant(root, r.Merchant)
	return doc, nil
}

func (b *Builder) buildTransaction(r domain.TransactionRequest) (*etree.Document, error) {
	if err := checkMerchant(r.Merchant); err != nil {
		return nil, err
	}
	t := r.Transaction
	switch {
	case r.IssuerID == "":
		return nil, domain.InvalidRequestError("issuer id is required")
	case r.ReturnURL == "":
		return nil, domain.InvalidRequestError("return URL is required")
	case t.PurchaseID == "":
		return nil, domain.InvalidRequestError("purchase id is required")
	case t.Amount <= 0:
		return nil, domain.InvalidRequestError(fmt.Sprintf("amount must be positive, got %d", t.Amount))
	case t.EntranceCode == "":
		return nil, domain.InvalidRequestError("entrance code is required")
	}

	currency := t.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	language := t.Language
	if language == "" {
		language = domain.DefaultLanguage
	}

	doc, root := b.newDocument(domain.KindTransaction)
	root.CreateElement("Issuer").CreateElement("issuerID").SetText(r.IssuerID)

	merchant := addMerchant(root, r.Merchant)
	merchant.CreateElement("merchantReturnURL").SetText(r.ReturnURL)

	trx := root.CreateElement("Transaction")
	trx.CreateElement("purchaseID").SetText(t.PurchaseID)
	trx.CreateElement("amount").SetText(t.Amount.String())
	trx.CreateElement("currency").SetText(currency)
	if t.ExpirationPeriod > 0 {
		trx.CreateElement("expirationPeriod").SetText(domain.FormatDuration(t.ExpirationPeriod))
	}
	trx.CreateElement("language").SetText(language)
	trx.CreateElement("description").SetText(t.Description)
	trx.CreateElement("entranceCode").SetText(t.EntranceCode)
	return doc, nil
}

func (b *Builder) buildStatus(r domain.StatusRequest) (*etree.Document, error) {
	if err := checkMerchant(r.Merchant); err != nil {
		return nil, err
	}
	if r.TransactionID == "" {
		return nil, domain.InvalidRequestError("transaction id is required")
	}
	doc, root := b.newDocument(domain.KindStatus)
	addMerchant(root, r.Merchant)
	root.CreateElement("Transaction").CreateElement("transactionID").SetText(r.TransactionID)
	return doc, nil
}

// newDocument creates the document, its namespaced root and the timestamp.
func (b *Builder) newDocument(kind domain.RequestKind) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(kind.RequestElement())
	root.CreateAttr("xmlns", b.protocol.Namespace)
	root.CreateAttr("version", b.protocol.Version)
	root.CreateElement("createDateTimestamp").SetText(b.timestamp())
	return doc, root
}

func (b *Builder) timestamp() string {
	return b.clock.Now().UTC().Truncate(time.Second).Format(TimestampLayout)
}

func addMerchant(root *etree.Element, m domain.Merchant) *etree.Element {
	subID := m.SubID
	if subID == "" {
		subID = "0"
	}
	merchant := root.CreateElement("Merchant")
	merchant.CreateElement("merchantID").SetText(m.ID)
	merchant.CreateElement("subID").SetText(subID)
	return merchant
}

func checkMerchant(m domain.Merchant) error {
	if m.ID == "" {
		return domain.InvalidRequestError("merchant id is required")
	}
	return nil
}
