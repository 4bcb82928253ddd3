package message

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
)

// Parser classifies verified response documents. Element lookups ignore
// namespace prefixes so 3.3.1 and legacy responses share the same paths.
type Parser struct{}

// NewParser creates a response classifier.
func NewParser() *Parser {
	return &Parser{}
}

// Classify turns doc into the typed response for kind. Signature elements
// under the root are skipped. An <Error> element anywhere else takes
// precedence over every other check and is returned as a
// *domain.BusinessError. A root element that does not match kind is an
// ErrUnexpectedRootElement.
func (p *Parser) Classify(kind domain.RequestKind, doc *etree.Document) (domain.Response, error) {
	if doc == nil || doc.Root() == nil {
		return nil, domain.MalformedResponseError("response has no root element", nil)
	}
	root := withoutSignature(doc.Root())

	if errEl := root.FindElement(".//Error"); errEl != nil {
		return nil, businessError(errEl)
	}

	if expected := kind.ResponseElement(); root.Tag != expected {
		return nil, &domain.AppError{
			Code:    domain.ErrCodeUnexpectedRootElement,
			Message: fmt.Sprintf("expecting %s as root element in response, got %s", expected, root.Tag),
		}
	}

	switch kind {
	case domain.KindDirectory:
		return parseDirectory(root)
	case domain.KindTransaction:
		return parseTransaction(root)
	case domain.KindStatus:
		return parseStatus(root)
	default:
		return nil, domain.InvalidRequestError(fmt.Sprintf("unsupported request kind %d", kind))
	}
}

// withoutSignature returns root, or a copy of it without Signature children
// when it still carries one.
func withoutSignature(root *etree.Element) *etree.Element {
	if root.SelectElement("Signature") == nil {
		return root
	}
	content := root.Copy()
	for _, sig := range content.SelectElements("Signature") {
		content.RemoveChild(sig)
	}
	return content
}

func businessError(el *etree.Element) *domain.BusinessError {
	return &domain.BusinessError{
		Code:            text(el, "errorCode"),
		Message:         text(el, "errorMessage"),
		Detail:          text(el, "errorDetail"),
		SuggestedAction: text(el, "suggestedAction"),
		ConsumerMessage: text(el, "consumerMessage"),
	}
}

func parseDirectory(root *etree.Element) (*domain.DirectoryResponse, error) {
	resp := &domain.DirectoryResponse{AcquirerID: text(root, "acquirerID")}

	var err error
	if resp.CreatedAt, err = timestamp(root, "createDateTimestamp"); err != nil {
		return nil, err
	}
	if resp.DirectoryTimestamp, err = timestamp(root, "directoryDateTimestamp"); err != nil {
		return nil, err
	}

	for _, c := range root.FindElements(".//Country") {
		country := domain.Country{
			Name: text(c, "countryNames"),
			Code: text(c, "countryIOS"),
		}
		for _, i := range c.SelectElements("Issuer") {
			issuer, err := parseIssuer(i)
			if err != nil {
				return nil, err
			}
			country.Issuers = append(country.Issuers, issuer)
		}
		resp.Countries = append(resp.Countries, country)
	}
	if len(resp.Countries) > 0 {
		return resp, nil
	}

	// Legacy directories list issuers without country grouping.
	var legacy domain.Country
	for _, i := range root.FindElements(".//Issuer") {
		issuer, err := parseIssuer(i)
		if err != nil {
			return nil, err
		}
		legacy.Issuers = append(legacy.Issuers, issuer)
	}
	if len(legacy.Issuers) > 0 {
		resp.Countries = []domain.Country{legacy}
	}
	return resp, nil
}

func parseIssuer(el *etree.Element) (domain.Issuer, error) {
	id, err := required(el, "issuerID")
	if err != nil {
		return domain.Issuer{}, err
	}
	return domain.Issuer{
		ID:   id,
		Name: text(el, "issuerName"),
		List: domain.IssuerList(text(el, "issuerList")),
	}, nil
}

func parseTransaction(root *etree.Element) (*domain.TransactionResponse, error) {
	authURL, err := required(root, "issuerAuthenticationURL")
	if err != nil {
		return nil, err
	}
	trxID, err := required(root, "transactionID")
	if err != nil {
		return nil, err
	}
	created, err := timestamp(root, "transactionCreateDateTimestamp")
	if err != nil {
		return nil, err
	}

	return &domain.TransactionResponse{
		AcquirerID:        text(root, "acquirerID"),
		AuthenticationURL: authURL,
		Transaction: &domain.Transaction{
			TransactionID: trxID,
			PurchaseID:    text(root, "purchaseID"),
			CreatedAt:     created,
			Status:        domain.StatusUnknown,
		},
	}, nil
}

func parseStatus(root *etree.Element) (*domain.StatusResponse, error) {
	trxID, err := required(root, "transactionID")
	if err != nil {
		return nil, err
	}
	code, err := required(root, "status")
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseStatus(code)
	if err != nil {
		return nil, err
	}
	statusAt, err := timestamp(root, "statusDateTimestamp")
	if err != nil {
		return nil, err
	}

	trx := &domain.Transaction{
		TransactionID:   trxID,
		PurchaseID:      text(root, "purchaseID"),
		Currency:        text(root, "currency"),
		Status:          status,
		StatusTimestamp: statusAt,
	}
	if raw := text(root, "amount"); raw != "" {
		amount, err := domain.ParseAmount(raw)
		if err != nil {
			return nil, domain.MalformedResponseError("invalid amount in status response", err)
		}
		trx.Amount = amount
	}

	consumer := domain.Consumer{
		Name: text(root, "consumerName"),
		IBAN: text(root, "consumerIBAN"),
		BIC:  text(root, "consumerBIC"),
	}
	if consumer != (domain.Consumer{}) {
		trx.SetConsumer(consumer)
	}

	return &domain.StatusResponse{
		AcquirerID:  text(root, "acquirerID"),
		Transaction: trx,
	}, nil
}

// text returns the trimmed text of the first descendant named tag.
func text(el *etree.Element, tag string) string {
	found := el.FindElement(".//" + tag)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

func required(el *etree.Element, tag string) (string, error) {
	v := text(el, tag)
	if v == "" {
		return "", domain.MalformedResponseError(fmt.Sprintf("missing %s in %s", tag, el.Tag), nil)
	}
	return v, nil
}

// timestamp parses an optional ISO 8601 timestamp. Absent values yield the
// zero time.
func timestamp(el *etree.Element, tag string) (time.Time, error) {
	v := text(el, tag)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, domain.MalformedResponseError(fmt.Sprintf("invalid %s %q", tag, v), err)
	}
	return t, nil
}
