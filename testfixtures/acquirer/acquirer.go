// Package acquirer provides a fake iDEAL acquirer for testing. It verifies
// the merchant signature on incoming requests and answers with responses
// signed by its own generated key, using the same signature adapter as the
// client.
package acquirer

import (
	"context"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"

	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/message"
	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/signature"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
	"github.com/juriansluiman/slm-ideal-payment/testfixtures/certs"
)

// AcquirerID is the acquirer identity reported in every response.
const AcquirerID = "0050"

// Issuer is a directory entry served by the fake acquirer.
type Issuer struct {
	Country string
	ID      string
	Name    string
}

// DefaultIssuers is the directory served unless SetIssuers is called.
var DefaultIssuers = []Issuer{
	{Country: "Netherlands", ID: "INGBNL2A", Name: "Issuing Bank"},
}

type transaction struct {
	purchaseID string
	amount     string
	currency   string
}

// TestAcquirer is a fake iDEAL acquirer. It can be used directly as a
// transport (Post) or served over HTTP (Start).
type TestAcquirer struct {
	t        testing.TB
	keys     *certs.KeyPair
	verifier *signature.XMLDsigVerifier
	server   *httptest.Server

	mu           sync.Mutex
	signer       *signature.XMLDsigSigner
	issuers      []Issuer
	status       string
	failure      *domain.BusinessError
	tamper       bool
	raw          []byte
	requests     []*etree.Document
	transactions map[string]transaction
	nextID       int
}

// New creates a fake acquirer that trusts the merchant certificate at
// merchantCertPath. Its own certificate is available from CertPath.
func New(t testing.TB, merchantCertPath string) *TestAcquirer {
	t.Helper()

	keys := certs.New(t, "Test Acquirer")
	return &TestAcquirer{
		t:            t,
		keys:         keys,
		verifier:     signature.NewXMLDsigVerifier(merchantCertPath),
		signer:       signature.NewXMLDsigSigner(keys.CertPath, keys.KeyPath, ""),
		issuers:      DefaultIssuers,
		status:       string(domain.StatusSuccess),
		transactions: make(map[string]transaction),
	}
}

// CertPath returns the path of the certificate responses are signed with.
func (a *TestAcquirer) CertPath() string {
	return a.keys.CertPath
}

// Start serves the acquirer over HTTP. The server is closed on test
// cleanup.
func (a *TestAcquirer) Start() string {
	a.t.Helper()
	if a.server == nil {
		a.server = httptest.NewServer(a)
		a.t.Cleanup(a.Close)
	}
	return a.server.URL
}

// StartTLS serves the acquirer over HTTPS and returns the URL and the path
// of a PEM file holding the server certificate.
func (a *TestAcquirer) StartTLS() (url, caPath string) {
	a.t.Helper()
	if a.server == nil {
		a.server = httptest.NewTLSServer(a)
		a.t.Cleanup(a.Close)
	}
	caPath = filepath.Join(a.t.TempDir(), "acquirer-ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: a.server.Certificate().Raw}
	if err := os.WriteFile(caPath, pem.EncodeToMemory(block), 0o600); err != nil {
		a.t.Fatalf("failed to write CA certificate: %v", err)
	}
	return a.server.URL, caPath
}

// URL returns the base URL of the running server.
func (a *TestAcquirer) URL() string {
	if a.server == nil {
		return ""
	}
	return a.server.URL
}

// Close shuts down the HTTP server, if started.
func (a *TestAcquirer) Close() {
	if a.server != nil {
		a.server.Close()
	}
}

// SetIssuers replaces the directory.
func (a *TestAcquirer) SetIssuers(issuers []Issuer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issuers = issuers
}

// SetStatus sets the status reported for every status request.
func (a *TestAcquirer) SetStatus(status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
}

// FailWith makes every following request answer with an error message.
// A nil err restores normal responses.
func (a *TestAcquirer) FailWith(err *domain.BusinessError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failure = err
}

// SignWith signs responses with kp instead of the acquirer's own key.
func (a *TestAcquirer) SignWith(kp *certs.KeyPair) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signer = signature.NewXMLDsigSigner(kp.CertPath, kp.KeyPath, "")
}

// Tamper alters signed responses after signing.
func (a *TestAcquirer) Tamper(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tamper = enabled
}

// RespondWith answers every request with data, bypassing signing.
func (a *TestAcquirer) RespondWith(data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raw = data
}

// Requests returns the verified request documents received so far.
func (a *TestAcquirer) Requests() []*etree.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*etree.Document(nil), a.requests...)
}

// Post implements the client transport without a network round trip.
func (a *TestAcquirer) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.HTTPRequestError("post to "+url, err)
	}
	return a.Respond(body)
}

// ServeHTTP answers POSTed requests. Requests that fail signature
// verification get a 400 status.
func (a *TestAcquirer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		http.Error(w, "unsupported content type "+ct, http.StatusUnsupportedMediaType)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := a.Respond(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	_, _ = w.Write(data)
}

// Respond verifies a signed request and returns the signed response.
func (a *TestAcquirer) Respond(body []byte) ([]byte, error) {
	req, err := a.verifier.Verify(body)
	if err != nil {
		return nil, fmt.Errorf("request signature: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, req)
	if a.raw != nil {
		return a.raw, nil
	}

	root := req.Root()
	var doc *etree.Document
	switch {
	case a.failure != nil:
		doc = a.errorResponse(root)
	case root.Tag == "DirectoryReq":
		doc = a.directoryResponse(root)
	case root.Tag == "AcquirerTrxReq":
		doc = a.transactionResponse(root)
	case root.Tag == "AcquirerStatusReq":
		doc = a.statusResponse(root)
	default:
		return nil, fmt.Errorf("unsupported request %s", root.Tag)
	}

	if err := a.signer.Sign(doc); err != nil {
		return nil, fmt.Errorf("sign response: %w", err)
	}
	if a.tamper {
		if ts := doc.Root().SelectElement("createDateTimestamp"); ts != nil {
			ts.SetText("2001-01-01T00:00:00.000Z")
		}
	}
	return doc.WriteToBytes()
}

func newResponse(req *etree.Element, tag string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(tag)
	root.CreateAttr("xmlns", req.SelectAttrValue("xmlns", message.Protocol331.Namespace))
	root.CreateAttr("version", req.SelectAttrValue("version", message.Protocol331.Version))
	root.CreateElement("createDateTimestamp").SetText(now())
	return doc, root
}

func addAcquirer(root *etree.Element) {
	root.CreateElement("Acquirer").CreateElement("acquirerID").SetText(AcquirerID)
}

func (a *TestAcquirer) errorResponse(req *etree.Element) *etree.Document {
	doc, root := newResponse(req, "AcquirerErrorRes")
	el := root.CreateElement("Error")
	el.CreateElement("errorCode").SetText(a.failure.Code)
	el.CreateElement("errorMessage").SetText(a.failure.Message)
	optional := []struct{ tag, value string }{
		{"errorDetail", a.failure.Detail},
		{"suggestedAction", a.failure.SuggestedAction},
		{"consumerMessage", a.failure.ConsumerMessage},
	}
	for _, o := range optional {
		if o.value != "" {
			el.CreateElement(o.tag).SetText(o.value)
		}
	}
	return doc
}

func (a *TestAcquirer) directoryResponse(req *etree.Element) *etree.Document {
	doc, root := newResponse(req, "DirectoryRes")
	addAcquirer(root)
	dir := root.CreateElement("Directory")
	dir.CreateElement("directoryDateTimestamp").SetText(now())

	var country *etree.Element
	current := ""
	for _, iss := range a.issuers {
		if country == nil || iss.Country != current {
			country = dir.CreateElement("Country")
			country.CreateElement("countryNames").SetText(iss.Country)
			current = iss.Country
		}
		issuer := country.CreateElement("Issuer")
		issuer.CreateElement("issuerID").SetText(iss.ID)
		issuer.CreateElement("issuerName").SetText(iss.Name)
	}
	return doc
}

func (a *TestAcquirer) transactionResponse(req *etree.Element) *etree.Document {
	a.nextID++
	id := fmt.Sprintf("%s%012d", AcquirerID, a.nextID)
	trx := req.SelectElement("Transaction")
	a.transactions[id] = transaction{
		purchaseID: childText(trx, "purchaseID"),
		amount:     childText(trx, "amount"),
		currency:   childText(trx, "currency"),
	}

	doc, root := newResponse(req, "AcquirerTrxRes")
	addAcquirer(root)
	root.CreateElement("Issuer").CreateElement("issuerAuthenticationURL").
		SetText("https://issuer.example.com/authenticate?trxid=" + id)
	out := root.CreateElement("Transaction")
	out.CreateElement("transactionID").SetText(id)
	out.CreateElement("transactionCreateDateTimestamp").SetText(now())
	out.CreateElement("purchaseID").SetText(a.transactions[id].purchaseID)
	return doc
}

func (a *TestAcquirer) statusResponse(req *etree.Element) *etree.Document {
	id := childText(req.SelectElement("Transaction"), "transactionID")

	doc, root := newResponse(req, "AcquirerStatusRes")
	addAcquirer(root)
	out := root.CreateElement("Transaction")
	out.CreateElement("transactionID").SetText(id)
	out.CreateElement("status").SetText(a.status)
	out.CreateElement("statusDateTimestamp").SetText(now())
	if a.status == string(domain.StatusSuccess) {
		out.CreateElement("consumerName").SetText("J. Janssen")
		out.CreateElement("consumerIBAN").SetText("NL44RABO0123456789")
		out.CreateElement("consumerBIC").SetText("RABONL2U")
	}
	if trx, ok := a.transactions[id]; ok {
		out.CreateElement("amount").SetText(trx.amount)
		out.CreateElement("currency").SetText(trx.currency)
	}
	return doc
}

func childText(el *etree.Element, tag string) string {
	if el == nil {
		return ""
	}
	if child := el.SelectElement(tag); child != nil {
		return child.Text()
	}
	return ""
}

func now() string {
	return time.Now().UTC().Format(message.TimestampLayout)
}
