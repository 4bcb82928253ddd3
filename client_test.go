//go:build unit

package ideal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/signature"
	"github.com/juriansluiman/slm-ideal-payment/testfixtures/certs"
)

type transportFunc func(ctx context.Context, url string, body []byte) ([]byte, error)

func (f transportFunc) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	return f(ctx, url, body)
}

// signedBy signs xml with kp, as an acquirer would.
func signedBy(t *testing.T, kp *certs.KeyPair, xml string) []byte {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		t.Fatal(err)
	}
	if err := signature.NewXMLDsigSigner(kp.CertPath, kp.KeyPath, "").Sign(doc); err != nil {
		t.Fatal(err)
	}
	data, err := doc.WriteToBytes()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func lastRequest(t *testing.T, env *testEnv) *etree.Element {
	t.Helper()
	reqs := env.acquirer.Requests()
	if len(reqs) == 0 {
		t.Fatal("acquirer received no request")
	}
	return reqs[len(reqs)-1].Root()
}

func elementText(root *etree.Element, path string) string {
	if el := root.FindElement(path); el != nil {
		return el.Text()
	}
	return ""
}

func newTransactionRequest() TransactionRequest {
	return TransactionRequest{
		IssuerID:    "INGBNL2A",
		ReturnURL:   "https://shop.example.com/return",
		Transaction: *NewTransaction("order1", 1000, "Test order"),
	}
}

func TestClient_SendDirectoryRequest(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, err := c.SendDirectoryRequest(context.Background())
	if err != nil {
		t.Fatalf("SendDirectoryRequest() error = %v", err)
	}

	if resp.AcquirerID != "0050" {
		t.Errorf("AcquirerID = %q, want 0050", resp.AcquirerID)
	}
	if len(resp.Countries) != 1 || resp.Countries[0].Name != "Netherlands" {
		t.Fatalf("Countries = %+v, want single Netherlands entry", resp.Countries)
	}
	issuers := resp.Countries[0].Issuers
	if len(issuers) != 1 || issuers[0].ID != "INGBNL2A" || issuers[0].Name != "Issuing Bank" {
		t.Errorf("Issuers = %+v, want INGBNL2A / Issuing Bank", issuers)
	}

	root := lastRequest(t, env)
	if root.Tag != "DirectoryReq" {
		t.Errorf("request root = %s, want DirectoryReq", root.Tag)
	}
	if got := elementText(root, "Merchant/merchantID"); got != "001234567" {
		t.Errorf("merchantID = %q, want 001234567", got)
	}
	if got := elementText(root, "Merchant/subID"); got != "0" {
		t.Errorf("subID = %q, want 0", got)
	}
	if got := elementText(root, "createDateTimestamp"); got != "2024-03-14T08:26:53.000Z" {
		t.Errorf("createDateTimestamp = %q", got)
	}

	reqs := env.metrics.GetRequests()
	if len(reqs) != 1 || reqs[0] != (RequestCall{"directory", "success"}) {
		t.Errorf("recorded requests = %+v", reqs)
	}
	if v := env.metrics.GetVerifications(); len(v) != 1 || !v[0] {
		t.Errorf("recorded verifications = %v, want [true]", v)
	}
}

func TestClient_SendTransactionRequest(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, err := c.SendTransactionRequest(context.Background(), newTransactionRequest())
	if err != nil {
		t.Fatalf("SendTransactionRequest() error = %v", err)
	}

	root := lastRequest(t, env)
	if got := elementText(root, "Transaction/amount"); got != "10.00" {
		t.Errorf("amount = %q, want 10.00", got)
	}
	if got := elementText(root, "Transaction/currency"); got != "EUR" {
		t.Errorf("currency = %q, want EUR", got)
	}
	if got := elementText(root, "Issuer/issuerID"); got != "INGBNL2A" {
		t.Errorf("issuerID = %q", got)
	}

	if !strings.HasPrefix(resp.AuthenticationURL, "https://issuer.example.com/") {
		t.Errorf("AuthenticationURL = %q", resp.AuthenticationURL)
	}
	if resp.Transaction == nil {
		t.Fatal("Transaction is nil")
	}
	if !regexp.MustCompile(`^[0-9]{16}$`).MatchString(resp.Transaction.TransactionID) {
		t.Errorf("TransactionID = %q, want 16 digits", resp.Transaction.TransactionID)
	}
	if resp.Transaction.PurchaseID != "order1" {
		t.Errorf("PurchaseID = %q", resp.Transaction.PurchaseID)
	}
	if _, err := resp.Transaction.Consumer(); !errors.Is(err, ErrConsumerUnavailable) {
		t.Errorf("Consumer() error = %v, want ErrConsumerUnavailable", err)
	}
}

func TestClient_TransactionThenStatus(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	ctx := context.Background()

	trx, err := c.SendTransactionRequest(ctx, newTransactionRequest())
	if err != nil {
		t.Fatalf("SendTransactionRequest() error = %v", err)
	}

	status, err := c.SendStatusRequest(ctx, StatusRequest{TransactionID: trx.Transaction.TransactionID})
	if err != nil {
		t.Fatalf("SendStatusRequest() error = %v", err)
	}

	got := status.Transaction
	if got.TransactionID != trx.Transaction.TransactionID {
		t.Errorf("TransactionID = %q, want %q", got.TransactionID, trx.Transaction.TransactionID)
	}
	if got.Status != StatusSuccess {
		t.Errorf("Status = %q, want Success", got.Status)
	}
	if got.Amount != 1000 || got.Currency != "EUR" {
		t.Errorf("Amount = %d %s, want 1000 EUR", got.Amount, got.Currency)
	}
	consumer, err := got.Consumer()
	if err != nil || consumer == nil {
		t.Fatalf("Consumer() = %+v, %v", consumer, err)
	}
	if consumer.Name != "J. Janssen" || consumer.IBAN != "NL44RABO0123456789" || consumer.BIC != "RABONL2U" {
		t.Errorf("Consumer() = %+v", consumer)
	}
}

func TestClient_StatusOpen(t *testing.T) {
	env := newTestEnv(t)
	env.acquirer.SetStatus("Open")
	c := env.client(t)

	resp, err := c.SendStatusRequest(context.Background(), StatusRequest{TransactionID: "0050000000000042"})
	if err != nil {
		t.Fatalf("SendStatusRequest() error = %v", err)
	}
	if resp.Transaction.Status != StatusOpen || resp.Transaction.Status.IsFinal() {
		t.Errorf("Status = %q, want non-final Open", resp.Transaction.Status)
	}
	if consumer, err := resp.Transaction.Consumer(); err != nil || consumer != nil {
		t.Errorf("Consumer() = %+v, %v, want nil, nil", consumer, err)
	}
}

func TestClient_StatusUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	env.acquirer.SetStatus("Pending")
	c := env.client(t)

	_, err := c.SendStatusRequest(context.Background(), StatusRequest{TransactionID: "0050000000000042"})
	if !errors.Is(err, ErrUnknownStatusCode) {
		t.Errorf("error = %v, want ErrUnknownStatusCode", err)
	}
}

func TestClient_BusinessError(t *testing.T) {
	env := newTestEnv(t)
	env.acquirer.FailWith(&BusinessError{
		Code:            "SO1000",
		Message:         "Failure in system",
		Detail:          "System generating error: issuer",
		ConsumerMessage: "Betalen met iDEAL is nu niet mogelijk.",
	})
	core, logs := observer.New(zap.WarnLevel)
	c := env.client(t, WithLogger(zap.New(core)))

	for _, send := range map[string]func() error{
		"directory": func() error { _, err := c.SendDirectoryRequest(context.Background()); return err },
		"transaction": func() error {
			_, err := c.SendTransactionRequest(context.Background(), newTransactionRequest())
			return err
		},
		"status": func() error {
			_, err := c.SendStatusRequest(context.Background(), StatusRequest{TransactionID: "0050000000000042"})
			return err
		},
	} {
		err := send()
		var bizErr *BusinessError
		if !errors.As(err, &bizErr) {
			t.Fatalf("error = %v, want *BusinessError", err)
		}
		if bizErr.Code != "SO1000" || bizErr.Message != "Failure in system" {
			t.Errorf("BusinessError = %+v", bizErr)
		}
		if bizErr.ConsumerMessage != "Betalen met iDEAL is nu niet mogelijk." {
			t.Errorf("ConsumerMessage = %q", bizErr.ConsumerMessage)
		}
		if _, ok := CodeOf(err); ok {
			t.Error("business errors should not carry an AppError code")
		}
	}

	if codes := env.metrics.GetBusinessErrors(); len(codes) != 3 || codes[0] != "SO1000" {
		t.Errorf("recorded business errors = %v", codes)
	}
	for _, r := range env.metrics.GetRequests() {
		if r.Result != "business" {
			t.Errorf("recorded result = %q, want business", r.Result)
		}
	}
	if n := logs.FilterMessage("acquirer returned an error").Len(); n != 3 {
		t.Errorf("warn logs = %d, want 3", n)
	}
}

func TestClient_HTTPFailure(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := env.config()
	cfg.RequestURL = srv.URL
	c, err := New(cfg, WithMetricsRecorder(env.metrics))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.SendDirectoryRequest(context.Background())
	if !errors.Is(err, ErrHTTPRequestFailed) {
		t.Fatalf("error = %v, want ErrHTTPRequestFailed", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q should carry the status code", err)
	}
	if v := env.metrics.GetVerifications(); len(v) != 0 {
		t.Errorf("verification recorded after transport failure: %v", v)
	}
	if r := env.metrics.GetRequests(); len(r) != 1 || r[0].Result != "transport" {
		t.Errorf("recorded requests = %+v", r)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	url := env.acquirer.Start()

	cfg := env.config()
	cfg.RequestURL = url
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.SendDirectoryRequest(ctx)
	if !errors.Is(err, ErrHTTPRequestFailed) || !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want ErrHTTPRequestFailed wrapping context.Canceled", err)
	}
}

func TestClient_SignatureFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testEnv, t *testing.T)
		want  error
	}{
		{"wrong acquirer key", func(env *testEnv, t *testing.T) {
			env.acquirer.SignWith(certs.New(t, "Impostor"))
		}, ErrSignatureInvalid},
		{"tampered response", func(env *testEnv, t *testing.T) {
			env.acquirer.Tamper(true)
		}, ErrReferenceInvalid},
		{"unsigned response", func(env *testEnv, t *testing.T) {
			env.acquirer.RespondWith([]byte(`<DirectoryRes xmlns="http://www.idealdesk.com/ideal/messages/mer-acq/3.3.1" version="3.3.1"/>`))
		}, ErrSignatureNotFound},
		{"not xml", func(env *testEnv, t *testing.T) {
			env.acquirer.RespondWith([]byte("service unavailable"))
		}, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env, t)
			c := env.client(t)

			_, err := c.SendDirectoryRequest(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if v := env.metrics.GetVerifications(); len(v) != 1 || v[0] {
				t.Errorf("recorded verifications = %v, want [false]", v)
			}
		})
	}
}

func TestClient_UnexpectedRootElement(t *testing.T) {
	env := newTestEnv(t)
	acq := certs.New(t, "Acquirer")
	directory := signedBy(t, acq, `<DirectoryRes xmlns="http://www.idealdesk.com/ideal/messages/mer-acq/3.3.1" version="3.3.1">`+
		`<createDateTimestamp>2024-03-14T08:26:53.000Z</createDateTimestamp>`+
		`<Acquirer><acquirerID>0050</acquirerID></Acquirer>`+
		`<Directory><directoryDateTimestamp>2024-03-14T08:26:53.000Z</directoryDateTimestamp></Directory>`+
		`</DirectoryRes>`)

	cfg := env.config()
	cfg.AcquirerCertificate = acq.CertPath
	c, err := New(cfg, WithTransport(transportFunc(func(context.Context, string, []byte) ([]byte, error) {
		return directory, nil
	})))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.SendStatusRequest(context.Background(), StatusRequest{TransactionID: "0050000000000042"})
	if !errors.Is(err, ErrUnexpectedRootElement) {
		t.Fatalf("error = %v, want ErrUnexpectedRootElement", err)
	}
	want := "expecting AcquirerStatusRes as root element in response, got DirectoryRes"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want %q", err, want)
	}
}

// TestClient_KeyInfoInjectionIgnored sends a validly signed Success status
// whose KeyInfo was extended after signing. The injected error block and
// consumer must not surface.
func TestClient_KeyInfoInjectionIgnored(t *testing.T) {
	env := newTestEnv(t)
	acq := certs.New(t, "Acquirer")
	signed := signedBy(t, acq, `<AcquirerStatusRes xmlns="http://www.idealdesk.com/ideal/messages/mer-acq/3.3.1" version="3.3.1">`+
		`<createDateTimestamp>2024-03-14T08:26:53.000Z</createDateTimestamp>`+
		`<Acquirer><acquirerID>0050</acquirerID></Acquirer>`+
		`<Transaction><transactionID>0050000000000042</transactionID><status>Success</status>`+
		`<statusDateTimestamp>2024-03-14T08:30:00.000Z</statusDateTimestamp></Transaction>`+
		`</AcquirerStatusRes>`)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		t.Fatal(err)
	}
	keyInfo := doc.Root().FindElement(".//KeyInfo")
	forged := keyInfo.CreateElement("Error")
	forged.CreateElement("errorCode").SetText("SO1000")
	forged.CreateElement("errorMessage").SetText("forged")
	keyInfo.CreateElement("consumerName").SetText("Mallory")
	keyInfo.CreateElement("consumerIBAN").SetText("NL00EVIL0123456789")
	injected, err := doc.WriteToBytes()
	if err != nil {
		t.Fatal(err)
	}

	cfg := env.config()
	cfg.AcquirerCertificate = acq.CertPath
	c, err := New(cfg, WithTransport(transportFunc(func(context.Context, string, []byte) ([]byte, error) {
		return injected, nil
	})))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.SendStatusRequest(context.Background(), StatusRequest{TransactionID: "0050000000000042"})
	if err != nil {
		t.Fatalf("SendStatusRequest() error = %v", err)
	}
	if resp.Transaction.Status != StatusSuccess {
		t.Errorf("Status = %q, want Success", resp.Transaction.Status)
	}
	if consumer, _ := resp.Transaction.Consumer(); consumer != nil {
		t.Errorf("Consumer() = %+v, want nil", consumer)
	}
}

func TestClient_InvalidRequest(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	missingIssuer := newTransactionRequest()
	missingIssuer.IssuerID = ""
	zeroAmount := newTransactionRequest()
	zeroAmount.Transaction.Amount = 0

	tests := map[string]Request{
		"nil":                    nil,
		"nil pointer":            (*StatusRequest)(nil),
		"missing issuer":         missingIssuer,
		"zero amount":            zeroAmount,
		"missing transaction id": StatusRequest{},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Send(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Send() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
	if n := len(env.acquirer.Requests()); n != 0 {
		t.Errorf("acquirer received %d requests, want 0", n)
	}
}

func TestClient_Send_Dispatch(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	ctx := context.Background()

	resp, err := c.Send(ctx, &DirectoryRequest{})
	if err != nil {
		t.Fatalf("Send(*DirectoryRequest) error = %v", err)
	}
	if _, ok := resp.(*DirectoryResponse); !ok || resp.Kind() != KindDirectory {
		t.Errorf("Send(*DirectoryRequest) = %T", resp)
	}

	resp, err = c.Send(ctx, StatusRequest{TransactionID: "0050000000000042"})
	if err != nil {
		t.Fatalf("Send(StatusRequest) error = %v", err)
	}
	if _, ok := resp.(*StatusResponse); !ok {
		t.Errorf("Send(StatusRequest) = %T", resp)
	}
}

func TestClient_ExplicitMerchant(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	req := DirectoryRequest{Merchant: Merchant{ID: "009999999", SubID: "2"}}
	if _, err := c.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	root := lastRequest(t, env)
	if got := elementText(root, "Merchant/merchantID"); got != "009999999" {
		t.Errorf("merchantID = %q, want request merchant", got)
	}
	if got := elementText(root, "Merchant/subID"); got != "2" {
		t.Errorf("subID = %q, want 2", got)
	}
}

func TestClient_KeyLoadedPerRequest(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.config()
	cfg.KeyFile = filepath.Join(t.TempDir(), "missing.key")

	c, err := New(cfg, WithTransport(env.acquirer))
	if err != nil {
		t.Fatalf("New() should not read key material: %v", err)
	}
	if _, err := c.SendDirectoryRequest(context.Background()); !errors.Is(err, ErrKeyLoadFailed) {
		t.Errorf("error = %v, want ErrKeyLoadFailed", err)
	}
}

func TestClient_SchemaValidation(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.config()
	cfg.Validation.Enabled = true
	c, err := New(cfg, WithTransport(env.acquirer), WithMetricsRecorder(env.metrics))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := c.SendDirectoryRequest(ctx); err != nil {
		t.Fatalf("SendDirectoryRequest() error = %v", err)
	}
	trx, err := c.SendTransactionRequest(ctx, newTransactionRequest())
	if err != nil {
		t.Fatalf("SendTransactionRequest() error = %v", err)
	}
	if _, err := c.SendStatusRequest(ctx, StatusRequest{TransactionID: trx.Transaction.TransactionID}); err != nil {
		t.Fatalf("SendStatusRequest() error = %v", err)
	}

	t.Run("outgoing", func(t *testing.T) {
		before := len(env.acquirer.Requests())
		req := newTransactionRequest()
		req.Transaction.PurchaseID = "order-1"

		_, err := c.SendTransactionRequest(ctx, req)
		if !errors.Is(err, ErrSchemaValidationFailed) {
			t.Fatalf("error = %v, want ErrSchemaValidationFailed", err)
		}
		if !strings.Contains(err.Error(), "purchaseID") {
			t.Errorf("error %q should name purchaseID", err)
		}
		if after := len(env.acquirer.Requests()); after != before {
			t.Error("invalid request reached the acquirer")
		}
	})

	t.Run("incoming", func(t *testing.T) {
		env.acquirer.RespondWith([]byte(`<DirectoryRes xmlns="http://www.idealdesk.com/ideal/messages/mer-acq/3.3.1" version="3.3.1">` +
			`<createDateTimestamp>2024-03-14T08:26:53.000Z</createDateTimestamp></DirectoryRes>`))

		_, err := c.SendDirectoryRequest(ctx)
		if !errors.Is(err, ErrSchemaValidationFailed) {
			t.Fatalf("error = %v, want ErrSchemaValidationFailed", err)
		}
	})
}

func TestClient_WithSchemaValidator(t *testing.T) {
	env := newTestEnv(t)
	rejectAll := validatorFunc(func(doc *etree.Document) error {
		return &AppError{Code: ErrCodeSchemaValidationFailed, Message: "rejected " + doc.Root().Tag}
	})
	c := env.client(t, WithSchemaValidator(rejectAll))

	_, err := c.SendDirectoryRequest(context.Background())
	if !errors.Is(err, ErrSchemaValidationFailed) || !strings.Contains(err.Error(), "rejected DirectoryReq") {
		t.Errorf("error = %v, want custom validator failure", err)
	}
}

type validatorFunc func(doc *etree.Document) error

func (f validatorFunc) Validate(doc *etree.Document) error { return f(doc) }

func TestClient_LegacyProtocol(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.config()
	cfg.Protocol = "1.1.0"
	c, err := New(cfg, WithTransport(env.acquirer), WithClock(fixedClock{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := c.SendDirectoryRequest(context.Background())
	if err != nil {
		t.Fatalf("SendDirectoryRequest() error = %v", err)
	}
	if _, ok := FindIssuer(resp.Countries, "INGBNL2A"); !ok {
		t.Error("issuer INGBNL2A not found")
	}

	root := lastRequest(t, env)
	if ns := root.SelectAttrValue("xmlns", ""); ns != "http://www.idealdesk.com/Message" {
		t.Errorf("request namespace = %q", ns)
	}
	if v := root.SelectAttrValue("version", ""); v != "1.1.0" {
		t.Errorf("request version = %q", v)
	}
}

func TestNew_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"invalid config", func(c *Config) { c.MerchantID = "" }},
		{"missing schema file", func(c *Config) {
			c.Validation = ValidationConfig{Enabled: true, Schema: filepath.Join(t.TempDir(), "missing.xsd")}
		}},
		{"missing CA path", func(c *Config) { c.Transport.CAPath = filepath.Join(t.TempDir(), "missing") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := env.config()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("New() error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestClient_RequestURL(t *testing.T) {
	env := newTestEnv(t)
	cfg := env.config()
	cfg.RequestURL = ""
	cfg.Acquirer = "ing"
	cfg.Production = true

	c, err := New(cfg, WithTransport(env.acquirer))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.RequestURL(); got != "https://ideal.secure-ing.com/ideal/iDEALv3" {
		t.Errorf("RequestURL() = %q", got)
	}
}

func TestClient_ConcurrentUse(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := newTransactionRequest()
			req.Transaction.PurchaseID = fmt.Sprintf("order%d", i)
			if _, err := c.SendTransactionRequest(context.Background(), req); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent request failed: %v", err)
	}
	if n := len(env.metrics.GetRequests()); n != 20 {
		t.Errorf("recorded %d requests, want 20", n)
	}
}
