// Command idealctl sends iDEAL requests from the command line.
// Usage:
//
//	idealctl -config ideal.yaml directory
//	idealctl -config ideal.yaml transaction -issuer INGBNL2A -amount 10.00 -purchase-id order1 -return-url https://shop.example.com/return
//	idealctl -config ideal.yaml status -id 0050000000001234
//	idealctl fingerprint merchant.cer
//
// Responses are printed as JSON on stdout. Acquirer error messages are
// printed as JSON too, with a non-zero exit status.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	ideal "github.com/juriansluiman/slm-ideal-payment"
)

const usage = `usage: idealctl [flags] <command> [command flags]

commands:
  directory     list issuers
  transaction   start a payment
  status        query a transaction
  fingerprint   print the KeyName of a certificate

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "idealctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("idealctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "ideal.yaml", "configuration file (.yaml, .yml or .json)")
	production := fs.Bool("production", false, "use the live acquirer URL")
	debug := fs.Bool("debug", false, "enable development logging")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	if command == "fingerprint" {
		return fingerprint(rest, stdout)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := ideal.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *production {
		cfg.Production = true
	}
	client, err := ideal.New(*cfg, ideal.WithLogger(logger))
	if err != nil {
		return err
	}

	var resp any
	switch command {
	case "directory":
		resp, err = client.SendDirectoryRequest(ctx)
	case "transaction":
		var req ideal.TransactionRequest
		if req, err = parseTransaction(rest, stderr); err == nil {
			resp, err = client.SendTransactionRequest(ctx, req)
		}
	case "status":
		var req ideal.StatusRequest
		if req, err = parseStatus(rest, stderr); err == nil {
			resp, err = client.SendStatusRequest(ctx, req)
		}
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	var bizErr *ideal.BusinessError
	if errors.As(err, &bizErr) {
		view := map[string]string{
			"code":             bizErr.Code,
			"message":          bizErr.Message,
			"detail":           bizErr.Detail,
			"suggested_action": bizErr.SuggestedAction,
			"consumer_message": bizErr.ConsumerMessage,
		}
		if encErr := writeJSON(stdout, map[string]any{"error": view}); encErr != nil {
			return encErr
		}
		return err
	}
	if err != nil {
		return err
	}
	return writeJSON(stdout, present(resp))
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func fingerprint(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: idealctl fingerprint <certificate>")
	}
	fp, err := ideal.Fingerprint(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, fp)
	return err
}

func parseTransaction(args []string, stderr io.Writer) (ideal.TransactionRequest, error) {
	fs := flag.NewFlagSet("transaction", flag.ContinueOnError)
	fs.SetOutput(stderr)
	issuer := fs.String("issuer", "", "issuer BIC (required)")
	amount := fs.String("amount", "", "amount in euros, e.g. 10.00 (required)")
	purchaseID := fs.String("purchase-id", "", "merchant order reference (required)")
	description := fs.String("description", "", "description shown to the consumer")
	returnURL := fs.String("return-url", "", "merchant return URL (required)")
	expiration := fs.Duration("expiration", 0, "expiration period, e.g. 30m (default: acquirer default)")
	language := fs.String("language", "nl", "consumer language")
	entranceCode := fs.String("entrance-code", "", "entrance code (default: generated)")
	if err := fs.Parse(args); err != nil {
		return ideal.TransactionRequest{}, err
	}

	cents, err := ideal.ParseAmount(*amount)
	if err != nil {
		return ideal.TransactionRequest{}, ideal.InvalidRequestError(err.Error())
	}
	trx := ideal.NewTransaction(*purchaseID, cents, *description)
	trx.ExpirationPeriod = *expiration
	trx.Language = *language
	if *entranceCode != "" {
		trx.EntranceCode = *entranceCode
	}
	return ideal.TransactionRequest{
		IssuerID:    *issuer,
		ReturnURL:   *returnURL,
		Transaction: *trx,
	}, nil
}

func parseStatus(args []string, stderr io.Writer) (ideal.StatusRequest, error) {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("id", "", "transaction ID (required)")
	if err := fs.Parse(args); err != nil {
		return ideal.StatusRequest{}, err
	}
	return ideal.StatusRequest{TransactionID: *id}, nil
}

type countryView struct {
	Name    string       `json:"name,omitempty"`
	Code    string       `json:"code,omitempty"`
	Issuers []issuerView `json:"issuers"`
}

type issuerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	List string `json:"list,omitempty"`
}

type consumerView struct {
	Name string `json:"name,omitempty"`
	IBAN string `json:"iban,omitempty"`
	BIC  string `json:"bic,omitempty"`
}

type transactionView struct {
	TransactionID string        `json:"transaction_id,omitempty"`
	PurchaseID    string        `json:"purchase_id,omitempty"`
	Status        string        `json:"status,omitempty"`
	Amount        string        `json:"amount,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	CreatedAt     *time.Time    `json:"created_at,omitempty"`
	StatusAt      *time.Time    `json:"status_at,omitempty"`
	Consumer      *consumerView `json:"consumer,omitempty"`
}

// present converts a response into its JSON form.
func present(resp any) any {
	switch r := resp.(type) {
	case *ideal.DirectoryResponse:
		countries := make([]countryView, 0, len(r.Countries))
		for _, c := range r.Countries {
			cv := countryView{Name: c.Name, Code: c.Code}
			for _, i := range c.Issuers {
				cv.Issuers = append(cv.Issuers, issuerView{ID: i.ID, Name: i.Name, List: string(i.List)})
			}
			countries = append(countries, cv)
		}
		return map[string]any{
			"acquirer_id":         r.AcquirerID,
			"directory_timestamp": r.DirectoryTimestamp,
			"countries":           countries,
		}
	case *ideal.TransactionResponse:
		return map[string]any{
			"acquirer_id":        r.AcquirerID,
			"authentication_url": r.AuthenticationURL,
			"transaction":        viewTransaction(r.Transaction),
		}
	case *ideal.StatusResponse:
		return map[string]any{
			"acquirer_id": r.AcquirerID,
			"transaction": viewTransaction(r.Transaction),
		}
	}
	return resp
}

func viewTransaction(t *ideal.Transaction) transactionView {
	if t == nil {
		return transactionView{}
	}
	v := transactionView{
		TransactionID: t.TransactionID,
		PurchaseID:    t.PurchaseID,
		Status:        string(t.Status),
		Currency:      t.Currency,
	}
	if t.Amount > 0 {
		v.Amount = t.Amount.String()
	}
	if !t.CreatedAt.IsZero() {
		v.CreatedAt = &t.CreatedAt
	}
	if !t.StatusTimestamp.IsZero() {
		v.StatusAt = &t.StatusTimestamp
	}
	if c, err := t.Consumer(); err == nil && c != nil {
		v.Consumer = &consumerView{Name: c.Name, IBAN: c.IBAN, BIC: c.BIC}
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
