package ideal

import (
	"github.com/juriansluiman/slm-ideal-payment/internal/adapters/driven/signature"
	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
)

// Re-export domain types
type (
	RequestKind         = domain.RequestKind
	Request             = domain.Request
	Response            = domain.Response
	Merchant            = domain.Merchant
	DirectoryRequest    = domain.DirectoryRequest
	TransactionRequest  = domain.TransactionRequest
	StatusRequest       = domain.StatusRequest
	DirectoryResponse   = domain.DirectoryResponse
	TransactionResponse = domain.TransactionResponse
	StatusResponse      = domain.StatusResponse
	Transaction         = domain.Transaction
	TransactionStatus   = domain.TransactionStatus
	Consumer            = domain.Consumer
	Amount              = domain.Amount
	Issuer              = domain.Issuer
	IssuerList          = domain.IssuerList
	Country             = domain.Country
)

const (
	KindDirectory   = domain.KindDirectory
	KindTransaction = domain.KindTransaction
	KindStatus      = domain.KindStatus
)

const (
	StatusUnknown   = domain.StatusUnknown
	StatusOpen      = domain.StatusOpen
	StatusSuccess   = domain.StatusSuccess
	StatusFailure   = domain.StatusFailure
	StatusCancelled = domain.StatusCancelled
	StatusExpired   = domain.StatusExpired
)

var (
	NewTransaction  = domain.NewTransaction
	NewEntranceCode = domain.NewEntranceCode
	ParseAmount     = domain.ParseAmount
	ParseStatus     = domain.ParseStatus
	FindIssuer      = domain.FindIssuer
)

// Fingerprint returns the uppercase hex SHA-1 fingerprint of the
// certificate at path, the value sent as KeyName in signed messages.
func Fingerprint(path string) (string, error) {
	return signature.Fingerprint(path)
}
