package domain

import "time"

// RequestKind identifies one of the three iDEAL message exchanges.
type RequestKind int

const (
	KindDirectory RequestKind = iota + 1
	KindTransaction
	KindStatus
)

// String returns a short label, used for logging and metrics.
func (k RequestKind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindTransaction:
		return "transaction"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// RequestElement is the root element name of the request document.
func (k RequestKind) RequestElement() string {
	switch k {
	case KindDirectory:
		return "DirectoryReq"
	case KindTransaction:
		return "AcquirerTrxReq"
	case KindStatus:
		return "AcquirerStatusReq"
	default:
		return ""
	}
}

// ResponseElement is the root element name expected in the response.
func (k RequestKind) ResponseElement() string {
	switch k {
	case KindDirectory:
		return "DirectoryRes"
	case KindTransaction:
		return "AcquirerTrxRes"
	case KindStatus:
		return "AcquirerStatusRes"
	default:
		return ""
	}
}

// Merchant identifies the merchant contract at the acquirer.
type Merchant struct {
	ID    string
	SubID string
}

// IsZero reports whether no merchant identity was set.
func (m Merchant) IsZero() bool {
	return m.ID == "" && m.SubID == ""
}

// Request is implemented by DirectoryRequest, TransactionRequest and
// StatusRequest only.
type Request interface {
	Kind() RequestKind
	MerchantInfo() Merchant
	isRequest()
}

// DirectoryRequest asks the acquirer for the list of issuers.
type DirectoryRequest struct {
	Merchant Merchant
}

func (DirectoryRequest) Kind() RequestKind        { return KindDirectory }
func (r DirectoryRequest) MerchantInfo() Merchant { return r.Merchant }
func (DirectoryRequest) isRequest()               {}

// TransactionRequest starts a payment at the given issuer.
type TransactionRequest struct {
	Merchant    Merchant
	IssuerID    string
	ReturnURL   string
	Transaction Transaction
}

func (TransactionRequest) Kind() RequestKind        { return KindTransaction }
func (r TransactionRequest) MerchantInfo() Merchant { return r.Merchant }
func (TransactionRequest) isRequest()               {}

// StatusRequest polls the status of a transaction.
type StatusRequest struct {
	Merchant      Merchant
	TransactionID string
}

func (StatusRequest) Kind() RequestKind        { return KindStatus }
func (r StatusRequest) MerchantInfo() Merchant { return r.Merchant }
func (StatusRequest) isRequest()               {}

// Response is implemented by DirectoryResponse, TransactionResponse and
// StatusResponse only.
type Response interface {
	Kind() RequestKind
	isResponse()
}

// DirectoryResponse lists the issuers per country.
type DirectoryResponse struct {
	AcquirerID         string
	CreatedAt          time.Time
	DirectoryTimestamp time.Time
	Countries          []Country
}

func (DirectoryResponse) Kind() RequestKind { return KindDirectory }
func (DirectoryResponse) isResponse()       {}

// Issuers returns all issuers in directory order.
func (r *DirectoryResponse) Issuers() []Issuer {
	var all []Issuer
	for _, c := range r.Countries {
		all = append(all, c.Issuers...)
	}
	return all
}

// TransactionResponse carries the issuer URL the consumer must be sent to.
type TransactionResponse struct {
	AcquirerID        string
	AuthenticationURL string
	Transaction       *Transaction
}

func (TransactionResponse) Kind() RequestKind { return KindTransaction }
func (TransactionResponse) isResponse()       {}

// StatusResponse carries the current transaction state.
type StatusResponse struct {
	AcquirerID  string
	Transaction *Transaction
}

func (StatusResponse) Kind() RequestKind { return KindStatus }
func (StatusResponse) isResponse()       {}
