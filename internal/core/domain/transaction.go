package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the acquirer-reported state of a transaction.
type TransactionStatus string

const (
	StatusUnknown   TransactionStatus = "Unknown"
	StatusOpen      TransactionStatus = "Open"
	StatusSuccess   TransactionStatus = "Success"
	StatusFailure   TransactionStatus = "Failure"
	StatusCancelled TransactionStatus = "Cancelled"
	StatusExpired   TransactionStatus = "Expired"
)

// ParseStatus maps a status code from a status response onto the closed set
// of known statuses. Anything else is an ErrCodeUnknownStatusCode error.
func ParseStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(strings.TrimSpace(s)); st {
	case StatusUnknown, StatusOpen, StatusSuccess, StatusFailure, StatusCancelled, StatusExpired:
		return st, nil
	}
	return "", &AppError{
		Code:    ErrCodeUnknownStatusCode,
		Message: fmt.Sprintf("unknown transaction status %q", s),
	}
}

// IsFinal reports whether the status will not change anymore.
func (s TransactionStatus) IsFinal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Protocol defaults for new transactions.
const (
	DefaultCurrency         = "EUR"
	DefaultLanguage         = "nl"
	DefaultExpirationPeriod = time.Hour
)

// Consumer identifies the payer, as reported in a status response.
type Consumer struct {
	Name string
	IBAN string
	BIC  string
}

// Transaction describes a payment. Fields set by the merchant are used to
// build transaction requests; the remaining fields are filled from responses.
type Transaction struct {
	PurchaseID       string
	Amount           Amount
	Currency         string
	Language         string
	ExpirationPeriod time.Duration
	Description      string
	EntranceCode     string

	TransactionID   string
	CreatedAt       time.Time
	Status          TransactionStatus
	StatusTimestamp time.Time

	consumer *Consumer
}

// NewTransaction returns a transaction with protocol defaults and a freshly
// generated entrance code.
func NewTransaction(purchaseID string, amount Amount, description string) *Transaction {
	return &Transaction{
		PurchaseID:       purchaseID,
		Amount:           amount,
		Currency:         DefaultCurrency,
		Language:         DefaultLanguage,
		ExpirationPeriod: DefaultExpirationPeriod,
		Description:      description,
		EntranceCode:     NewEntranceCode(),
		Status:           StatusUnknown,
	}
}

// Consumer returns the payer details. It fails while the status is unknown,
// because acquirers only report a consumer once the transaction progressed.
func (t *Transaction) Consumer() (*Consumer, error) {
	if t.Status == "" || t.Status == StatusUnknown {
		return nil, ErrConsumerUnavailable
	}
	if t.consumer == nil {
		return nil, nil
	}
	c := *t.consumer
	return &c, nil
}

// SetConsumer attaches a copy of c to the transaction.
func (t *Transaction) SetConsumer(c Consumer) {
	t.consumer = &c
}

// NewEntranceCode generates an opaque alphanumeric token (32 characters)
// suitable as iDEAL entrance code.
func NewEntranceCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Amount is a monetary amount in cents.
type Amount int64

// String renders the amount as a decimal with two fraction digits, the
// representation used on the wire (1000 -> "10.00").
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseAmount parses a wire decimal ("10.00", "10.5", "10") into cents.
// Only ASCII digits are accepted on either side of the point.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if !isDigits(whole) || (hasFrac && (!isDigits(frac) || len(frac) > 2)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > maxAmountUnits {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, _ = strconv.ParseInt(frac, 10, 64)
	}
	return Amount(units*100 + cents), nil
}

// maxAmountUnits is the largest whole-euro value whose cents still fit in
// an int64.
const maxAmountUnits = (math.MaxInt64 - 99) / 100

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatDuration renders d as an ISO 8601 duration (PT1H, PT30M, PT1H30M).
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	s := int64((d % time.Minute) / time.Second)

	var b strings.Builder
	b.WriteString("PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	if s > 0 || (h == 0 && m == 0) {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}
