package ideal

// AcquirerEndpoint holds the request URLs of an acquirer and, optionally,
// the path of its signing certificate.
type AcquirerEndpoint struct {
	Test        string `json:"test,omitempty" yaml:"test,omitempty"`
	Live        string `json:"live,omitempty" yaml:"live,omitempty"`
	Certificate string `json:"certificate,omitempty" yaml:"certificate,omitempty"`
}

// URL returns the live or test URL.
func (e AcquirerEndpoint) URL(production bool) string {
	if production {
		return e.Live
	}
	return e.Test
}

// builtinAcquirers are the iDEAL 3.3.1 endpoints of the Dutch acquirers.
// Certificates are not shipped; they must be configured per merchant.
var builtinAcquirers = map[string]AcquirerEndpoint{
	"abnamro": {
		Test: "https://abnamro-test.ideal-payment.de/ideal/iDEALv3",
		Live: "https://abnamro.ideal-payment.de/ideal/iDEALv3",
	},
	"frieslandbank": {
		Test: "https://testidealkassa.frieslandbank.nl/ideal/iDEALv3",
		Live: "https://idealkassa.frieslandbank.nl/ideal/iDEALv3",
	},
	"ing": {
		Test: "https://idealtest.secure-ing.com/ideal/iDEALv3",
		Live: "https://ideal.secure-ing.com/ideal/iDEALv3",
	},
	"rabobank": {
		Test: "https://idealtest.rabobank.nl/ideal/iDEALv3",
		Live: "https://ideal.rabobank.nl/ideal/iDEALv3",
	},
}

// BuiltinAcquirer returns the built-in endpoint for name.
func BuiltinAcquirer(name string) (AcquirerEndpoint, bool) {
	e, ok := builtinAcquirers[name]
	return e, ok
}

// BuiltinAcquirerNames lists the acquirers known without configuration.
func BuiltinAcquirerNames() []string {
	return []string{"abnamro", "frieslandbank", "ing", "rabobank"}
}
