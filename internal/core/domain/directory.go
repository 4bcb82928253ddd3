package domain

// IssuerList is the legacy directory category of an issuer.
type IssuerList string

const (
	IssuerListShort IssuerList = "Short"
	IssuerListLong  IssuerList = "Long"
)

// Issuer is a consumer bank offered in the directory.
type Issuer struct {
	ID   string
	Name string
	List IssuerList
}

// Country groups issuers under a display name.
type Country struct {
	Name    string
	Code    string
	Issuers []Issuer
}

// FindIssuer returns the issuer with the given id across all countries.
func FindIssuer(countries []Country, id string) (Issuer, bool) {
	for _, c := range countries {
		for _, i := range c.Issuers {
			if i.ID == id {
				return i, true
			}
		}
	}
	return Issuer{}, false
}
