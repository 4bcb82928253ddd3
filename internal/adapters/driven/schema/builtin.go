package schema

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"time"
)

var (
	decimalPattern  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	integerPattern  = regexp.MustCompile(`^[+-]?\d+$`)
	durationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
)

// dateTimeLayouts are the lexical forms of xs:dateTime, with and without a
// timezone.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// checkBuiltin validates value against a built-in XML Schema type. Types
// outside the supported set are accepted as is.
func checkBuiltin(value, typeName, path string) error {
	if typeName != "string" && typeName != "normalizedString" {
		value = collapse(value)
	}

	invalid := func() error {
		return validationError(path, fmt.Sprintf("value %q is not a valid xs:%s", value, typeName))
	}

	switch typeName {
	case "decimal":
		if !decimalPattern.MatchString(value) {
			return invalid()
		}
	case "integer", "long", "int", "short":
		if !integerPattern.MatchString(value) {
			return invalid()
		}
	case "nonNegativeInteger", "unsignedLong", "unsignedInt":
		if !integerPattern.MatchString(value) || value[0] == '-' && !isZero(value) {
			return invalid()
		}
	case "positiveInteger":
		n, ok := new(big.Int).SetString(value, 10)
		if !ok || n.Sign() <= 0 {
			return invalid()
		}
	case "boolean":
		switch value {
		case "true", "false", "1", "0":
		default:
			return invalid()
		}
	case "dateTime":
		if !parsesAsDateTime(value) {
			return invalid()
		}
	case "duration":
		if _, err := durationSeconds(value); err != nil {
			return invalid()
		}
	case "anyURI":
		if _, err := url.Parse(value); err != nil {
			return invalid()
		}
	case "base64Binary":
		if _, err := base64.StdEncoding.DecodeString(value); err != nil {
			return invalid()
		}
	}
	return nil
}

func isZero(v string) bool {
	for _, r := range v {
		if r != '0' && r != '+' && r != '-' {
			return false
		}
	}
	return true
}

func parsesAsDateTime(v string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// durationSeconds converts an xs:duration into seconds. Years count as 365
// days and months as 30 days, which is enough to order iDEAL expiration
// periods.
func durationSeconds(v string) (*big.Rat, error) {
	m := durationPattern.FindStringSubmatch(v)
	if m == nil || v == "P" || v == "-P" || v[len(v)-1] == 'T' {
		return nil, fmt.Errorf("invalid duration %q", v)
	}

	units := []int64{365 * 86400, 30 * 86400, 86400, 3600, 60}
	total := new(big.Rat)
	for i, unit := range units {
		if m[i+2] == "" {
			continue
		}
		n, ok := new(big.Rat).SetString(m[i+2])
		if !ok {
			return nil, fmt.Errorf("invalid duration %q", v)
		}
		total.Add(total, n.Mul(n, new(big.Rat).SetInt64(unit)))
	}
	if m[7] != "" {
		s, ok := new(big.Rat).SetString(m[7])
		if !ok {
			return nil, fmt.Errorf("invalid duration %q", v)
		}
		total.Add(total, s)
	}
	if m[1] == "-" {
		total.Neg(total)
	}
	return total, nil
}
