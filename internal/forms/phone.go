package forms

import (
	"strings"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

// DefaultCountryCode is Uganda's dialing code
const DefaultCountryCode = "256"

// subscriberDigits is the length of a national number without its trunk prefix
const subscriberDigits = 9

// NormalizePhone converts a phone number typed in any common form into an
// MSISDN: country code followed by the subscriber number, digits only.
//
//	0772123456       -> 256772123456
//	772123456        -> 256772123456
//	+256 772-123456  -> 256772123456
func NormalizePhone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	trimmed := strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", perrors.NewInvalidPhoneError(raw)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(trimmed, "00") && len(digits) == 2+len(countryCode)+subscriberDigits:
		digits = digits[2:]
		if strings.HasPrefix(digits, countryCode) {
			return digits, nil
		}
	case len(digits) == len(countryCode)+subscriberDigits && strings.HasPrefix(digits, countryCode):
		return digits, nil
	case len(digits) == subscriberDigits+1 && digits[0] == '0':
		return countryCode + digits[1:], nil
	case len(digits) == subscriberDigits && digits[0] != '0':
		return countryCode + digits, nil
	}
	return "", perrors.NewInvalidPhoneError(raw)
}

// ValidPhone reports whether NormalizePhone accepts raw
func ValidPhone(raw, countryCode string) bool {
	_, err := NormalizePhone(raw, countryCode)
	return err == nil
}

// LocalPhone formats an MSISDN for display in the national form (0772123456)
func LocalPhone(msisdn, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if strings.HasPrefix(msisdn, countryCode) && len(msisdn) == len(countryCode)+subscriberDigits {
		return "0" + msisdn[len(countryCode):]
	}
	return msisdn
}
