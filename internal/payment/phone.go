package payment

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is the calling code M-Pesa numbers are normalized to.
const DefaultCountryCode = "254"

var phonePunctuation = regexp.MustCompile(`[\s\-().]`)

// NormalizePhone converts a locally formatted number such as "0712 345 678" into the
// country-code form "254712345678" expected by the gateway.
func NormalizePhone(raw string) string {
	return NormalizePhoneWithCode(raw, DefaultCountryCode)
}

func NormalizePhoneWithCode(raw, countryCode string) string {
	phone := phonePunctuation.ReplaceAllString(raw, "")
	switch {
	case phone == "":
		return ""
	case strings.HasPrefix(phone, "0"):
		return countryCode + phone[1:]
	case strings.HasPrefix(phone, "+"+countryCode):
		return phone[1:]
	case strings.HasPrefix(phone, countryCode):
		return phone
	}
	return countryCode + strings.TrimPrefix(phone, "+")
}
