package utils

import (
	"strings"
	"unicode"
)

const indiaCountryCode = "91"

// NormalizePhoneNumber converts a raw phone number into the canonical form used
// both as the deduplication key and as the SMS destination.
//
// All whitespace is removed first, then the first matching rule applies:
//
//	+91XXXXXXXXXX  -> 91XXXXXXXXXX
//	XXXXXXXXXX     -> 91XXXXXXXXXX
//	91XXXXXXXXXX   -> unchanged
//	anything else  -> unchanged (whitespace stripped)
func NormalizePhoneNumber(raw string) string {
	s := stripWhitespace(raw)
	switch {
	case strings.HasPrefix(s, "+"+indiaCountryCode):
		return s[1:]
	case len(s) == 10 && isDigits(s):
		return indiaCountryCode + s
	case len(s) == 12 && strings.HasPrefix(s, indiaCountryCode) && isDigits(s):
		return s
	default:
		return s
	}
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
