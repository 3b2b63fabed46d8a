package utils

import "strings"

// GenerateRegNo derives the human-facing registration code from a record id:
// the last RegNoSuffixLength characters, uppercased, behind prefix.
func GenerateRegNo(prefix, id string) string {
	suffix := id
	if len(suffix) > RegNoSuffixLength {
		suffix = suffix[len(suffix)-RegNoSuffixLength:]
	}
	return prefix + strings.ToUpper(suffix)
}

// ClampRating bounds a rating to the accepted [0,5] range
func ClampRating(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
