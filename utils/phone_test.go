package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plus country code", "+919999999999", "919999999999"},
		{"ten digits", "9999999999", "919999999999"},
		{"country code without plus", "919999999999", "919999999999"},
		{"garbage", "abc", "abc"},
		{"empty", "", ""},
		{"inner whitespace", " 99999 99999 ", "919999999999"},
		{"tabs and newlines", "+91\t99999\n99999", "919999999999"},
		{"plus91 keeps remainder as is", "+91 12", "9112"},
		{"foreign number", "+14155550100", "+14155550100"},
		{"eleven digits", "09999999999", "09999999999"},
		{"ten chars not all digits", "99999-9999", "99999-9999"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePhoneNumber(tc.in))
		})
	}
}

func TestNormalizePhoneNumberIsIdempotent(t *testing.T) {
	for _, in := range []string{"+919999999999", "9999999999", "919999999999", "abc", "+1 415 555 0100"} {
		once := NormalizePhoneNumber(in)
		assert.Equal(t, once, NormalizePhoneNumber(once), in)
	}
}
