package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexibleString accepts a JSON string, number or boolean and keeps its text.
// Numbers are rendered in their shortest plain form (1e10 becomes "10000000000").
// null decodes to the empty string.
type FlexibleString string

func (s *FlexibleString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*s = FlexibleString(v)
	case '{', '[':
		return fmt.Errorf("expected string, got %s", trimmed)
	case 't', 'f':
		*s = FlexibleString(trimmed)
	default:
		*s = FlexibleString(numberString(json.Number(trimmed)))
	}
	return nil
}

// numberString formats n the way a browser stringifies a number: plain digits
// between 1e-6 and 1e21, exponent form outside that range.
func numberString(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	exp := strconv.FormatFloat(f, 'e', -1, 64)
	// Go pads the exponent to two digits ("1e-07")
	mantissa, power, _ := strings.Cut(exp, "e")
	sign, digits := power[:1], strings.TrimLeft(power[1:], "0")
	return mantissa + "e" + sign + digits
}

// Trimmed returns the value without surrounding whitespace
func (s FlexibleString) Trimmed() string {
	return strings.TrimSpace(string(s))
}

// SubmitAddressRequest is the optional free-text location of a registrant
type SubmitAddressRequest struct {
	District FlexibleString `json:"district,omitempty"`
	Mandal   FlexibleString `json:"mandal,omitempty"`
	Area     FlexibleString `json:"area,omitempty"`
}

// SubmitRequest is the registration form payload
type SubmitRequest struct {
	Name          FlexibleString        `json:"name" validate:"required"`
	Phone         FlexibleString        `json:"phone" validate:"required"`
	BusinessTitle FlexibleString        `json:"businessTitle" validate:"required"`
	Address       *SubmitAddressRequest `json:"address,omitempty"`
	// Rating is kept only when it is a JSON number; any other value is treated as absent
	Rating any `json:"rating,omitempty" swaggertype:"number"`
}

// RatingValue returns the numeric rating, or nil when absent or not a number
func (r SubmitRequest) RatingValue() *float64 {
	if v, ok := r.Rating.(float64); ok {
		return &v
	}
	return nil
}

// SMSStatusDTO is the recorded notification outcome
type SMSStatusDTO struct {
	OK       bool   `json:"ok"`
	Response any    `json:"response"`
	SentAt   string `json:"sentAt"`
}

// SubmitResponse is returned after a successful registration
type SubmitResponse struct {
	OK                bool          `json:"ok"`
	ID                string        `json:"id"`
	RegNo             string        `json:"regNo"`
	SMSStatus         *SMSStatusDTO `json:"smsStatus"`
	AlreadyRegistered bool          `json:"alreadyRegistered"`
}

// AddressDTO is the uniform address shape of a listed submission
type AddressDTO struct {
	District string `json:"district"`
	Mandal   string `json:"mandal"`
	Area     string `json:"area"`
}

// SubmissionRow is one listed submission with every optional field defaulted
type SubmissionRow struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	BusinessTitle string        `json:"businessTitle"`
	RegNo         string        `json:"regNo"`
	Address       AddressDTO    `json:"address"`
	Rating        float64       `json:"rating"`
	CreatedAt     *string       `json:"createdAt"`
	SMSStatus     *SMSStatusDTO `json:"smsStatus"`
}

// ListSubmissionsResponse is returned by the listing endpoint
type ListSubmissionsResponse struct {
	OK   bool            `json:"ok"`
	Rows []SubmissionRow `json:"rows"`
}

// ErrorResponse is the error body of the submission endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}
