package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var campIDPattern = regexp.MustCompile(`campid['"]:['"]([^'"]+)['"]`)

// ProviderResponse is a gateway reply. The gateway does not commit to a format, so a
// reply is one of StringResponse, ObjectResponse or OtherResponse.
type ProviderResponse interface {
	// Success applies the shape-specific success rules
	Success() bool
	// CampID returns the campaign reference carried by the reply, if any
	CampID() string
	// Value returns the reply as a plain JSON-compatible value for persistence
	Value() any

	isProviderResponse()
}

// StringResponse is a non-JSON body, or a JSON string literal
type StringResponse string

// ObjectResponse is a JSON object body
type ObjectResponse map[string]any

// OtherResponse is any other JSON value (array, number, boolean, null). It never signals success.
type OtherResponse struct {
	Raw any
}

// ParseProviderResponse classifies a raw gateway body
func ParseProviderResponse(body []byte) ProviderResponse {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return StringResponse(body)
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return StringResponse(body)
	}

	switch v := decoded.(type) {
	case string:
		return StringResponse(v)
	case map[string]any:
		return ObjectResponse(v)
	default:
		return OtherResponse{Raw: v}
	}
}

func (s StringResponse) Success() bool {
	text := string(s)
	return strings.Contains(text, "MessageId") ||
		strings.Contains(text, "success") ||
		strings.Contains(text, "campid")
}

// CampID understands python-style dict replies such as {'campid':'123'}
func (s StringResponse) CampID() string {
	text := string(s)
	if !strings.Contains(text, "{'campid':") && !strings.Contains(text, `{"campid":`) {
		return ""
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.ReplaceAll(text, "'", `"`)), &parsed); err == nil {
		return campIDString(parsed["campid"])
	}

	if m := campIDPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func (s StringResponse) Value() any { return string(s) }

func (StringResponse) isProviderResponse() {}

func (o ObjectResponse) Success() bool {
	if code, ok := o["ErrorCode"].(string); ok && code == "000" {
		return true
	}
	if msg, ok := o["ErrorMessage"].(string); ok && strings.Contains(strings.ToLower(msg), "success") {
		return true
	}
	_, hasCampID := o["campid"]
	return hasCampID
}

func (o ObjectResponse) CampID() string {
	return campIDString(o["campid"])
}

func (o ObjectResponse) Value() any { return map[string]any(o) }

func (ObjectResponse) isProviderResponse() {}

func (OtherResponse) Success() bool { return false }

func (OtherResponse) CampID() string { return "" }

func (o OtherResponse) Value() any { return o.Raw }

func (OtherResponse) isProviderResponse() {}

// campIDString renders a truthy campid value; empty, false, zero and null yield ""
func campIDString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case bool:
		if c {
			return "true"
		}
		return ""
	case float64:
		if c == 0 {
			return ""
		}
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}
