// Package services provides external service integrations and technical concerns like notifications
package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/festgo/rbg-registration/config"
	"github.com/festgo/rbg-registration/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// maxResponseBodySize bounds how much of a gateway reply is read
const maxResponseBodySize = 64 * 1024

var smsSendTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sms_send_total",
		Help: "Total number of SMS notifications by result",
	},
	[]string{"result"},
)

// RecordSMSResult increments the SMS counter for result (success, failure, skipped)
func RecordSMSResult(result string) {
	smsSendTotal.WithLabelValues(result).Inc()
}

// SendResult is the outcome of a single gateway call.
// Response is nil when the call failed before a body was received; Error is set in that case.
type SendResult struct {
	OK       bool
	Response ProviderResponse
	Error    string
	CampID   string
}

// SMSGateway delivers one literal message to one canonical destination
type SMSGateway interface {
	Send(ctx context.Context, destination, message string) SendResult
}

// SMSLoginGateway implements SMSGateway against the smslogin v3 HTTP API
type SMSLoginGateway struct {
	config *config.SMSConfig
	client *http.Client
}

// NewSMSGateway creates the gateway configured by cfg.Provider
func NewSMSGateway(cfg *config.SMSConfig) SMSGateway {
	if cfg.Provider == "mock" {
		return NewMockSMSGateway()
	}
	return NewSMSLoginGateway(cfg)
}

// NewSMSLoginGateway creates a new smslogin gateway instance
func NewSMSLoginGateway(cfg *config.SMSConfig) *SMSLoginGateway {
	return &SMSLoginGateway{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send performs one GET request. It never returns an error: transport failures,
// timeouts, non-2xx replies and unreadable bodies are reported through SendResult.
func (s *SMSLoginGateway) Send(ctx context.Context, destination, message string) SendResult {
	params := url.Values{}
	params.Set("username", s.config.Username)
	params.Set("apikey", s.config.APIKey)
	params.Set("senderid", s.config.SenderID)
	params.Set("mobile", destination)
	params.Set("message", message)
	params.Set("templateid", s.config.TemplateID)

	endpoint := s.config.APIURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + params.Encode()
	} else {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failedResult(fmt.Errorf("failed to create HTTP request: %w", err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return failedResult(fmt.Errorf("failed to send SMS request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		return failedResult(fmt.Errorf("SMS gateway returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return failedResult(fmt.Errorf("failed to read SMS response: %w", err))
	}

	providerResponse := ParseProviderResponse(body)
	log.Printf("SMS API response (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))

	return SendResult{
		OK:       providerResponse.Success(),
		Response: providerResponse,
		CampID:   providerResponse.CampID(),
	}
}

func failedResult(err error) SendResult {
	return SendResult{OK: false, Error: err.Error()}
}

// FillTemplate replaces each {#var#} placeholder in order. Missing values leave the
// placeholder untouched, surplus values are ignored.
func FillTemplate(template string, vars ...string) string {
	const placeholder = "{#var#}"

	var b strings.Builder
	rest := template
	for _, v := range vars {
		idx := strings.Index(rest, placeholder)
		if idx < 0 {
			break
		}
		b.WriteString(rest[:idx])
		b.WriteString(v)
		rest = rest[idx+len(placeholder):]
	}
	b.WriteString(rest)
	return b.String()
}

// MockSMSGateway implements SMSGateway for testing and development
type MockSMSGateway struct {
	mu           sync.Mutex
	SentMessages []MockSMSMessage
	// Result, when set, is returned instead of the default success reply
	Result *SendResult
}

// MockSMSMessage represents a mock SMS message
type MockSMSMessage struct {
	Recipient string
	Message   string
	SentAt    time.Time
}

// NewMockSMSGateway creates a new mock SMS gateway
func NewMockSMSGateway() *MockSMSGateway {
	return &MockSMSGateway{
		SentMessages: make([]MockSMSMessage, 0),
	}
}

// Send records the message and returns a successful object reply
func (m *MockSMSGateway) Send(ctx context.Context, destination, message string) SendResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockMessage := MockSMSMessage{
		Recipient: destination,
		Message:   message,
		SentAt:    utils.UTCNow(),
	}
	log.Printf("Mock SMS message sent to %s: %s", destination, message)
	m.SentMessages = append(m.SentMessages, mockMessage)

	if m.Result != nil {
		return *m.Result
	}
	return SendResult{
		OK:       true,
		Response: ObjectResponse{"ErrorCode": "000", "ErrorMessage": "Success"},
	}
}

// GetSentMessages returns a copy of all sent mock messages
func (m *MockSMSGateway) GetSentMessages() []MockSMSMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockSMSMessage(nil), m.SentMessages...)
}

// ClearSentMessages clears the sent messages list
func (m *MockSMSGateway) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = make([]MockSMSMessage, 0)
}
