// Package services provides external service integrations like SMS and email delivery
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/utils"
)

// TransientError marks a delivery failure worth retrying, such as a network
// failure or a gateway 5xx. Anything else is treated as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether a delivery error should be retried
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// SMSService handles SMS sending operations
type SMSService interface {
	Send(ctx context.Context, recipient, message string, providerHandle, senderHandle *string) error
}

// SMSServiceImpl implements SMSService against the gateway HTTP API
type SMSServiceImpl struct {
	config *config.SMSConfig
	client *http.Client
}

// SMSRequest represents the request payload for the SMS gateway
type SMSRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"` // E.164 format
	Body      string `json:"body"`
}

// SMSResponse represents a single message result from the SMS gateway
type SMSResponse struct {
	MessageID  string `json:"messageId"`
	Recipient  string `json:"recipient"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewSMSService creates a new SMS service instance
func NewSMSService(cfg *config.SMSConfig) SMSService {
	return &SMSServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send delivers one SMS message. The campaign may pin a provider and sender
// handle; when absent the configured defaults apply.
func (s *SMSServiceImpl) Send(ctx context.Context, recipient, message string, providerHandle, senderHandle *string) error {
	domain := s.config.ProviderDomain
	if providerHandle != nil && *providerHandle != "" {
		if override, ok := s.config.ProviderDomains[*providerHandle]; ok {
			domain = override
		}
	}
	sender := s.config.DefaultSender
	if senderHandle != nil && *senderHandle != "" {
		sender = *senderHandle
	}

	payload := []SMSRequest{{
		Sender:    sender,
		Recipient: recipient,
		Body:      message,
	}}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v1/send", domain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("failed to reach SMS gateway: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &TransientError{Err: fmt.Errorf("SMS gateway returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SMS gateway rejected request with %d", resp.StatusCode)
	}

	var results []SMSResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return &TransientError{Err: fmt.Errorf("failed to decode SMS gateway response: %w", err)}
	}
	for _, r := range results {
		if r.StatusCode != 200 || r.Status != "ACCEPTED" {
			return fmt.Errorf("SMS delivery failed for %s: %s (%d)", r.Recipient, r.Status, r.StatusCode)
		}
	}
	return nil
}

// MockSMSService implements SMSService for testing
type MockSMSService struct {
	mu           sync.Mutex
	SentMessages []MockSMSMessage
	FailFor      map[string]error // recipient -> error to return
}

// MockSMSMessage represents a mock SMS message
type MockSMSMessage struct {
	Recipient string
	Message   string
	Sender    string
	SentAt    time.Time
}

// NewMockSMSService creates a new mock SMS service
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{
		SentMessages: make([]MockSMSMessage, 0),
	}
}

func (m *MockSMSService) Send(ctx context.Context, recipient, message string, providerHandle, senderHandle *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailFor[recipient]; ok {
		return err
	}
	sender := ""
	if senderHandle != nil {
		sender = *senderHandle
	}
	m.SentMessages = append(m.SentMessages, MockSMSMessage{
		Recipient: recipient,
		Message:   message,
		Sender:    sender,
		SentAt:    utils.UTCNow(),
	})
	return nil
}

// GetSentMessages returns all sent mock messages
func (m *MockSMSService) GetSentMessages() []MockSMSMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockSMSMessage, len(m.SentMessages))
	copy(out, m.SentMessages)
	return out
}

// ClearSentMessages clears the sent messages list
func (m *MockSMSService) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = m.SentMessages[:0]
}
