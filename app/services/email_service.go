package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/utils"
)

const sendEmailURL = "https://api.brevo.com/v3/smtp/email"

// EmailService handles transactional email delivery
type EmailService interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}

// EmailServiceImpl implements EmailService via the Brevo transactional API
type EmailServiceImpl struct {
	config   *config.EmailConfig
	client   *http.Client
	endpoint string
}

type brevoResp struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg *config.EmailConfig) EmailService {
	return &EmailServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint: sendEmailURL,
	}
}

// Send delivers one transactional email
func (s *EmailServiceImpl) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	body := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Email: s.config.SenderEmail,
			Name:  s.config.SenderName,
		},
		ReplyTo: &brevo.SendSmtpEmailReplyTo{
			Email: s.config.SenderEmail,
		},
		To:          []brevo.SendSmtpEmailTo{{Email: recipient}},
		Subject:     subject,
		HtmlContent: htmlBody,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("failed to reach email gateway: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &TransientError{Err: fmt.Errorf("email gateway returned %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("failed to read email gateway response: %w", err)}
	}
	var result brevoResp
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return fmt.Errorf("failed to decode email gateway response: %w", err)
		}
	}
	// A rejected request stays rejected even when the gateway omits a body.
	if resp.StatusCode >= 400 {
		if result.Message != "" {
			return fmt.Errorf("email delivery failed: %s (%s)", result.Message, result.Code)
		}
		return fmt.Errorf("email delivery failed with status %d", resp.StatusCode)
	}
	if result.Message != "" {
		return fmt.Errorf("email delivery failed: %s (%s)", result.Message, result.Code)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []MockEmail
	FailFor    map[string]error // recipient -> error to return
}

// MockEmail represents a mock transactional email
type MockEmail struct {
	Recipient string
	Subject   string
	HTMLBody  string
	SentAt    time.Time
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{
		SentEmails: make([]MockEmail, 0),
	}
}

func (m *MockEmailService) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailFor[recipient]; ok {
		return err
	}
	m.SentEmails = append(m.SentEmails, MockEmail{
		Recipient: recipient,
		Subject:   subject,
		HTMLBody:  htmlBody,
		SentAt:    utils.UTCNow(),
	})
	return nil
}

// GetSentEmails returns all sent mock emails
func (m *MockEmailService) GetSentEmails() []MockEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockEmail, len(m.SentEmails))
	copy(out, m.SentEmails)
	return out
}

// ClearSentEmails clears the sent emails list
func (m *MockEmailService) ClearSentEmails() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = m.SentEmails[:0]
}
