package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

const (
	defaultFromName  = "Lead Qualifier"
	sendGridEndpoint = "/v3/mail/send"
)

// EmailSender delivers one message. HotLeadNotifier only depends on this.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single-recipient email. HTML is optional.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// BaseURL overrides https://api.sendgrid.com.
	BaseURL string
}

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	client   *sendgrid.Client
	from     *mail.Email
	fromName string
	logger   *logging.Logger
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}

	var client *sendgrid.Client
	if cfg.BaseURL == "" {
		client = sendgrid.NewSendClient(cfg.APIKey)
	} else {
		req := sendgrid.GetRequest(cfg.APIKey, sendGridEndpoint, cfg.BaseURL)
		req.Method = http.MethodPost
		client = &sendgrid.Client{Request: req}
	}
	return &SendGridSender{
		client:   client,
		from:     mail.NewEmail(cfg.FromName, cfg.FromEmail),
		fromName: cfg.FromName,
		logger:   logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = msg.Body
	}
	message := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, htmlBody)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send to %s failed: %w", msg.To, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		s.logger.Error("sendgrid rejected hot lead email", "status", resp.StatusCode, "body", resp.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Debug("hot lead email accepted by sendgrid", "to", msg.To, "status", resp.StatusCode)
	return nil
}

// LogEmailSender writes hot-lead emails to the log instead of sending them.
// EMAIL_PROVIDER=log selects it for local runs.
type LogEmailSender struct {
	logger *logging.Logger
}

func NewLogEmailSender(logger *logging.Logger) *LogEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("hot lead email (log only)", "to", msg.To, "subject", msg.Subject, "body_bytes", len(msg.Body))
	return nil
}
