package notify

import (
	"context"
	"io"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"donation-server/internal/infra"
)

// EmailOptions configures the Resend-backed receipt sender.
type EmailOptions struct {
	APIKey    string
	From      string
	OrgName   string
	OrgEmail  string
	OrgPhone  string
	PortalURL string
	Logger    *infra.Logger
}

// EmailSender delivers donation receipts through the Resend API.
type EmailSender struct {
	client    *resend.Client
	from      string
	orgName   string
	orgEmail  string
	orgPhone  string
	portalURL string
	logger    *infra.Logger
}

// Receipt captures the merge fields of one receipt email.
type Receipt struct {
	To        string
	Locale    string
	DonorName string
	Amount    string
	ReceiptNo string
	Category  string
	Date      string
}

// NewEmailSender constructs the sender. An empty API key yields a sender whose
// calls fail with a permanent configuration error rather than a nil client.
func NewEmailSender(opts EmailOptions) *EmailSender {
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	var client *resend.Client
	if strings.TrimSpace(opts.APIKey) != "" {
		client = resend.NewClient(opts.APIKey)
	}
	return &EmailSender{
		client:    client,
		from:      opts.From,
		orgName:   opts.OrgName,
		orgEmail:  opts.OrgEmail,
		orgPhone:  opts.OrgPhone,
		portalURL: opts.PortalURL,
		logger:    logger,
	}
}

// HasCredentials reports whether the sender can perform remote calls.
func (s *EmailSender) HasCredentials() bool {
	return s.client != nil
}

// SendReceipt renders the receipt in the donor's language and sends it.
// Returns the provider message id.
func (s *EmailSender) SendReceipt(ctx context.Context, r Receipt) (string, error) {
	if s.client == nil {
		return "", permanentErr("resend", "missing_credentials", "api key is not configured")
	}
	to := strings.TrimSpace(r.To)
	if to == "" {
		return "", permanentErr("resend", "missing_recipient", "recipient email is required")
	}

	subject, html, err := RenderReceiptEmail(r.Locale, ReceiptData{
		DonorName: r.DonorName,
		Amount:    r.Amount,
		ReceiptNo: r.ReceiptNo,
		Category:  r.Category,
		Date:      r.Date,
		OrgName:   s.orgName,
		OrgEmail:  s.orgEmail,
		OrgPhone:  s.orgPhone,
		PortalURL: s.portalURL,
	})
	if err != nil {
		return "", err
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		// The SDK does not expose a status code, so failed sends are treated
		// as retryable; the manual resend endpoint covers the user-side retry.
		return "", retryableErr("resend", "send_failed", err.Error())
	}

	s.logger.Debug().
		Str("message_id", sent.Id).
		Str("receipt_no", r.ReceiptNo).
		Msg("resend: receipt delivered")
	return sent.Id, nil
}
