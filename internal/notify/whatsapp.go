package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"donation-server/internal/infra"
)

// ErrMissingCredentials indicates the client was configured without a phone
// number ID or access token.
var ErrMissingCredentials = errors.New("whatsapp: phone number id and access token are required")

// Graph API error code for a missing/unapproved message template. Triggers a
// single retry with the configured fallback template.
const codeTemplateNotFound = 131026

// WhatsAppOptions configures the Graph API client.
type WhatsAppOptions struct {
	PhoneNumberID    string
	AccessToken      string
	BaseURL          string
	Template         string
	FallbackTemplate string
	HTTPClient       *http.Client
	Logger           *infra.Logger
	RequestTimeout   time.Duration
}

// WhatsAppClient performs HTTP calls to the WhatsApp Business Graph API.
type WhatsAppClient struct {
	phoneNumberID    string
	accessToken      string
	baseURL          string
	template         string
	fallbackTemplate string
	httpClient       *http.Client
	logger           *infra.Logger
}

// Confirmation captures the merge fields of a donation confirmation message.
// It carries no receipt number: confirmations go out before the donation row
// (and its receipt number) exists.
type Confirmation struct {
	To        string
	Locale    string
	DonorName string
	Amount    string
	Category  string
	OrgName   string
}

// SendResult reports a successful delivery.
type SendResult struct {
	MessageID    string
	Template     string
	UsedFallback bool
}

type templatePayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templateSection `json:"template"`
}

type templateSection struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters,omitempty"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *graphError `json:"error"`
}

type graphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

// NewWhatsAppClient constructs a client with sane defaults and injected
// dependencies.
func NewWhatsAppClient(opts WhatsAppOptions) *WhatsAppClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v22.0"
	}
	tmpl := strings.TrimSpace(opts.Template)
	if tmpl == "" {
		tmpl = "donation_confirmation"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &WhatsAppClient{
		phoneNumberID:    strings.TrimSpace(opts.PhoneNumberID),
		accessToken:      strings.TrimSpace(opts.AccessToken),
		baseURL:          baseURL,
		template:         tmpl,
		fallbackTemplate: strings.TrimSpace(opts.FallbackTemplate),
		httpClient:       httpClient,
		logger:           logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *WhatsAppClient) HasCredentials() bool {
	return c.phoneNumberID != "" && c.accessToken != ""
}

// SendConfirmation delivers the donation confirmation template. When the
// primary template is missing (code 131026) it retries once with the
// configured fallback template and marks the result accordingly.
func (c *WhatsAppClient) SendConfirmation(ctx context.Context, msg Confirmation) (*SendResult, error) {
	if !c.HasCredentials() {
		return nil, permanentErr("whatsapp", "missing_credentials", ErrMissingCredentials.Error())
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return nil, permanentErr("whatsapp", "missing_recipient", "recipient phone is required")
	}

	id, err := c.sendTemplate(ctx, c.template, msg)
	if err == nil {
		return &SendResult{MessageID: id, Template: c.template}, nil
	}

	var de *DeliveryError
	if errors.As(err, &de) && de.TemplateMissing && c.fallbackTemplate != "" {
		c.logger.Warn().
			Str("template", c.template).
			Str("fallback", c.fallbackTemplate).
			Msg("whatsapp: template missing, retrying with fallback")
		id, fbErr := c.sendTemplate(ctx, c.fallbackTemplate, msg)
		if fbErr != nil {
			return nil, fbErr
		}
		return &SendResult{MessageID: id, Template: c.fallbackTemplate, UsedFallback: true}, nil
	}
	return nil, err
}

func (c *WhatsAppClient) sendTemplate(ctx context.Context, templateName string, msg Confirmation) (string, error) {
	payload := templatePayload{
		MessagingProduct: "whatsapp",
		To:               strings.TrimSpace(msg.To),
		Type:             "template",
		Template: templateSection{
			Name:     templateName,
			Language: templateLanguage{Code: WhatsAppLanguageCode(MatchLanguage(msg.Locale))},
			Components: []templateComponent{{
				Type: "body",
				Parameters: []templateParameter{
					{Type: "text", Text: msg.DonorName},
					{Type: "text", Text: msg.Amount},
					{Type: "text", Text: msg.Category},
					{Type: "text", Text: msg.OrgName},
				},
			}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("whatsapp: encode request: %w", err)
	}
	endpoint := c.baseURL + "/" + c.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retryableErr("whatsapp", "network", err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", retryableErr("whatsapp", "network", "read response: "+err.Error())
	}

	var decoded sendResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= 500 {
			return "", retryableErr("whatsapp", strconv.Itoa(resp.StatusCode), "provider unavailable")
		}
		return "", fmt.Errorf("whatsapp: decode response: %w", err)
	}

	if resp.StatusCode >= 300 || decoded.Error != nil {
		return "", c.classify(resp.StatusCode, decoded.Error)
	}
	if len(decoded.Messages) == 0 || decoded.Messages[0].ID == "" {
		return "", retryableErr("whatsapp", "empty_response", "no message id returned")
	}

	c.logger.Debug().
		Str("template", templateName).
		Str("message_id", decoded.Messages[0].ID).
		Msg("whatsapp: confirmation delivered")
	return decoded.Messages[0].ID, nil
}

func (c *WhatsAppClient) classify(status int, gerr *graphError) *DeliveryError {
	if gerr == nil {
		if status >= 500 {
			return retryableErr("whatsapp", strconv.Itoa(status), "provider unavailable")
		}
		return permanentErr("whatsapp", strconv.Itoa(status), "request rejected")
	}

	code := strconv.Itoa(gerr.Code)
	switch {
	case gerr.Code == codeTemplateNotFound:
		de := permanentErr("whatsapp", code, gerr.Message)
		de.TemplateMissing = true
		return de
	case gerr.Code == 190 || status == http.StatusUnauthorized || status == http.StatusForbidden:
		// invalid or expired access token
		return permanentErr("whatsapp", code, gerr.Message)
	case status >= 500 || gerr.Type == "OAuthException" && gerr.Code == 2:
		// code 2 is the Graph API "service temporarily unavailable"
		return retryableErr("whatsapp", code, gerr.Message)
	default:
		return permanentErr("whatsapp", code, gerr.Message)
	}
}
