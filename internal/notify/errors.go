// Package notify wraps the third-party delivery providers (WhatsApp Business
// Graph API, Resend) behind a small shared error taxonomy so the intake
// workflow can branch on retryable vs. permanent failures.
package notify

import (
	"errors"
	"fmt"
)

// DeliveryError classifies a failed provider call.
type DeliveryError struct {
	Provider        string
	Code            string
	Message         string
	Retryable       bool
	TemplateMissing bool
}

func (e *DeliveryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Retryable reports whether err is a delivery failure worth a user-triggered
// retry. Non-delivery errors are not retryable.
func Retryable(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

func retryableErr(provider, code, message string) *DeliveryError {
	return &DeliveryError{Provider: provider, Code: code, Message: message, Retryable: true}
}

func permanentErr(provider, code, message string) *DeliveryError {
	return &DeliveryError{Provider: provider, Code: code, Message: message}
}
