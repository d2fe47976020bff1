// Package middleware provides HTTP middleware for the LeadLens API.
package middleware

import (
	"errors"
	"strings"
)

// Validation limits.
const (
	// MaxTargetURLLength is the maximum length for a scraping target URL.
	MaxTargetURLLength = 2048

	// MaxWebhookURLLength is the maximum length for webhook URLs.
	MaxWebhookURLLength = 1024

	// MaxRequestBodyBytes caps JSON request bodies.
	MaxRequestBodyBytes = 1 << 20 // 1 MiB
)

// Validation errors.
var (
	ErrTargetURLTooLong  = errors.New("target URL exceeds maximum length")
	ErrTargetURLInvalid  = errors.New("target URL is invalid")
	ErrTargetURLUnsafe   = errors.New("target URL uses unsafe scheme")
	ErrWebhookURLTooLong = errors.New("webhook URL exceeds maximum length")
)

// ValidateTargetURL performs cheap rejection of malformed scraping targets
// before they reach the service layer. Deeper normalization happens there.
func ValidateTargetURL(url string) error {
	if len(url) > MaxTargetURLLength {
		return ErrTargetURLTooLong
	}

	lowerURL := strings.ToLower(url)
	if !strings.HasPrefix(lowerURL, "http://") && !strings.HasPrefix(lowerURL, "https://") {
		return ErrTargetURLInvalid
	}

	// Block dangerous schemes (in case of URL encoding tricks)
	forbiddenSchemes := []string{"javascript:", "data:", "vbscript:", "file:"}
	for _, scheme := range forbiddenSchemes {
		if strings.Contains(lowerURL, scheme) {
			return ErrTargetURLUnsafe
		}
	}

	return nil
}

// ValidateWebhookURL validates a webhook target URL.
func ValidateWebhookURL(url string) error {
	if len(url) > MaxWebhookURLLength {
		return ErrWebhookURLTooLong
	}

	// Additional validation is done in webhook.ValidateTargetURL
	return nil
}
