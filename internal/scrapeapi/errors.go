package scrapeapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider calls.
var (
	// ErrProviderUnauthorized indicates the stored credential was rejected.
	ErrProviderUnauthorized = errors.New("scraping provider rejected the API key")
	// ErrJobHandleNotFound indicates the job handle is unknown to the provider.
	ErrJobHandleNotFound = errors.New("provider job handle not found")
	// ErrJobNotReady indicates results are not materialized yet.
	ErrJobNotReady = errors.New("provider job not ready")
)

// ProviderError carries a non-2xx provider response that has no
// dedicated sentinel.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.Status)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}
