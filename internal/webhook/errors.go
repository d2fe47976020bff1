package webhook

import "errors"

var (
	// ErrEndpointNotFound is returned when an endpoint does not exist
	// or is soft-deleted.
	ErrEndpointNotFound = errors.New("webhook endpoint not found")
	// ErrDeliveryNotFound is returned when a delivery does not exist
	// or is not in a retryable state.
	ErrDeliveryNotFound = errors.New("webhook delivery not found")
)
