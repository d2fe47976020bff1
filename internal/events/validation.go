// Package events provides job activity capture and processing.
package events

import "fmt"

const maxDetailLength = 512

var knownStatuses = map[string]struct{}{
	"pending":   {},
	"running":   {},
	"completed": {},
	"failed":    {},
}

// ValidateJobEventPayload validates job event payload fields.
func ValidateJobEventPayload(payload JobEventPayload) error {
	if payload.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if payload.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if _, ok := knownStatuses[payload.Status]; !ok {
		return fmt.Errorf("unknown status %q", payload.Status)
	}
	if payload.ResultCount < 0 {
		return fmt.Errorf("result_count must not be negative")
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if len(payload.Detail) > maxDetailLength {
		return fmt.Errorf("detail too long")
	}
	return nil
}
