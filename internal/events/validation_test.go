package events

import (
	"strings"
	"testing"
	"time"
)

func validPayload() JobEventPayload {
	return JobEventPayload{
		JobID:       "01JABCDEF0123456789ABCDEFG",
		OwnerID:     "01JABCDEF0123456789ABCDEFH",
		Status:      "running",
		ResultCount: 0,
		OccurredAt:  time.Now().UnixMilli(),
	}
}

func TestValidateJobEventPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*JobEventPayload)
		wantErr bool
	}{
		{"valid", func(p *JobEventPayload) {}, false},
		{"valid_with_detail", func(p *JobEventPayload) { p.Detail = "job started" }, false},
		{"missing_job_id", func(p *JobEventPayload) { p.JobID = "" }, true},
		{"missing_owner_id", func(p *JobEventPayload) { p.OwnerID = "" }, true},
		{"unknown_status", func(p *JobEventPayload) { p.Status = "cancelled" }, true},
		{"negative_count", func(p *JobEventPayload) { p.ResultCount = -1 }, true},
		{"zero_timestamp", func(p *JobEventPayload) { p.OccurredAt = 0 }, true},
		{"detail_too_long", func(p *JobEventPayload) { p.Detail = strings.Repeat("x", maxDetailLength+1) }, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			payload := validPayload()
			test.mutate(&payload)

			err := ValidateJobEventPayload(payload)
			if (err != nil) != test.wantErr {
				t.Fatalf("ValidateJobEventPayload() error = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

func TestValidateJobEventPayload_AllStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"pending", "running", "completed", "failed"} {
		payload := validPayload()
		payload.Status = status
		if err := ValidateJobEventPayload(payload); err != nil {
			t.Errorf("status %q should be valid, got %v", status, err)
		}
	}
}
