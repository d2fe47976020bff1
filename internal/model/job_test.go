package model

import "testing"

func TestJobStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{"pending to running", JobStatusPending, JobStatusRunning, true},
		{"pending to completed", JobStatusPending, JobStatusCompleted, false},
		{"pending to failed", JobStatusPending, JobStatusFailed, false},
		{"running to completed", JobStatusRunning, JobStatusCompleted, true},
		{"running to failed", JobStatusRunning, JobStatusFailed, true},
		{"running to pending", JobStatusRunning, JobStatusPending, false},
		{"completed to running", JobStatusCompleted, JobStatusRunning, false},
		{"completed to failed", JobStatusCompleted, JobStatusFailed, false},
		{"failed to completed", JobStatusFailed, JobStatusCompleted, false},
		{"failed to running", JobStatusFailed, JobStatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	nonTerminal := []JobStatus{JobStatusPending, JobStatusRunning}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestJobKind_IsValid(t *testing.T) {
	t.Parallel()

	for _, k := range ValidJobKinds {
		if !k.IsValid() {
			t.Errorf("%s should be valid", k)
		}
	}

	if JobKind("company_lookup").IsValid() {
		t.Error("unknown kind should not be valid")
	}
	if JobKind("").IsValid() {
		t.Error("empty kind should not be valid")
	}
}
