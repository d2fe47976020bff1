package webhook

import (
	"testing"
	"time"
)

func TestNextRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attempt int
		base    time.Duration
	}{
		{"first_attempt", 0, 30 * time.Second},
		{"second_attempt", 1, 2 * time.Minute},
		{"third_attempt", 2, 10 * time.Minute},
		{"fourth_attempt", 3, 1 * time.Hour},
		{"fifth_attempt", 4, 6 * time.Hour},
		{"beyond_schedule", 10, 6 * time.Hour},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			delay := NextRetryDelay(test.attempt)

			// Delay must be within ±20% jitter of the base
			min := time.Duration(float64(test.base) * (1 - JitterFactor))
			max := time.Duration(float64(test.base) * (1 + JitterFactor))
			if delay < min || delay > max {
				t.Errorf("NextRetryDelay(%d) = %v, want within [%v, %v]", test.attempt, delay, min, max)
			}
		})
	}
}

func TestNextRetryDelay_Negative(t *testing.T) {
	t.Parallel()

	delay := NextRetryDelay(-5)
	if delay <= 0 {
		t.Errorf("negative attempt should still produce positive delay, got %v", delay)
	}
}

func TestIsExhausted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		attempts    int
		maxAttempts int
		want        bool
	}{
		{"fresh", 0, 5, false},
		{"mid_way", 3, 5, false},
		{"at_limit", 5, 5, true},
		{"over_limit", 6, 5, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if got := IsExhausted(test.attempts, test.maxAttempts); got != test.want {
				t.Errorf("IsExhausted(%d, %d) = %v, want %v", test.attempts, test.maxAttempts, got, test.want)
			}
		})
	}
}

func TestGetRetryDelays(t *testing.T) {
	t.Parallel()

	delays := GetRetryDelays()
	if len(delays) != DefaultMaxAttempts {
		t.Fatalf("expected %d delays, got %d", DefaultMaxAttempts, len(delays))
	}

	// Schedule must be strictly increasing
	for i := 1; i < len(delays); i++ {
		if delays[i] <= delays[i-1] {
			t.Errorf("delay %d (%v) should exceed delay %d (%v)", i, delays[i], i-1, delays[i-1])
		}
	}

	// Returned slice is a copy
	delays[0] = 0
	if GetRetryDelays()[0] == 0 {
		t.Error("GetRetryDelays must return a copy")
	}
}
