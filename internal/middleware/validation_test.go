package middleware

import (
	"strings"
	"testing"
)

func TestValidateTargetURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{
			name:    "valid https",
			url:     "https://linkedin.com/in/jane-doe",
			wantErr: nil,
		},
		{
			name:    "valid http",
			url:     "http://linkedin.com/posts/activity-1234",
			wantErr: nil,
		},
		{
			name:    "valid with path",
			url:     "https://www.linkedin.com/in/jane-doe/recent-activity",
			wantErr: nil,
		},
		{
			name:    "javascript scheme blocked",
			url:     "javascript:alert('xss')",
			wantErr: ErrTargetURLInvalid,
		},
		{
			name:    "data scheme blocked",
			url:     "data:text/html,<h1>test</h1>",
			wantErr: ErrTargetURLInvalid,
		},
		{
			name:    "file scheme blocked",
			url:     "file:///etc/passwd",
			wantErr: ErrTargetURLInvalid,
		},
		{
			name:    "too long URL",
			url:     "https://linkedin.com/in/" + strings.Repeat("a", 2100),
			wantErr: ErrTargetURLTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargetURL(tt.url)
			if err != tt.wantErr {
				t.Errorf("ValidateTargetURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{
			name:    "valid https",
			url:     "https://hooks.example.com/leadlens",
			wantErr: nil,
		},
		{
			name:    "too long URL",
			url:     "https://hooks.example.com/" + strings.Repeat("a", 1100),
			wantErr: ErrWebhookURLTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhookURL(tt.url)
			if err != tt.wantErr {
				t.Errorf("ValidateWebhookURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
