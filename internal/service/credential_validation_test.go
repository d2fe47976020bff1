package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leadlens/leadlens/internal/model"
)

func TestCreateCredentialValidationErrors(t *testing.T) {
	t.Parallel()

	svc := &CredentialService{}

	tests := []struct {
		name    string
		input   model.CredentialCreateRequest
		wantErr error
	}{
		{
			name:    "empty_label",
			input:   model.CredentialCreateRequest{Label: "", Secret: "long-enough-secret"},
			wantErr: ErrInvalidLabel,
		},
		{
			name:    "label_starts_with_symbol",
			input:   model.CredentialCreateRequest{Label: "-prod", Secret: "long-enough-secret"},
			wantErr: ErrInvalidLabel,
		},
		{
			name:    "label_too_long",
			input:   model.CredentialCreateRequest{Label: "a" + strings.Repeat("b", 64), Secret: "long-enough-secret"},
			wantErr: ErrInvalidLabel,
		},
		{
			name:    "label_with_newline",
			input:   model.CredentialCreateRequest{Label: "prod\nkey", Secret: "long-enough-secret"},
			wantErr: ErrInvalidLabel,
		},
		{
			name:    "secret_too_short",
			input:   model.CredentialCreateRequest{Label: "prod", Secret: "short"},
			wantErr: ErrInvalidSecret,
		},
		{
			name:    "secret_only_whitespace",
			input:   model.CredentialCreateRequest{Label: "prod", Secret: "          "},
			wantErr: ErrInvalidSecret,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.CreateCredential(context.Background(), "owner-1", test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}
