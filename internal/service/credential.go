// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/leadlens/leadlens/internal/model"
	"github.com/leadlens/leadlens/internal/repository"
)

// Credential service errors.
var (
	ErrInvalidLabel       = errors.New("invalid credential label")
	ErrInvalidSecret      = errors.New("credential secret too short")
	ErrLabelTaken         = errors.New("credential label already in use")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialInactive = errors.New("credential is deactivated")
)

// Label validation regex: 1-64 chars, must start alphanumeric.
var labelRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 ._-]{0,63}$`)

const minSecretLength = 8

// CredentialService manages stored scraping-provider keys.
type CredentialService struct {
	repo *repository.Repository
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(repo *repository.Repository) *CredentialService {
	return &CredentialService{repo: repo}
}

// CreateCredential validates and stores a provider key for a user.
func (s *CredentialService) CreateCredential(ctx context.Context, ownerID string, input model.CredentialCreateRequest) (*model.Credential, error) {
	label := strings.TrimSpace(input.Label)
	if !labelRegex.MatchString(label) {
		return nil, ErrInvalidLabel
	}
	if len(strings.TrimSpace(input.Secret)) < minSecretLength {
		return nil, ErrInvalidSecret
	}

	now := time.Now().UTC()
	cred := &model.Credential{
		ID:        ulid.Make().String(),
		UserID:    ownerID,
		Label:     label,
		Secret:    strings.TrimSpace(input.Secret),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrLabelExists) {
			return nil, ErrLabelTaken
		}
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	return cred, nil
}

// GetCredential retrieves a credential owned by the given user.
func (s *CredentialService) GetCredential(ctx context.Context, ownerID, id string) (*model.Credential, error) {
	cred, err := s.repo.GetCredentialByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	// Ownership is part of the lookup: foreign credentials look absent.
	if cred.UserID != ownerID {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}

// ListCredentials returns all credentials owned by a user.
func (s *CredentialService) ListCredentials(ctx context.Context, ownerID string) ([]*model.Credential, error) {
	return s.repo.ListCredentialsByUser(ctx, ownerID)
}

// DeactivateCredential marks a credential inactive. Jobs referencing it
// keep their reference but can no longer be created with it.
func (s *CredentialService) DeactivateCredential(ctx context.Context, ownerID, id string) error {
	if _, err := s.GetCredential(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.DeactivateCredential(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrCredentialNotFound
		}
		return err
	}
	return nil
}

// ResolveProviderKey returns the secret of an active credential owned by
// the given user. Callers use it to authorize outbound provider calls.
func (s *CredentialService) ResolveProviderKey(ctx context.Context, ownerID, id string) (string, error) {
	cred, err := s.GetCredential(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	if !cred.Active {
		return "", ErrCredentialInactive
	}
	return cred.Secret, nil
}
