package api_key

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
)

const prefixMarker = "mk_"

// Store is the API key persistence the service needs
type Store interface {
	Create(ctx context.Context, apiKey *models.APIKey) error
	GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.APIKey, error)
	UpdateLastUsed(ctx context.Context, id string) error
	Deactivate(ctx context.Context, projectID, id string) (bool, error)
}

// Service handles API key operations
type Service struct {
	apiKeyRepo Store
}

// NewService creates a new API key service
func NewService(apiKeyRepo Store) *Service {
	return &Service{apiKeyRepo: apiKeyRepo}
}

// NewKey builds an unsaved API key for a project and returns it with the raw
// key, which is never stored
func NewKey(projectID string) (*models.APIKey, string, error) {
	prefixBytes, err := randomHex(4)
	if err != nil {
		return nil, "", err
	}
	secret, err := randomHex(24)
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash API key: %w", err)
	}

	prefix := prefixMarker + prefixBytes
	return &models.APIKey{
		ProjectID:  projectID,
		Prefix:     prefix,
		SecretHash: string(hash),
		IsActive:   true,
	}, prefix + "." + secret, nil
}

// GenerateAPIKey creates and stores an additional API key for a project
func (s *Service) GenerateAPIKey(ctx context.Context, tenant models.Tenant) (*models.APIKeyResponse, error) {
	apiKey, raw, err := NewKey(tenant.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	if err := s.apiKeyRepo.Create(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}
	return &models.APIKeyResponse{APIKey: apiKey, Key: raw}, nil
}

// ListAPIKeys lists the keys of a project without their secrets
func (s *Service) ListAPIKeys(ctx context.Context, tenant models.Tenant) ([]*models.APIKey, error) {
	return s.apiKeyRepo.ListByProject(ctx, tenant.ProjectID)
}

// RevokeAPIKey disables a key of the project
func (s *Service) RevokeAPIKey(ctx context.Context, tenant models.Tenant, id string) error {
	ok, err := s.apiKeyRepo.Deactivate(ctx, tenant.ProjectID, id)
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	if !ok {
		return apperrors.NewNotFound("api key", id)
	}
	return nil
}

// ValidateAPIKey validates a raw key and returns the owning project
func (s *Service) ValidateAPIKey(ctx context.Context, raw string) (*models.Project, error) {
	prefix, secret, ok := strings.Cut(raw, ".")
	if !ok || !strings.HasPrefix(prefix, prefixMarker) || secret == "" {
		return nil, fmt.Errorf("invalid API key format")
	}

	apiKey, err := s.apiKeyRepo.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	if apiKey == nil {
		return nil, fmt.Errorf("invalid API key")
	}
	if !apiKey.IsActive {
		return nil, fmt.Errorf("API key is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(apiKey.SecretHash), []byte(secret)); err != nil {
		return nil, fmt.Errorf("invalid API key")
	}

	if err := s.apiKeyRepo.UpdateLastUsed(ctx, apiKey.ID); err != nil {
		// Log the error but don't fail the request
		logrus.WithError(err).Warn("Failed to update API key last used timestamp")
	}

	project := apiKey.Project
	return &project, nil
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
