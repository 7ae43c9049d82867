package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
)

const (
	issuer          = "marketing-console-backend"
	defaultTokenTTL = time.Hour
	maxTokenTTL     = 24 * time.Hour
)

// ProjectStore loads projects
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
}

// AuthService issues and validates project access tokens
type AuthService struct {
	projectRepo ProjectStore
	jwtSecret   []byte
	now         func() time.Time
}

func NewAuthService(projectRepo ProjectStore, jwtSecret string) (*AuthService, error) {
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &AuthService{
		projectRepo: projectRepo,
		jwtSecret:   []byte(jwtSecret),
		now:         time.Now,
	}, nil
}

// IssueToken signs an access token for a project
func (s *AuthService) IssueToken(ctx context.Context, projectID string, req *models.IssueTokenRequest) (*models.TokenResponse, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, apperrors.NewNotFound("project", projectID)
	}

	ttl := defaultTokenTTL
	if req != nil && req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}
	if ttl > maxTokenTTL {
		ttl = maxTokenTTL
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &models.ProjectClaims{
		ProjectID: project.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   project.ID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &models.TokenResponse{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expiresAt.UTC()}, nil
}

// ValidateToken verifies a bearer token and returns the project it grants
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.Project, *models.TokenInfo, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.ProjectClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*models.ProjectClaims)
	if !ok || !token.Valid || claims.ProjectID == "" {
		return nil, nil, errors.New("invalid token claims")
	}

	project, err := s.projectRepo.GetByID(ctx, claims.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, nil, errors.New("project not found")
	}

	info := &models.TokenInfo{ProjectID: claims.ProjectID}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return project, info, nil
}
