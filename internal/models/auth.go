package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProjectClaims are the claims of a project access token
type ProjectClaims struct {
	ProjectID string `json:"project_id"`
	jwt.RegisteredClaims
}

// TokenInfo represents a validated access token
type TokenInfo struct {
	ProjectID string    `json:"project_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueTokenRequest represents a request for a project access token
type IssueTokenRequest struct {
	TTLMinutes int `json:"ttl_minutes" example:"60"`
}

// TokenResponse carries a signed access token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// APIKeyResponse carries a newly generated API key. The raw key is only
// shown once.
type APIKeyResponse struct {
	APIKey *APIKey `json:"api_key"`
	Key    string  `json:"key" example:"mk_3f9a2b1c.5d1e..."`
}
