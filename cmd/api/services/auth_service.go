package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"

	"chat-layer/cmd/api/auth"
)

// AuthService issues and validates operator tokens. There is no end-user
// login; site visitors are identified by fingerprint only, and the admin
// surface is protected by a single operator API key exchanged for a JWT.
type AuthService struct {
	jwtManager  *auth.JWTManager
	adminAPIKey string
}

var ErrInvalidAPIKey = errors.New("invalid_api_key")

func NewAuthService(jwtManager *auth.JWTManager, adminAPIKey string) *AuthService {
	return &AuthService{jwtManager: jwtManager, adminAPIKey: adminAPIKey}
}

func NewAuthServiceFromEnv() (*AuthService, error) {
	jwtManager, err := auth.NewJWTManagerFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to init JWTManager: %w", err)
	}

	adminAPIKey := os.Getenv("ADMIN_API_KEY")
	if adminAPIKey == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY is blank")
	}

	return NewAuthService(jwtManager, adminAPIKey), nil
}

// Login exchanges the operator API key for an admin access token.
func (s *AuthService) Login(apiKey string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.adminAPIKey)) != 1 {
		return "", ErrInvalidAPIKey
	}
	return s.jwtManager.Sign("operator", auth.RoleAdmin)
}

func (s *AuthService) ParseAccessToken(token string) (string, string, error) {
	return s.jwtManager.Parse(token)
}
