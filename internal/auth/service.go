package auth

import (
	"strings"
)

// Service verifies and issues bearer tokens.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// VerifyToken validates the token and returns the account id it was issued for.
// A "Bearer " prefix is tolerated.
func (s *Service) VerifyToken(token string) (int64, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return 0, ErrInvalidToken
	}
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// IssueToken signs a token for the account. Used by development tooling.
func (s *Service) IssueToken(userID int64, role string) (string, error) {
	return GenerateToken(s.jwtConfig, userID, role)
}
