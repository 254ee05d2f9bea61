package service

import (
	"errors"
	"fmt"

	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Role distinguishes the two bearer roles this service cares about. Token
// issuance (login, SSO) lives in the campus identity service; we only
// validate what it minted.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// ErrInvalidToken indicates the bearer token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	Role     Role   `json:"role"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

// AuthService validates bearer tokens issued by the identity service.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// ValidateToken parses and verifies a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.CourseID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
