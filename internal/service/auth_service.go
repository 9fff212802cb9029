package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

// AuthConfig defines configuration for access token validation.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
}

// AuthService validates admin access tokens issued by the admin console.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = time.Hour
	}
	return &AuthService{logger: logger, config: config}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !knownRole(claims.Role) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown admin role")
	}
	if claims.Role == models.RoleCohortAdmin && strings.TrimSpace(claims.CohortAssigned) == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cohort admin has no assigned cohort")
	}

	return claims, nil
}

// IssueToken signs a short-lived token for an admin identity. Used by tooling that replays
// protected routes; interactive login stays with the admin console.
func (s *AuthService) IssueToken(adminID string, role models.AdminRole, cohort string) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := models.JWTClaims{
		AdminID:        adminID,
		Role:           role,
		CohortAssigned: cohort,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   adminID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func knownRole(role models.AdminRole) bool {
	switch role {
	case models.RoleMasterAdmin, models.RoleSuperAdmin, models.RoleSupportAdmin, models.RoleCohortAdmin:
		return true
	default:
		return false
	}
}
