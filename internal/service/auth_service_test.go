package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

func newAuthServiceForTest() *AuthService {
	return NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour})
}

func TestValidateToken(t *testing.T) {
	svc := newAuthServiceForTest()
	token, expiresAt, err := svc.IssueToken("admin-1", models.RoleCohortAdmin, "Cohort A")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Equal(t, models.RoleCohortAdmin, claims.Role)
	assert.Equal(t, "Cohort A", claims.CohortAssigned)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other"})
	token, _, err := other.IssueToken("admin-1", models.RoleMasterAdmin, "")
	require.NoError(t, err)

	_, err = newAuthServiceForTest().ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenExpired(t *testing.T) {
	claims := models.JWTClaims{
		AdminID: "admin-1",
		Role:    models.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newAuthServiceForTest().ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	svc := newAuthServiceForTest()
	token, _, err := svc.IssueToken("admin-1", models.AdminRole("Learner"), "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenCohortAdminNeedsCohort(t *testing.T) {
	svc := newAuthServiceForTest()
	token, _, err := svc.IssueToken("admin-1", models.RoleCohortAdmin, " ")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := models.JWTClaims{AdminID: "admin-1", Role: models.RoleMasterAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newAuthServiceForTest().ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
