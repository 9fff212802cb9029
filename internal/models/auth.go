package models

import "github.com/golang-jwt/jwt/v5"

// AdminRole represents the admin roles issued by the auth collaborator.
type AdminRole string

const (
	RoleMasterAdmin  AdminRole = "Master Admin"
	RoleSuperAdmin   AdminRole = "Super Admin"
	RoleSupportAdmin AdminRole = "Support Admin"
	RoleCohortAdmin  AdminRole = "Cohort Admin"
)

// JWTClaims represents the JWT payload for admin access tokens.
type JWTClaims struct {
	AdminID        string    `json:"id"`
	Role           AdminRole `json:"role"`
	Email          string    `json:"email"`
	CohortAssigned string    `json:"cohortAssigned,omitempty"`
	jwt.RegisteredClaims
}
