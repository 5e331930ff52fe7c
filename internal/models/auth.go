package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds the credential pair. The identifier is an email for
// admins and teachers and a username for students; the login flow resolves
// it per class rather than through a merged lookup.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Principal is the non-secret snapshot of an authenticated actor carried
// in the session. Email is set for admins and teachers, Username and
// GradeLevel for students.
type Principal struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Email      string `json:"email,omitempty"`
	Username   string `json:"username,omitempty"`
	TeacherID  string `json:"teacher_id,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"`
}

// Session is returned on successful login. It has an explicit lifecycle:
// created here, discarded by the client at logout or token expiry.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Principal   Principal `json:"principal"`
}

// RegisterTeacherRequest is the teacher self-registration payload.
type RegisterTeacherRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterAdminRequest creates an administrator account.
type RegisterAdminRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterStudentRequest creates a student owned by the calling teacher.
type RegisterStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required,min=6"`
	GradeLevel string `json:"grade_level"`
}

// JWTClaims represents the JWT payload for access tokens. It carries the
// full non-secret principal snapshot so the current-principal endpoint can
// answer from the token alone, identical to what login returned.
type JWTClaims struct {
	PrincipalID string `json:"principal_id"`
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	TeacherID   string `json:"teacher_id,omitempty"`
	GradeLevel  string `json:"grade_level,omitempty"`
	jwt.RegisteredClaims
}

// Principal rebuilds the non-secret snapshot embedded in the claims.
func (c *JWTClaims) Principal() Principal {
	return Principal{
		ID:         c.PrincipalID,
		Name:       c.Name,
		Role:       c.Role,
		Email:      c.Email,
		Username:   c.Username,
		TeacherID:  c.TeacherID,
		GradeLevel: c.GradeLevel,
	}
}
