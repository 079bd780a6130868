package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role of a registered user
type UserRole string

const (
	RoleUser    UserRole = "USER"
	RoleAuditor UserRole = "AUDITOR"
	RoleAdmin   UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleAuditor, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered user of the audit trail
type User struct {
	ID           string   `json:"id" db:"id" yaml:"id"`
	Username     string   `json:"username" db:"username" yaml:"username"`
	Email        string   `json:"email" db:"email" yaml:"email"`
	Role         UserRole `json:"role" db:"role" yaml:"role"`
	Organization string   `json:"organization" db:"organization" yaml:"organization"`
	Permissions  []string `json:"permissions" db:"permissions" yaml:"permissions"`
	Active       bool     `json:"active" db:"active" yaml:"active"`
	CreatedAt    int64    `json:"createdAt" db:"created_at" yaml:"createdAt"` // ms since epoch
	UpdatedAt    int64    `json:"updatedAt" db:"updated_at" yaml:"updatedAt"` // ms since epoch
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active User with a generated ID.
// A nil permissions list is stored as an empty list.
func NewUser(username, email string, role UserRole, organization string, permissions []string, now time.Time) *User {
	if permissions == nil {
		permissions = []string{}
	}
	ts := now.UnixMilli()
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Role:         role,
		Organization: organization,
		Permissions:  permissions,
		Active:       true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

// UserPatch lists the mutable fields of a User. Nil fields are left untouched.
type UserPatch struct {
	Role   *UserRole
	Active *bool
}

// IsEmpty returns true when the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.Role == nil && p.Active == nil
}

// Apply applies the patch and stamps UpdatedAt
func (u *User) Apply(p UserPatch, updatedAt int64) {
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
	u.UpdatedAt = updatedAt
}
