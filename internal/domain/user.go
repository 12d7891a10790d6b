package domain

import "time"

// Role is the closed set of account roles. Requesters submit tickets,
// support agents triage them.
type Role string

const (
	RoleRequester Role = "requester"
	RoleSupport   Role = "support"
)

// Valid reports whether the role is one of the two known values.
func (r Role) Valid() bool {
	return r == RoleRequester || r == RoleSupport
}

// User is the domain model for an account, requester or support.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
