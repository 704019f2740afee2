package domain

import "time"

// Role enumerates the capability level of a profile.
type Role string

const (
	RoleUser   Role = "USER"
	RoleWorker Role = "WORKER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether the role is a known member of the enum.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

// Profile is the per-user role record, created lazily on first sign-in.
// UID is the stable external identity and never changes.
type Profile struct {
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
