package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ProfileResponse is the wire form of a user profile.
type ProfileResponse struct {
	UID         string      `json:"uid"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	PhotoURL    string      `json:"photo_url,omitempty"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ChangeRoleRequest payload.
type ChangeRoleRequest struct {
	Role domain.Role `json:"role"`
}
