package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ProfilesHandler manages profile and role administration endpoints.
type ProfilesHandler struct {
	profiles *service.ProfileService
}

// NewProfilesHandler constructs handler.
func NewProfilesHandler(profileService *service.ProfileService) *ProfilesHandler {
	return &ProfilesHandler{profiles: profileService}
}

// Me GET /profiles/me.
func (h *ProfilesHandler) Me(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": profileResponse(profile)})
}

// ListWorkers GET /profiles/workers. Admin only; feeds the assignment
// dropdown.
func (h *ProfilesHandler) ListWorkers(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	workers, err := h.profiles.ListWorkers(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.ProfileResponse, 0, len(workers))
	for i := range workers {
		items = append(items, profileResponse(&workers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ChangeRole PUT /profiles/:uid/role.
func (h *ProfilesHandler) ChangeRole(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.profiles.ChangeRole(c.UserContext(), actor, c.Params("uid"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(updated)})
}

func profileResponse(profile *domain.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		UID:         profile.UID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		Role:        profile.Role,
		CreatedAt:   profile.CreatedAt,
	}
}
