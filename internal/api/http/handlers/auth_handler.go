package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthHandler manages registration and login.
type AuthHandler struct {
	profiles *service.ProfileService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(profileService *service.ProfileService) *AuthHandler {
	return &AuthHandler{profiles: profileService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, token, exp, err := h.profiles.Register(c.UserContext(), req.Email, req.DisplayName, req.PhotoURL, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"profile": profileResponse(profile),
		"auth":    dto.AuthResponse{Token: token, ExpiresAt: exp},
	}})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, token, exp, err := h.profiles.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"profile": profileResponse(profile),
		"auth":    dto.AuthResponse{Token: token, ExpiresAt: exp},
	}})
}
