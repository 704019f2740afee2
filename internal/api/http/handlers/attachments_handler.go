package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AttachmentsHandler issues direct-to-bucket upload credentials. File bytes
// never pass through this service.
type AttachmentsHandler struct {
	storage *storage.Client
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(storageClient *storage.Client) *AttachmentsHandler {
	return &AttachmentsHandler{storage: storageClient}
}

// Presign POST /attachments/presign.
func (h *AttachmentsHandler) Presign(c *fiber.Ctx) error {
	if h.storage == nil {
		return apperrors.NewDomainError("STORAGE_DISABLED", "attachment storage not configured", fiber.StatusServiceUnavailable, nil)
	}
	var req dto.PresignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.ContentType) == "" {
		return apperrors.NewValidationError("filename and content_type required", nil)
	}

	cred, err := h.storage.PresignUpload(c.UserContext(), req.Filename, req.ContentType)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.PresignResponse{
		URL:       cred.URL,
		Method:    cred.Method,
		ObjectKey: cred.ObjectKey,
		PublicURL: cred.PublicURL,
		ExpiresAt: cred.ExpiresAt,
	}})
}
