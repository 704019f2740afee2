package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/pkg/translate"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TranslateHandler proxies translation requests so the API key never
// reaches clients. On provider failure the original text comes back
// unchanged; a broken translator must not break reading tickets.
type TranslateHandler struct {
	translator *translate.Client
	logger     *zap.Logger
}

// NewTranslateHandler constructs handler.
func NewTranslateHandler(translator *translate.Client, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{translator: translator, logger: logger}
}

// Translate POST /translate.
func (h *TranslateHandler) Translate(c *fiber.Ctx) error {
	var req dto.TranslateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.TargetLanguage) == "" {
		return apperrors.NewValidationError("text and target_language required", nil)
	}

	translated, err := h.translator.Translate(c.UserContext(), req.Text, req.TargetLanguage, req.SourceLanguage)
	if err != nil {
		if !errors.Is(err, translate.ErrNotConfigured) {
			h.logger.Warn("translation failed; returning original text", zap.Error(err))
		}
		translated = req.Text
	}
	return c.JSON(fiber.Map{"data": dto.TranslateResponse{TranslatedText: translated}})
}
