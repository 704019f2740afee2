package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const profileKey = "auth_profile"

// ProfileEnsurer resolves a token identity to a profile, creating the
// profile record on first sign-in.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, uid, email, displayName, photoURL string) (*domain.Profile, error)
}

// AuthMiddleware validates bearer tokens and loads the caller's profile.
type AuthMiddleware struct {
	tokens   *TokenManager
	profiles ProfileEnsurer
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, profiles ProfileEnsurer) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, profiles: profiles}
}

// Handle enforces authentication for protected routes. The profile record
// is created lazily on the first authenticated request of a new identity.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	profile, err := m.profiles.EnsureProfile(c.Context(), claims.UID, claims.Email, claims.Name, claims.Picture)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(profileKey, profile)
	return c.Next()
}

// ProfileFromContext retrieves the authenticated profile.
func ProfileFromContext(c *fiber.Ctx) (*domain.Profile, bool) {
	val := c.Locals(profileKey)
	if val == nil {
		return nil, false
	}
	profile, ok := val.(*domain.Profile)
	return profile, ok
}

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		profile, ok := ProfileFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[profile.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
