package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ProfileService coordinates sign-in, lazy profile creation, and role
// administration.
type ProfileService struct {
	profiles   repository.ProfileRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewProfileService builds the service.
func NewProfileService(cfg config.Config, profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{
		profiles:   profiles,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates credentials and the profile record in one step. New
// sign-ups always start as USER; only an admin can promote them later.
func (s *ProfileService) Register(ctx context.Context, email, displayName, photoURL, password string) (*domain.Profile, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || displayName == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email, display name, password required", nil)
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	profile := &domain.Profile{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PhotoURL:     photoURL,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(profile.UID, profile.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return profile, token, exp, nil
}

// Login authenticates credentials and returns a role-bearing token.
func (s *ProfileService) Login(ctx context.Context, email, password string) (*domain.Profile, string, time.Time, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(profile.UID, profile.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return profile, token, exp, nil
}

// EnsureProfile returns the profile for an externally authenticated
// identity, creating it on first sign-in. The uid is immutable; repeat
// calls return the stored record untouched.
func (s *ProfileService) EnsureProfile(ctx context.Context, uid, email, displayName, photoURL string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByUID(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	profile = &domain.Profile{
		UID:         uid,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: strings.TrimSpace(displayName),
		PhotoURL:    photoURL,
		Role:        domain.RoleUser,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// GetProfile loads a profile by uid.
func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"uid": uid})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// ListWorkers returns assignable profiles for the admin UI.
func (s *ProfileService) ListWorkers(ctx context.Context, actor *domain.Profile) ([]domain.Profile, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin required")
	}
	workers, err := s.profiles.ListByRole(ctx, domain.RoleWorker)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return workers, nil
}

// ChangeRole updates the target's role. Self role changes are rejected
// unconditionally, admin or not.
func (s *ProfileService) ChangeRole(ctx context.Context, actor *domain.Profile, targetUID string, role domain.Role) (*domain.Profile, error) {
	if !authz.CanChangeRole(actor.Role, actor.UID, targetUID) {
		return nil, apperrors.NewForbidden("role change not permitted")
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if err := s.profiles.UpdateRole(ctx, targetUID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"uid": targetUID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.GetProfile(ctx, targetUID)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *ProfileService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
