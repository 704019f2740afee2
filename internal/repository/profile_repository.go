package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ProfileRepository defines persistence access for per-user role records.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByUID(ctx context.Context, uid string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
	UpdateRole(ctx context.Context, uid string, role domain.Role) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (uid, email, display_name, photo_url, password_hash, role)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		profile.UID,
		profile.Email,
		profile.DisplayName,
		profile.PhotoURL,
		profile.PasswordHash,
		profile.Role,
	).Scan(&profile.CreatedAt)
}

func (r *profileRepository) GetByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	const query = `
        SELECT uid, email, display_name, photo_url, password_hash, role, created_at
        FROM profiles WHERE uid=$1`
	return r.fetchSingle(ctx, query, uid)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	const query = `
        SELECT uid, email, display_name, photo_url, password_hash, role, created_at
        FROM profiles WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *profileRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&profile.UID,
		&profile.Email,
		&profile.DisplayName,
		&profile.PhotoURL,
		&profile.PasswordHash,
		&profile.Role,
		&profile.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	const query = `
        SELECT uid, email, display_name, photo_url, password_hash, role, created_at
        FROM profiles WHERE role=$1 ORDER BY display_name ASC`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var profile domain.Profile
		if err := rows.Scan(
			&profile.UID,
			&profile.Email,
			&profile.DisplayName,
			&profile.PhotoURL,
			&profile.PasswordHash,
			&profile.Role,
			&profile.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, profile)
	}
	return result, rows.Err()
}

func (r *profileRepository) UpdateRole(ctx context.Context, uid string, role domain.Role) error {
	const query = `UPDATE profiles SET role=$1 WHERE uid=$2`
	cmd, err := r.pool.Exec(ctx, query, role, uid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
