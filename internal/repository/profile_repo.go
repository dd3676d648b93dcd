// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minka-latam/minka-sub002/internal/models"
)

// ErrNotFound is returned by write operations whose target row does not exist.
var ErrNotFound = errors.New("repository: not found")

// ProfileRepository defines the interface for profile data operations.
// Lookups return nil, nil when no row matches.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	ListByIDs(ctx context.Context, ids []string) ([]*models.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*models.Profile, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, profile *models.Profile) error
}

type profileRepo struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepo{pool: pool}
}

const profileColumns = `id, name, email, role, phone, address, identity_number, birthdate, profile_picture, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Role,
		&p.Phone,
		&p.Address,
		&p.IdentityNumber,
		&p.Birthdate,
		&p.ProfilePicture,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a profile by the identity provider's user id.
func (r *profileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByEmail retrieves a profile by email, case-insensitively.
func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = lower($1)`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByIDs retrieves the profiles that exist among ids, in the order of ids.
// Unknown ids are omitted.
func (r *profileRepo) ListByIDs(ctx context.Context, ids []string) ([]*models.Profile, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []*models.Profile{}, nil
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*models.Profile, len(ids))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orderByIDs(ids, byID), nil
}

// List retrieves profiles ordered by creation time, newest first.
func (r *profileRepo) List(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Count returns the total number of profiles.
func (r *profileRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM profiles`).Scan(&n)
	return n, err
}

// Update writes the user-editable profile fields. Role and email are not writable here.
func (r *profileRepo) Update(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles
		SET name = $2, phone = $3, address = $4, profile_picture = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Phone,
		p.Address,
		p.ProfilePicture,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// dedupeIDs trims ids and drops blanks and repeats, keeping first occurrence order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func orderByIDs(ids []string, byID map[string]*models.Profile) []*models.Profile {
	out := make([]*models.Profile, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
