package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

const profileColumns = `id, user_id, full_name, phone, city, address, avatar_url, created_at, updated_at`

// ProfileRepository reads identity profiles.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	ListByUserIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
}

type profileRepository struct {
	db DB
}

// NewProfileRepository constructs repository.
func NewProfileRepository(db DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1`, userID)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListByUserIDs fetches every profile in one round trip. Unknown ids are skipped.
func (r *profileRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func (r *profileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.Phone,
		&p.City,
		&p.Address,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanProfiles(rows pgx.Rows) ([]domain.Profile, error) {
	var result []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
