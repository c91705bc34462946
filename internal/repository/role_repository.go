package repository

import (
	"context"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// RoleRepository is the role store keyed by identity.
type RoleRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.UserRole, error)
	Upsert(ctx context.Context, userID string, role domain.Role) error
	List(ctx context.Context) ([]domain.UserRole, error)
	CountByRole(ctx context.Context) (map[domain.Role]int, error)
}

type roleRepository struct {
	db DB
}

// NewRoleRepository constructs repository.
func NewRoleRepository(db DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserRole, error) {
	var (
		ur   domain.UserRole
		role string
	)
	if err := r.db.QueryRow(ctx,
		`SELECT id, user_id, role FROM user_roles WHERE user_id=$1`, userID,
	).Scan(&ur.ID, &ur.UserID, &role); err != nil {
		return nil, err
	}
	ur.Role = domain.Role(role)
	return &ur, nil
}

func (r *roleRepository) Upsert(ctx context.Context, userID string, role domain.Role) error {
	const query = `
        INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.db.Exec(ctx, query, userID, string(role))
	return err
}

func (r *roleRepository) List(ctx context.Context) ([]domain.UserRole, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, role FROM user_roles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserRole
	for rows.Next() {
		var (
			ur   domain.UserRole
			role string
		)
		if err := rows.Scan(&ur.ID, &ur.UserID, &role); err != nil {
			return nil, err
		}
		ur.Role = domain.Role(role)
		result = append(result, ur)
	}
	return result, rows.Err()
}

func (r *roleRepository) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM user_roles GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Role]int, 3)
	for rows.Next() {
		var (
			role  string
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		counts[domain.Role(role)] = count
	}
	return counts, rows.Err()
}
