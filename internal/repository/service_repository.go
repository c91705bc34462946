package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

const serviceColumns = `id, name, description, base_price, duration_minutes, icon, is_active, created_at, updated_at`

// ServiceRepository manages the massage service catalog.
type ServiceRepository interface {
	List(ctx context.Context) ([]domain.Service, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Service, error)
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	Create(ctx context.Context, service *domain.Service) error
	Update(ctx context.Context, service *domain.Service) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type serviceRepository struct {
	db DB
}

// NewServiceRepository constructs repository.
func NewServiceRepository(db DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) List(ctx context.Context) ([]domain.Service, error) {
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServices(rows)
}

func (r *serviceRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServices(rows)
}

func (r *serviceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	s, err := scanService(r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *serviceRepository) Create(ctx context.Context, service *domain.Service) error {
	const query = `
        INSERT INTO services (name, description, base_price, duration_minutes, icon, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		service.Name,
		service.Description,
		service.BasePrice,
		service.DurationMinutes,
		service.Icon,
		service.IsActive,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt)
}

func (r *serviceRepository) Update(ctx context.Context, service *domain.Service) error {
	const query = `
        UPDATE services SET name=$1, description=$2, base_price=$3, duration_minutes=$4, icon=$5,
            is_active=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		service.Name,
		service.Description,
		service.BasePrice,
		service.DurationMinutes,
		service.Icon,
		service.IsActive,
		service.ID,
	).Scan(&service.CreatedAt, &service.UpdatedAt)
}

func (r *serviceRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM services`).Scan(&count)
	return count, err
}

func scanService(row pgx.Row) (domain.Service, error) {
	var s domain.Service
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.BasePrice,
		&s.DurationMinutes,
		&s.Icon,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func scanServices(rows pgx.Rows) ([]domain.Service, error) {
	var result []domain.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
