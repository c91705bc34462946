package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

const promoColumns = `id, code, description, discount_type, discount_value, min_order_amount, max_discount,
               usage_limit, used_count, is_active, starts_at, expires_at, created_at, updated_at`

// PromoRepository manages discount codes.
type PromoRepository interface {
	List(ctx context.Context) ([]domain.Promo, error)
	Create(ctx context.Context, promo *domain.Promo) error
	Update(ctx context.Context, promo *domain.Promo) error
	Delete(ctx context.Context, id string) error
}

type promoRepository struct {
	db DB
}

// NewPromoRepository constructs repository.
func NewPromoRepository(db DB) PromoRepository {
	return &promoRepository{db: db}
}

func (r *promoRepository) List(ctx context.Context) ([]domain.Promo, error) {
	rows, err := r.db.Query(ctx, `SELECT `+promoColumns+` FROM promos ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Promo
	for rows.Next() {
		var p domain.Promo
		if err := rows.Scan(
			&p.ID,
			&p.Code,
			&p.Description,
			&p.DiscountType,
			&p.DiscountValue,
			&p.MinOrderAmount,
			&p.MaxDiscount,
			&p.UsageLimit,
			&p.UsedCount,
			&p.IsActive,
			&p.StartsAt,
			&p.ExpiresAt,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *promoRepository) Create(ctx context.Context, promo *domain.Promo) error {
	const query = `
        INSERT INTO promos (code, description, discount_type, discount_value, min_order_amount,
            max_discount, usage_limit, is_active, starts_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, used_count, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		promo.Code,
		promo.Description,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MinOrderAmount,
		promo.MaxDiscount,
		promo.UsageLimit,
		promo.IsActive,
		promo.StartsAt,
		promo.ExpiresAt,
	).Scan(&promo.ID, &promo.UsedCount, &promo.CreatedAt, &promo.UpdatedAt)
}

func (r *promoRepository) Update(ctx context.Context, promo *domain.Promo) error {
	const query = `
        UPDATE promos SET code=$1, description=$2, discount_type=$3, discount_value=$4,
            min_order_amount=$5, max_discount=$6, usage_limit=$7, is_active=$8, starts_at=$9,
            expires_at=$10, updated_at=NOW()
        WHERE id=$11
        RETURNING used_count, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		promo.Code,
		promo.Description,
		promo.DiscountType,
		promo.DiscountValue,
		promo.MinOrderAmount,
		promo.MaxDiscount,
		promo.UsageLimit,
		promo.IsActive,
		promo.StartsAt,
		promo.ExpiresAt,
		promo.ID,
	).Scan(&promo.UsedCount, &promo.CreatedAt, &promo.UpdatedAt)
}

func (r *promoRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM promos WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
