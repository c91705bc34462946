package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

const orderColumns = `id, customer_id, mitra_id, service_id, status, total_price, address, scheduled_at,
               notes, created_at, updated_at`

// OrderFilter captures admin and customer order listing parameters.
type OrderFilter struct {
	CustomerID *string
	Statuses   []domain.OrderStatus
	Limit      int
}

// OrderRepository reads bookings.
type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
}

type orderRepository struct {
	db DB
}

// NewOrderRepository constructs repository.
func NewOrderRepository(db DB) OrderRepository {
	return &orderRepository{db: db}
}

// List returns matching orders newest first. A zero Limit means no limit.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC`,
		orderColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var result []domain.Order
	for rows.Next() {
		var (
			o      domain.Order
			status string
		)
		if err := rows.Scan(
			&o.ID,
			&o.CustomerID,
			&o.MitraID,
			&o.ServiceID,
			&status,
			&o.TotalPrice,
			&o.Address,
			&o.ScheduledAt,
			&o.Notes,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		result = append(result, o)
	}
	return result, rows.Err()
}
