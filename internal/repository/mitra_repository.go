package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

const mitraColumns = `id, user_id, verification_status, status, ktp_url, certificate_url, bio,
               specializations, verified_at, created_at, updated_at`

// MitraFilter narrows a mitra listing.
type MitraFilter struct {
	Status *domain.VerificationStatus
	Limit  int
}

// MitraRepository encapsulates mitra profile persistence.
type MitraRepository interface {
	List(ctx context.Context, filter MitraFilter) ([]domain.MitraProfile, error)
	GetByID(ctx context.Context, id string) (*domain.MitraProfile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.MitraProfile, error)
	// UpdateVerification moves the record to status when its current status is in from.
	// It returns pgx.ErrNoRows when no row matched.
	UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, verifiedAt *time.Time, from []domain.VerificationStatus) (*domain.MitraProfile, error)
	CountPending(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

type mitraRepository struct {
	db DB
}

// NewMitraRepository instantiates repository.
func NewMitraRepository(db DB) MitraRepository {
	return &mitraRepository{db: db}
}

func (r *mitraRepository) List(ctx context.Context, filter MitraFilter) ([]domain.MitraProfile, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("verification_status=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM mitra_profiles WHERE %s ORDER BY created_at DESC`,
		mitraColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMitras(rows)
}

func (r *mitraRepository) GetByID(ctx context.Context, id string) (*domain.MitraProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+mitraColumns+` FROM mitra_profiles WHERE id=$1`, id)
}

func (r *mitraRepository) GetByUserID(ctx context.Context, userID string) (*domain.MitraProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+mitraColumns+` FROM mitra_profiles WHERE user_id=$1`, userID)
}

func (r *mitraRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.MitraProfile, error) {
	m, err := scanMitra(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mitraRepository) UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, verifiedAt *time.Time, from []domain.VerificationStatus) (*domain.MitraProfile, error) {
	query := `
        UPDATE mitra_profiles
        SET verification_status=$2, verified_at=COALESCE($3, verified_at), updated_at=NOW()
        WHERE id=$1 AND verification_status = ANY($4)
        RETURNING ` + mitraColumns

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	m, err := scanMitra(r.db.QueryRow(ctx, query, id, string(status), verifiedAt, allowed))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mitraRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM mitra_profiles WHERE verification_status='pending'`,
	).Scan(&count)
	return count, err
}

func (r *mitraRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM mitra_profiles WHERE verification_status='approved' AND status='active'`,
	).Scan(&count)
	return count, err
}

func scanMitra(row pgx.Row) (domain.MitraProfile, error) {
	var (
		m                   domain.MitraProfile
		verification, state string
	)
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&verification,
		&state,
		&m.KTPURL,
		&m.CertificateURL,
		&m.Bio,
		&m.Specializations,
		&m.VerifiedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	m.VerificationStatus = domain.VerificationStatus(verification)
	m.Status = domain.MitraStatus(state)
	return m, err
}

func scanMitras(rows pgx.Rows) ([]domain.MitraProfile, error) {
	var result []domain.MitraProfile
	for rows.Next() {
		m, err := scanMitra(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
