package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// AccountRepository writes a full registration in one transaction.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
}

type accountRepository struct {
	db TxDB
}

// NewAccountRepository constructs repository.
func NewAccountRepository(db TxDB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts the user, profile, role and, for mitra sign-ups, the mitra profile.
// Generated ids and timestamps are written back into account.
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin account tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = insertUser(ctx, tx, &account.User); err != nil {
		return err
	}

	account.Profile.UserID = account.User.ID
	if err = insertProfile(ctx, tx, &account.Profile); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`,
		account.User.ID, string(account.Role),
	); err != nil {
		return err
	}

	if account.Mitra != nil {
		account.Mitra.UserID = account.User.ID
		if err = insertMitraProfile(ctx, tx, account.Mitra); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertUser(ctx context.Context, tx pgx.Tx, user *domain.User) error {
	const query = `
        INSERT INTO users (email, password_hash)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`
	return tx.QueryRow(ctx, query, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func insertProfile(ctx context.Context, tx pgx.Tx, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (user_id, full_name, phone, city, address)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	return tx.QueryRow(ctx, query,
		profile.UserID,
		profile.FullName,
		profile.Phone,
		profile.City,
		profile.Address,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func insertMitraProfile(ctx context.Context, tx pgx.Tx, mitra *domain.MitraProfile) error {
	const query = `
        INSERT INTO mitra_profiles (user_id, verification_status, status, ktp_url, certificate_url, bio, specializations)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	specs := mitra.Specializations
	if specs == nil {
		specs = []string{}
	}
	return tx.QueryRow(ctx, query,
		mitra.UserID,
		string(mitra.VerificationStatus),
		string(mitra.Status),
		mitra.KTPURL,
		mitra.CertificateURL,
		mitra.Bio,
		specs,
	).Scan(&mitra.ID, &mitra.CreatedAt, &mitra.UpdatedAt)
}
