package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pestpro/pestpro/internal/domain"
)

const accountColumns = `id, email, password_hash, full_name, confirmed, confirm_token, reset_token,
	created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FullName, &a.Confirmed,
		&a.ConfirmToken, &a.ResetToken, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, full_name, confirmed, confirm_token,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.Email, account.PasswordHash, account.FullName,
		account.Confirmed, account.ConfirmToken, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return r.getBy(ctx, `id = $1`, accountID)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getBy(ctx, `email = $1`, email)
}

func (r *AccountRepo) GetByConfirmToken(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.getBy(ctx, `confirm_token = $1`, token)
}

func (r *AccountRepo) GetByResetToken(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.getBy(ctx, `reset_token = $1`, token)
}

func (r *AccountRepo) Confirm(ctx context.Context, accountID uuid.UUID) error {
	return r.exec(ctx, `
		UPDATE accounts SET confirmed = TRUE, confirm_token = '', updated_at = now()
		WHERE id = $1`, accountID)
}

func (r *AccountRepo) SetResetToken(ctx context.Context, accountID uuid.UUID, token string) error {
	return r.exec(ctx, `
		UPDATE accounts SET reset_token = $2, updated_at = now()
		WHERE id = $1`, accountID, token)
}

func (r *AccountRepo) UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string) error {
	return r.exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = now()
		WHERE id = $1`, accountID, passwordHash)
}

func (r *AccountRepo) SaveSession(ctx context.Context, session *domain.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token, account_id, email, expires_at)
		VALUES ($1, $2, $3, $4)`,
		session.Token, session.UserID, session.Email, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetSessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT token, account_id, email, expires_at FROM sessions WHERE token = $1`, token)
	return scanSession(row)
}

func (r *AccountRepo) GetLatestSession(ctx context.Context, now time.Time) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT token, account_id, email, expires_at FROM sessions
		WHERE expires_at > $1 ORDER BY expires_at DESC LIMIT 1`, now)
	return scanSession(row)
}

func (r *AccountRepo) DeleteSession(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.Token, &s.UserID, &s.Email, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (r *AccountRepo) getBy(ctx context.Context, where string, arg any) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *AccountRepo) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
