package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edusupport/helpdesk-service/internal/domain"
)

// RefreshSessionRepository persists hashed refresh sessions. Replace must be
// atomic per user so that at most one session row ever exists for a user.
type RefreshSessionRepository interface {
	Replace(ctx context.Context, session *domain.RefreshSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshSession, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type refreshSessionRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshSessionRepository returns a Postgres-backed implementation.
func NewRefreshSessionRepository(pool *pgxpool.Pool) RefreshSessionRepository {
	return &refreshSessionRepository{pool: pool}
}

// Replace upserts the user's single session row in one statement. When two
// logins for one user race, the unique index on user_id makes the last
// commit win; the earlier token is silently superseded, never an error.
func (r *refreshSessionRepository) Replace(ctx context.Context, session *domain.RefreshSession) error {
	const query = `
        INSERT INTO refresh_sessions (user_id, token_hash, created_at, expires_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE
            SET token_hash  = EXCLUDED.token_hash,
                created_at  = EXCLUDED.created_at,
                expires_at  = EXCLUDED.expires_at
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		session.UserID,
		session.TokenHash,
		session.CreatedAt,
		session.ExpiresAt,
	).Scan(&session.ID)
}

func (r *refreshSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshSession, error) {
	const query = `
        SELECT id, user_id, token_hash, created_at, expires_at
        FROM refresh_sessions WHERE token_hash=$1`

	var session domain.RefreshSession
	if err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *refreshSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_sessions WHERE token_hash=$1`, tokenHash)
	return err
}

func (r *refreshSessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_sessions WHERE user_id=$1`, userID)
	return err
}
