package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/talentbase/internal/model"
)

// PostgresVerificationTokenRepo はPostgreSQLを使用したメール確認トークンリポジトリ。
type PostgresVerificationTokenRepo struct {
	db *sql.DB
}

// NewPostgresVerificationTokenRepo はPostgresVerificationTokenRepoを生成する。
func NewPostgresVerificationTokenRepo(db *sql.DB) *PostgresVerificationTokenRepo {
	return &PostgresVerificationTokenRepo{db: db}
}

// Create は確認トークンを作成する。
func (r *PostgresVerificationTokenRepo) Create(ctx context.Context, token *model.VerificationToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (token, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		token.Token, token.UserID, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

// Consume はトークンを原子的に削除して返す（1回限りの消費）。
// 存在しないか期限切れの場合はnilを返す。
func (r *PostgresVerificationTokenRepo) Consume(ctx context.Context, token string) (*model.VerificationToken, error) {
	vt := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM verification_tokens
		 WHERE token = $1 AND expires_at > now()
		 RETURNING token, user_id, expires_at, created_at`,
		token,
	).Scan(&vt.Token, &vt.UserID, &vt.ExpiresAt, &vt.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	return vt, nil
}

// compile-time interface check
var _ VerificationTokenRepository = (*PostgresVerificationTokenRepo)(nil)
