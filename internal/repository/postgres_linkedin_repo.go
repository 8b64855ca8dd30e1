package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/talentbase/internal/model"
)

// PostgresLinkedInConnectionRepo はPostgreSQLを使用したLinkedIn連携リポジトリ。
type PostgresLinkedInConnectionRepo struct {
	db *sql.DB
}

// NewPostgresLinkedInConnectionRepo はPostgresLinkedInConnectionRepoを生成する。
func NewPostgresLinkedInConnectionRepo(db *sql.DB) *PostgresLinkedInConnectionRepo {
	return &PostgresLinkedInConnectionRepo{db: db}
}

// Upsert は連携トークンを保存する。既存の連携は新しいトークンで上書きされる。
func (r *PostgresLinkedInConnectionRepo) Upsert(ctx context.Context, conn *model.LinkedInConnection) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO linkedin_connections (user_id, access_token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET access_token = EXCLUDED.access_token, expires_at = EXCLUDED.expires_at`,
		conn.UserID, conn.AccessToken, conn.ExpiresAt, conn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert linkedin connection: %w", err)
	}
	return nil
}

// FindByUserID は指定ユーザーの有効な連携を取得する。
// 見つからないか期限切れの場合はnilを返す。
func (r *PostgresLinkedInConnectionRepo) FindByUserID(ctx context.Context, userID string) (*model.LinkedInConnection, error) {
	conn := &model.LinkedInConnection{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, access_token, expires_at, created_at
		 FROM linkedin_connections
		 WHERE user_id = $1 AND expires_at > now()`,
		userID,
	).Scan(&conn.UserID, &conn.AccessToken, &conn.ExpiresAt, &conn.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find linkedin connection: %w", err)
	}

	return conn, nil
}

// DeleteByUserID は指定ユーザーの連携を削除する。
func (r *PostgresLinkedInConnectionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM linkedin_connections WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete linkedin connection: %w", err)
	}
	return nil
}

// compile-time interface check
var _ LinkedInConnectionRepository = (*PostgresLinkedInConnectionRepo)(nil)
