package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/talentbase/internal/model"
)

// PostgresProviderLinkRepo はPostgreSQLを使用したIdP紐付けリポジトリ。
type PostgresProviderLinkRepo struct {
	db *sql.DB
}

// NewPostgresProviderLinkRepo はPostgresProviderLinkRepoを生成する。
func NewPostgresProviderLinkRepo(db *sql.DB) *PostgresProviderLinkRepo {
	return &PostgresProviderLinkRepo{db: db}
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idで紐付けを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresProviderLinkRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.ProviderLink, error) {
	link := &model.ProviderLink{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, created_at
		 FROM provider_links
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&link.ID, &link.UserID, &link.Provider, &link.ProviderUserID, &link.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find provider link: %w", err)
	}

	return link, nil
}

// Create は既存ユーザーへの新しいIdP紐付けを作成する。
func (r *PostgresProviderLinkRepo) Create(ctx context.Context, link *model.ProviderLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO provider_links (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		link.ID, link.UserID, link.Provider, link.ProviderUserID, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert provider link: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProviderLinkRepository = (*PostgresProviderLinkRepo)(nil)
