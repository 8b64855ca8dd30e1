package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/talentbase/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `user_id, full_name, company, phone, company_contact, avatar_url, created_at, updated_at`

func scanProfile(row *sql.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(
		&p.UserID, &p.FullName, &p.Company, &p.Phone,
		&p.CompanyContact, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// Upsert はプロフィールを冪等に作成する。
// 既に存在する場合は既存行を変更せず（ON CONFLICT DO NOTHING）、
// いずれの場合も保存されている行を返す。
// 競合するリコンサイラからの二重作成を1行に収束させる。
func (r *PostgresProfileRepo) Upsert(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, full_name, company, phone, company_contact, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO NOTHING`,
		profile.UserID, profile.FullName, profile.Company, profile.Phone,
		profile.CompanyContact, profile.AvatarURL, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	stored, err := r.FindByUserID(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("profile missing after upsert: %s", profile.UserID)
	}
	return stored, nil
}

// Update はプロフィール全体を上書きし、保存後の行を返す。
// 対象が存在しない場合はnilを返す。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`UPDATE profiles
		 SET full_name = $2, company = $3, phone = $4, company_contact = $5, avatar_url = $6, updated_at = now()
		 WHERE user_id = $1
		 RETURNING `+profileColumns,
		profile.UserID, profile.FullName, profile.Company, profile.Phone,
		profile.CompanyContact, profile.AvatarURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
