package repository

import (
	"testing"
)

// 各Postgres実装が対応するインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ ProviderLinkRepository = (*PostgresProviderLinkRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ ProfileRepository = (*PostgresProfileRepo)(nil)
	var _ VerificationTokenRepository = (*PostgresVerificationTokenRepo)(nil)
	var _ LinkedInConnectionRepository = (*PostgresLinkedInConnectionRepo)(nil)
}

// コンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("NewPostgresUserRepo returned nil")
	}
	if NewPostgresProviderLinkRepo(nil) == nil {
		t.Error("NewPostgresProviderLinkRepo returned nil")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("NewPostgresSessionRepo returned nil")
	}
	if NewPostgresProfileRepo(nil) == nil {
		t.Error("NewPostgresProfileRepo returned nil")
	}
	if NewPostgresVerificationTokenRepo(nil) == nil {
		t.Error("NewPostgresVerificationTokenRepo returned nil")
	}
	if NewPostgresLinkedInConnectionRepo(nil) == nil {
		t.Error("NewPostgresLinkedInConnectionRepo returned nil")
	}
}
