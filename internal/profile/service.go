// Package profile はアプリケーション固有のユーザープロフィールの
// 作成・取得・更新を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/talentbase/internal/model"
	"github.com/hitoshi/talentbase/internal/repository"
	"github.com/hitoshi/talentbase/internal/security"
)

// EventPublisher は認証イベントの発行インターフェース。
type EventPublisher interface {
	Publish(userID string, event model.AuthEvent)
}

// Service はプロフィールに関するビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	sanitizer   security.TextSanitizerService
	ssrfGuard   security.SSRFGuardService
	publisher   EventPublisher
}

// NewService はServiceを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	sanitizer security.TextSanitizerService,
	ssrfGuard security.SSRFGuardService,
	publisher EventPublisher,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		sanitizer:   sanitizer,
		ssrfGuard:   ssrfGuard,
		publisher:   publisher,
	}
}

// Get は指定ユーザーのプロフィールを取得する。
// 未作成の場合はエラーではなくnilを返す。初回ログイン直後の
// プロフィール未作成は正常系であり、クライアント側で作成が行われる。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}

// Create はプロフィールを冪等に作成する。
// 既に存在する場合は既存行を変更せず、保存されている行を返す。
// 複数タブから同時に作成が走っても1行に収束する。
func (s *Service) Create(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	sanitized, err := s.sanitizeProfile(profile)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sanitized.CreatedAt = now
	sanitized.UpdatedAt = now

	stored, err := s.profileRepo.Upsert(ctx, sanitized)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	s.publisher.Publish(stored.UserID, model.AuthEvent{Type: model.AuthEventUserUpdated})
	slog.Info("profile created", slog.String("user_id", stored.UserID))

	return stored, nil
}

// Update はプロフィールを部分更新する。
// patchのnilフィールドは保存済みの値を維持し、指定されたフィールドのみ
// 上書きする。戻り値は保存後の行であり、クライアントはこれを正とする。
func (s *Service) Update(ctx context.Context, userID string, patch *model.ProfilePatch) (*model.Profile, error) {
	existing, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if existing == nil {
		return nil, model.NewProfileNotFoundError()
	}

	merged := *existing
	if patch.FullName != nil {
		merged.FullName = *patch.FullName
	}
	if patch.Company != nil {
		merged.Company = *patch.Company
	}
	if patch.Phone != nil {
		merged.Phone = *patch.Phone
	}
	if patch.CompanyContact != nil {
		merged.CompanyContact = *patch.CompanyContact
	}
	if patch.AvatarURL != nil {
		merged.AvatarURL = *patch.AvatarURL
	}

	sanitized, err := s.sanitizeProfile(&merged)
	if err != nil {
		return nil, err
	}
	sanitized.UpdatedAt = time.Now()

	stored, err := s.profileRepo.Update(ctx, sanitized)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if stored == nil {
		return nil, model.NewProfileNotFoundError()
	}

	s.publisher.Publish(userID, model.AuthEvent{Type: model.AuthEventUserUpdated})
	slog.Info("profile updated", slog.String("user_id", userID))

	return stored, nil
}

// sanitizeProfile はテキストフィールドをサニタイズし、アバターURLを検証する。
// アバターURLが危険なURL（プライベートIP等）の場合はエラーを返す。
func (s *Service) sanitizeProfile(profile *model.Profile) (*model.Profile, error) {
	cleaned := *profile
	cleaned.FullName = s.sanitizer.SanitizeText(profile.FullName)
	cleaned.Company = s.sanitizer.SanitizeText(profile.Company)
	cleaned.Phone = s.sanitizer.SanitizeText(profile.Phone)
	cleaned.CompanyContact = s.sanitizer.SanitizeText(profile.CompanyContact)

	if cleaned.AvatarURL != "" {
		if err := s.ssrfGuard.ValidateURL(cleaned.AvatarURL); err != nil {
			slog.Warn("avatar URL blocked",
				slog.String("user_id", profile.UserID),
				slog.String("reason", err.Error()),
			)
			return nil, model.NewSSRFBlockedError()
		}
	}

	return &cleaned, nil
}
