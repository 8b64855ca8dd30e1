// Package auth はパスワード認証、OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/talentbase/internal/model"
	"github.com/hitoshi/talentbase/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	Provider       string // "google", "linkedin"
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// Google, LinkedInの2つのIdPに対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// EventPublisher は認証イベントの発行インターフェース。
type EventPublisher interface {
	Publish(userID string, event model.AuthEvent)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge        int           // セッション有効期間（秒）
	VerificationTokenTTL time.Duration // メール確認トークンの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	providers   map[string]OAuthProvider
	userRepo    repository.UserRepository
	linkRepo    repository.ProviderLinkRepository
	sessionRepo repository.SessionRepository
	tokenRepo   repository.VerificationTokenRepository
	hasher      PasswordHasher
	publisher   EventPublisher
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	providers map[string]OAuthProvider,
	userRepo repository.UserRepository,
	linkRepo repository.ProviderLinkRepository,
	sessionRepo repository.SessionRepository,
	tokenRepo repository.VerificationTokenRepository,
	hasher PasswordHasher,
	publisher EventPublisher,
	config ServiceConfig,
) *Service {
	return &Service{
		providers:   providers,
		userRepo:    userRepo,
		linkRepo:    linkRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		hasher:      hasher,
		publisher:   publisher,
		config:      config,
	}
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
func (s *Service) GetLoginURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", model.NewOAuthStartFailedError(provider)
	}
	return p.GetLoginURL(state), nil
}

// SignUp はメールアドレスとパスワードで新規アカウントを登録する。
// アカウントはメールアドレス確認が完了するまでログイン不可の状態で作成され、
// 確認トークンが発行される。
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*model.VerificationToken, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(password) < 8 {
		return nil, model.NewValidationError("パスワードは8文字以上で入力してください")
	}

	// 1. メールアドレスの重複チェック
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	// 2. パスワードをハッシュ化してユーザーを作成（メール未確認状態）
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.Identity{
		ID:            uuid.New().String(),
		Email:         email,
		Name:          name,
		EmailVerified: false,
		PasswordHash:  passwordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 3. メール確認トークンを発行
	tokenValue, err := generateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}
	token := &model.VerificationToken{
		Token:     tokenValue,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.VerificationTokenTTL),
		CreatedAt: now,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to save verification token: %w", err)
	}

	slog.Info("user signed up, verification pending",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return token, nil
}

// VerifyEmail は確認トークンを消費し、対象アカウントをログイン可能にする。
// トークンは1回限りの消費であり、再利用はエラーになる。
func (s *Service) VerifyEmail(ctx context.Context, tokenValue string) error {
	token, err := s.tokenRepo.Consume(ctx, tokenValue)
	if err != nil {
		return fmt.Errorf("failed to consume verification token: %w", err)
	}
	if token == nil {
		return model.NewInvalidTokenError()
	}

	if err := s.userRepo.MarkEmailVerified(ctx, token.UserID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	slog.Info("email verified", slog.String("user_id", token.UserID))
	return nil
}

// SignInWithPassword はメールアドレスとパスワードで認証し、セッションを発行する。
// メールアドレスが存在しない場合とパスワードが一致しない場合は
// 同じエラーを返し、アカウントの存在有無を漏らさない。
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, model.NewInvalidCredentialsError()
	}

	if !user.EmailVerified {
		return nil, model.NewEmailNotVerifiedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.publisher.Publish(user.ID, model.AuthEvent{Type: model.AuthEventSignedIn, Session: session})
	slog.Info("user signed in with password", slog.String("user_id", user.ID))

	return session, nil
}

// HandleOAuthCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとprovider_linksレコードを同時に自動作成する。
// 同じメールアドレスの既存アカウントがある場合は、そのアカウントに紐付けを追加する。
func (s *Service) HandleOAuthCallback(ctx context.Context, provider, code string) (*model.Session, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, model.NewOAuthStartFailedError(provider)
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. provider_linksテーブルで既存ユーザーを検索
	link, err := s.linkRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find provider link: %w", err)
	}

	var userID string

	switch {
	case link != nil:
		// 3a. 既存ユーザー: 紐付けからユーザーIDを取得し、メタデータを更新
		userID = link.UserID
		if err := s.userRepo.UpdateMetadata(ctx, userID, userInfo.Name, userInfo.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to update user metadata: %w", err)
		}
		slog.Info("existing user logged in via oauth",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)

	default:
		// 3b. 同じメールアドレスの既存アカウントを検索（アカウントリンク）
		existing, err := s.userRepo.FindByEmail(ctx, strings.ToLower(userInfo.Email))
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}

		if existing != nil {
			newLink := &model.ProviderLink{
				ID:             uuid.New().String(),
				UserID:         existing.ID,
				Provider:       userInfo.Provider,
				ProviderUserID: userInfo.ProviderUserID,
				CreatedAt:      time.Now(),
			}
			if err := s.linkRepo.Create(ctx, newLink); err != nil {
				return nil, fmt.Errorf("failed to link provider to existing user: %w", err)
			}
			if err := s.userRepo.UpdateMetadata(ctx, existing.ID, userInfo.Name, userInfo.AvatarURL); err != nil {
				return nil, fmt.Errorf("failed to update user metadata: %w", err)
			}
			userID = existing.ID
			slog.Info("provider linked to existing account",
				slog.String("user_id", userID),
				slog.String("provider", userInfo.Provider),
			)
		} else {
			// 3c. 新規ユーザー: usersレコードとprovider_linksレコードを同時に作成。
			// IdP側でメールアドレスは確認済みのため、確認済み状態で作成する。
			now := time.Now()
			newUser := &model.Identity{
				ID:            uuid.New().String(),
				Email:         strings.ToLower(userInfo.Email),
				Name:          userInfo.Name,
				AvatarURL:     userInfo.AvatarURL,
				EmailVerified: true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			newLink := &model.ProviderLink{
				ID:             uuid.New().String(),
				UserID:         newUser.ID,
				Provider:       userInfo.Provider,
				ProviderUserID: userInfo.ProviderUserID,
				CreatedAt:      now,
			}
			if err := s.userRepo.CreateWithProviderLink(ctx, newUser, newLink); err != nil {
				return nil, fmt.Errorf("failed to create user and provider link: %w", err)
			}
			userID = newUser.ID
			slog.Info("new user created via oauth",
				slog.String("user_id", userID),
				slog.String("email", userInfo.Email),
				slog.String("provider", userInfo.Provider),
			)
		}
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.publisher.Publish(userID, model.AuthEvent{Type: model.AuthEventSignedIn, Session: session})

	return session, nil
}

// GetSession はセッションIDから有効なセッションを取得する。
// セッションが存在しないか期限切れの場合はエラーではなくnilを返す。
func (s *Service) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// Refresh はセッションの有効期限を延長し、更新後のセッションを返す。
func (s *Service) Refresh(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, model.NewSessionExpiredError()
	}

	expiresAt := time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second)
	session, err := s.sessionRepo.Refresh(ctx, sessionID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if session == nil {
		return nil, model.NewSessionExpiredError()
	}

	s.publisher.Publish(session.UserID, model.AuthEvent{Type: model.AuthEventTokenRefreshed, Session: session})

	return session, nil
}

// SignOut はセッションを破棄する。
// サーバー側の破棄が確認された場合のみ成功を返す。クライアントは成功の
// 確認後に初めてローカル状態を破棄する。セッションが既に存在しない場合は
// 破棄済みとして成功扱いにする。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.publisher.Publish(session.UserID, model.AuthEvent{Type: model.AuthEventSignedOut})
	slog.Info("user signed out", slog.String("user_id", session.UserID))

	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.Identity, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewSessionExpiredError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", session.UserID)
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:          sessionID,
		UserID:      userID,
		ExpiresAt:   now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		RefreshedAt: now,
		CreatedAt:   now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateOpaqueToken は暗号的に安全な不透明トークンを生成する。
// セッションIDとメール確認トークンの両方で使用する。
func generateOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
