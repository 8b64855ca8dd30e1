package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/talentbase/internal/metrics"
	"github.com/hitoshi/talentbase/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	ProfileService ProfileServiceInterface

	// LinkedIn連携
	LinkedInProvider LinkedInConnectProvider
	LinkedInService  LinkedInServiceInterface
	LinkedInConfig   LinkedInHandlerConfig

	// イベント配信
	EventBus EventSubscriber

	// メトリクス
	Metrics metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS →（認証ルート）
//	                                     →（APIルート）Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置する。
// ログイン・サインアップにはIP単位のレート制限を個別に適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService, deps.Metrics)
	linkedinHandler := NewLinkedInHandler(deps.LinkedInProvider, deps.LinkedInService, deps.Metrics, deps.LinkedInConfig)
	eventsHandler := NewEventsHandler(deps.EventBus, deps.Metrics)

	// --- ヘルスチェック ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// --- 認証ルート（セッション不要） ---
	r.Route("/auth", func(r chi.Router) {
		// ログイン試行はIP単位の厳格なレート制限を受ける
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/signup", authHandler.Signup)

		r.Get("/verify", authHandler.VerifyEmail)

		// OAuthログインフロー（google / linkedin）
		r.Get("/{provider}/login", authHandler.OAuthLogin)
		r.Get("/{provider}/callback", authHandler.OAuthCallback)

		// セッション管理
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
		r.Get("/me", authHandler.Me)

		// セッションが必要な認証ルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))

			r.Get("/events", eventsHandler.Stream)

			// LinkedIn連携フロー（ログイン済みユーザーのみ）
			r.Get("/linkedin/connect", linkedinHandler.Connect)
			r.Get("/linkedin/connect/callback", linkedinHandler.ConnectCallback)
		})
	})

	// --- CSRFトークン取得 ---
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なAPIルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール管理
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Post("/", profileHandler.CreateProfile)
			r.Patch("/", profileHandler.UpdateProfile)
		})

		// LinkedIn連携状態・投稿
		r.Route("/api/linkedin", func(r chi.Router) {
			r.Get("/status", linkedinHandler.Status)
			r.Delete("/connection", linkedinHandler.Disconnect)
			r.Post("/posts", linkedinHandler.CreatePost)
		})
	})

	return r
}
