package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/castline/internal/access"
	"github.com/hitoshi/castline/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Verifier          middleware.SessionVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder
	TrustedProxyHops  int

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// セッション・権限
	Reconciler ProfileReconcilerInterface
	Policy     access.ForcedRotationPolicy

	// 管理者によるパスワード再発行（nilの場合はROTATION_DISABLED）
	RotationService RotationServiceInterface

	// 問い合わせフォーム
	ContactService ContactServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	管理者ルート: Auth → RateLimit → Capability(admin)
//
// /health と /metrics は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	sessionHandler := NewSessionHandler(deps.Reconciler, deps.Policy)
	rotationHandler := NewRotationHandler(deps.RotationService)
	contactHandler := NewContactHandler(deps.ContactService, deps.TrustedProxyHops)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Post("/api/contact", contactHandler.Submit)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Verifier))

		// パスワード変更が必要な場合もredirectを返すため、権限チェックは行わない
		r.Get("/api/session", sessionHandler.GetSession)

		// 管理者ルート
		r.Route("/api/admin", func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}
			r.Use(middleware.NewCapabilityMiddleware(deps.Reconciler, access.CapAdmin, deps.Policy))

			r.Post("/users/password", rotationHandler.RotatePassword)
		})
	})

	return r
}
