package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/castline/internal/access"
	"github.com/hitoshi/castline/internal/config"
	"github.com/hitoshi/castline/internal/contact"
	"github.com/hitoshi/castline/internal/database"
	"github.com/hitoshi/castline/internal/handler"
	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/logger"
	"github.com/hitoshi/castline/internal/mail"
	"github.com/hitoshi/castline/internal/metrics"
	"github.com/hitoshi/castline/internal/middleware"
	"github.com/hitoshi/castline/internal/ratelimit"
	"github.com/hitoshi/castline/internal/repository"
	"github.com/hitoshi/castline/internal/rotation"
	"github.com/hitoshi/castline/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("rotation_enabled", cfg.RotationEnabled()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandWatch:
		return runWatch(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newBucketStore は問い合わせレート制限のバケットストアを生成する。
// REDIS_URLが設定されていればRedis、なければプロセス内メモリを使う。
func newBucketStore(cfg *config.Config) (ratelimit.Store, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("contact rate limit store: memory")
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// 制限はストア障害時に許可側へ倒れるため、起動は継続する
		slog.Warn("redis is not reachable at startup",
			slog.String("error", err.Error()),
		)
	}

	slog.Info("contact rate limit store: redis", slog.String("addr", opts.Addr))
	return ratelimit.NewRedisStore(client, "castline:contact:", cfg.ContactRateWindow),
		func() { client.Close() }, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	adminLogRepo := repository.NewPostgresAdminLogRepo(db)

	// 4. セッション・権限
	verifier := identity.NewTokenVerifier(cfg.IdentityJWTSecret, cfg.IdentityJWTAudience)
	reconciler := access.NewReconciler(profileRepo, collector, slog.Default())
	policy := access.NewForcedRotationPolicy(cfg.RemediationPath)

	// 5. パスワード再発行（サービスロールキー未設定の場合は無効化）
	var rotationSvc handler.RotationServiceInterface
	if cfg.RotationEnabled() {
		adminClient := identity.NewAdminClient(identity.AdminClientConfig{
			BaseURL:        cfg.IdentityURL,
			ServiceRoleKey: cfg.IdentityServiceRoleKey,
		})
		rotationSvc = rotation.NewService(adminClient, adminLogRepo, profileRepo, collector, slog.Default())
	} else {
		slog.Warn("IDENTITY_SERVICE_ROLE_KEY is not set; credential rotation endpoint is disabled")
	}

	// 6. 問い合わせフォーム
	store, closeStore, err := newBucketStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter := ratelimit.NewLimiter(store, ratelimit.Config{
		Window: cfg.ContactRateWindow,
		Max:    cfg.ContactRateMax,
	})
	mailClient := mail.NewClient(
		&http.Client{Timeout: 10 * time.Second},
		slog.Default(),
		cfg.MailRelayURL,
		cfg.MailRelayAPIKey,
	)
	contactSvc := contact.NewService(
		limiter, mailClient, security.NewSubmissionSanitizer(), collector,
		contact.Config{Recipient: cfg.ContactRecipient, From: cfg.MailFrom},
		slog.Default(),
	)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.AdminRateLimit))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Verifier:          verifier,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		TrustedProxyHops:  cfg.TrustedProxyHops,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		Reconciler: reconciler,
		Policy:     policy,

		RotationService: rotationSvc,
		ContactService:  contactSvc,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
