package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity provider
	IdentityURL            string
	IdentityJWTSecret      string
	IdentityJWTAudience    string // アクセストークンのaud
	IdentityServiceRoleKey string // 空の場合は特権エンドポイントを無効化する（fail closed）
	SessionHeartbeat       time.Duration
	RemediationPath        string

	// Contact form
	ContactRateWindow time.Duration
	ContactRateMax    int
	ContactRecipient  string

	// Mail relay
	MailRelayURL    string
	MailRelayAPIKey string
	MailFrom        string

	// Rate limit store
	RedisURL string

	// Admin API
	AdminRateLimit int // 管理者ごとの req/min

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string
	TrustedProxyHops int // 前段の信頼済みリバースプロキシの段数。0ならX-Forwarded-Forを参照しない

	// CORS
	CORSAllowedOrigin string
}

// RotationEnabled はパスワード再発行エンドポイントが有効かどうかを返す。
func (c *Config) RotationEnabled() bool {
	return c.IdentityServiceRoleKey != ""
}

// ValidateServe はAPIサーバーの起動に必要な設定を検証する。
// 問い合わせフォームは常に公開されるため、送信先が未設定の場合は起動しない。
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.ContactRecipient) == "" {
		return fmt.Errorf("CONTACT_RECIPIENT is required to serve the contact endpoint")
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IdentityURL = strings.TrimSuffix(os.Getenv("IDENTITY_URL"), "/")
	if cfg.IdentityURL == "" {
		missing = append(missing, "IDENTITY_URL")
	}

	cfg.IdentityJWTSecret = os.Getenv("IDENTITY_JWT_SECRET")
	if cfg.IdentityJWTSecret == "" {
		missing = append(missing, "IDENTITY_JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.IdentityServiceRoleKey = os.Getenv("IDENTITY_SERVICE_ROLE_KEY")
	cfg.IdentityJWTAudience = getEnvString("IDENTITY_JWT_AUDIENCE", "authenticated")
	cfg.SessionHeartbeat = getEnvDuration("SESSION_HEARTBEAT_INTERVAL", 5*time.Minute)
	cfg.RemediationPath = getEnvString("REMEDIATION_PATH", "/change-password")
	cfg.ContactRateWindow = getEnvDuration("CONTACT_RATE_WINDOW", 10*time.Minute)
	cfg.ContactRateMax = getEnvInt("CONTACT_RATE_MAX", 5)
	cfg.ContactRecipient = getEnvString("CONTACT_RECIPIENT", "")
	cfg.MailRelayURL = getEnvString("MAIL_RELAY_URL", "https://api.resend.com/emails")
	cfg.MailRelayAPIKey = getEnvString("MAIL_RELAY_API_KEY", "")
	cfg.MailFrom = getEnvString("MAIL_FROM", "Castline <noreply@castline.example>")
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.AdminRateLimit = getEnvInt("ADMIN_RATE_LIMIT", 60)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:3000")
	cfg.TrustedProxyHops = getEnvInt("TRUSTED_PROXY_HOPS", 0)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.ContactRateWindow <= 0 {
		return nil, fmt.Errorf("CONTACT_RATE_WINDOW must be positive: %v", cfg.ContactRateWindow)
	}
	if cfg.ContactRateMax < 1 {
		return nil, fmt.Errorf("CONTACT_RATE_MAX must be at least 1: %d", cfg.ContactRateMax)
	}
	if cfg.SessionHeartbeat <= 0 {
		return nil, fmt.Errorf("SESSION_HEARTBEAT_INTERVAL must be positive: %v", cfg.SessionHeartbeat)
	}
	if cfg.AdminRateLimit < 1 {
		return nil, fmt.Errorf("ADMIN_RATE_LIMIT must be at least 1: %d", cfg.AdminRateLimit)
	}
	if cfg.TrustedProxyHops < 0 {
		return nil, fmt.Errorf("TRUSTED_PROXY_HOPS must not be negative: %d", cfg.TrustedProxyHops)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
