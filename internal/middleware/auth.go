// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	sessionContextKey = contextKey("session")
	profileContextKey = contextKey("profile")
)

// SessionVerifier はアクセストークンを検証してセッションを返す。
// identity.TokenVerifierが実装する。
type SessionVerifier interface {
	Verify(token string) (*identity.Session, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// セッションをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			session, err := verifier.Verify(token)
			if err != nil {
				slog.Warn("access token rejected",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if info := requestInfoFromContext(r.Context()); info != nil {
				info.subjectID = session.SubjectID
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), *session)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (identity.Session, error) {
	s, ok := ctx.Value(sessionContextKey).(identity.Session)
	if !ok || s.SubjectID == "" {
		return identity.Session{}, fmt.Errorf("session not found in context")
	}
	return s, nil
}

// SubjectIDFromContext はリクエストコンテキストからサブジェクトIDを取得する。
func SubjectIDFromContext(ctx context.Context) (string, error) {
	s, err := SessionFromContext(ctx)
	if err != nil {
		return "", err
	}
	return s.SubjectID, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, s identity.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// ProfileFromContext は権限チェックミドルウェアが照合したプロフィールを取得する。
func ProfileFromContext(ctx context.Context) (*model.Profile, bool) {
	p, ok := ctx.Value(profileContextKey).(*model.Profile)
	return p, ok && p != nil
}

// ContextWithProfile はコンテキストにプロフィールを注入する。
func ContextWithProfile(ctx context.Context, p *model.Profile) context.Context {
	return context.WithValue(ctx, profileContextKey, p)
}
