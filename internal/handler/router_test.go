package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/castline/internal/access"
	"github.com/hitoshi/castline/internal/contact"
	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/middleware"
	"github.com/hitoshi/castline/internal/model"
	"github.com/hitoshi/castline/internal/rotation"
)

// tokenVerifierForRouter はトークン文字列をそのままサブジェクトIDとして扱う。
type tokenVerifierForRouter struct{}

func (tokenVerifierForRouter) Verify(token string) (*identity.Session, error) {
	if token == "" || token == "invalid" {
		return nil, identity.ErrInvalidToken
	}
	return &identity.Session{SubjectID: token}, nil
}

// profilesForRouter はサブジェクトIDごとのプロフィールを返すReconcilerモック。
type profilesForRouter map[string]*model.Profile

func (p profilesForRouter) Reconcile(ctx context.Context, sess identity.Session) (*model.Profile, error) {
	if profile, ok := p[sess.SubjectID]; ok {
		return profile, nil
	}
	return nil, access.ErrReconciliationFailed
}

type pingerForRouter struct {
	err error
}

func (p pingerForRouter) PingContext(ctx context.Context) error {
	return p.err
}

// createTestRouter はテスト用の完全なルーターを構築するヘルパー。
func createTestRouter(t *testing.T, rotationSvc RotationServiceInterface) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Verifier:          tokenVerifierForRouter{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		HealthChecker:     pingerForRouter{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		}),
		Reconciler: profilesForRouter{
			"admin-1":  {ID: "admin-1", Role: model.RoleAdmin},
			"locked-1": {ID: "locked-1", Role: model.RoleAdmin, MustChangePassword: true},
			"talent-1": {ID: "talent-1", Role: model.RoleTalent},
		},
		Policy:          access.NewForcedRotationPolicy("/change-password"),
		RotationService: rotationSvc,
		ContactService:  &mockContactService{},
	})
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := createTestRouter(t, &mockRotationService{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"ヘルスチェック", http.MethodGet, "/health", "", http.StatusOK},
		{"メトリクス", http.MethodGet, "/metrics", "", http.StatusOK},
		{"問い合わせ", http.MethodPost, "/api/contact", `{"name":"a","email":"a@example.com","message":"m"}`, http.StatusOK},
		{"存在しないルート", http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router := createTestRouter(t, &mockRotationService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}

func TestRouter_HealthUnavailable(t *testing.T) {
	router := NewRouter(&RouterDeps{
		HealthChecker: pingerForRouter{err: errors.New("connection refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_Session(t *testing.T) {
	router := createTestRouter(t, &mockRotationService{})

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"トークンなし", "", http.StatusUnauthorized},
		{"不正なトークン", "invalid", http.StatusUnauthorized},
		{"照合成功", "talent-1", http.StatusOK},
		{"パスワード変更が必要でも取得できる", "locked-1", http.StatusOK},
		{"照合失敗", "ghost", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/session?location=/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_AdminRotation(t *testing.T) {
	called := 0
	svc := &mockRotationService{
		rotateFn: func(ctx context.Context, actorID, targetID, newCredential string) (*rotation.Result, error) {
			called++
			return &rotation.Result{User: &identity.User{ID: targetID}}, nil
		},
	}
	router := createTestRouter(t, svc)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"未認証", "", http.StatusUnauthorized, model.ErrCodeUnauthorized},
		{"タレントは拒否", "talent-1", http.StatusForbidden, model.ErrCodeForbidden},
		{"パスワード変更前の管理者は拒否", "locked-1", http.StatusForbidden, model.ErrCodePasswordChange},
		{"照合失敗", "ghost", http.StatusServiceUnavailable, model.ErrCodeProfileUnavailable},
		{"管理者", "admin-1", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/users/password",
				strings.NewReader(`{"userId":"talent-1","password":"Temp-1234"}`))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if body := decodeError(t, w); body.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
				}
			}
		})
	}

	if called != 1 {
		t.Errorf("RotateCredential called %d times, want 1", called)
	}
}

func TestRouter_AdminRotation_Disabled(t *testing.T) {
	router := createTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/password",
		strings.NewReader(`{"userId":"talent-1","password":"Temp-1234"}`))
	req.Header.Set("Authorization", "Bearer admin-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeRotationDisabled {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRotationDisabled)
	}
}

func TestRouter_ContactRateLimitedThroughService(t *testing.T) {
	limiterCalls := 0
	svc := &mockContactService{
		submitFn: func(ctx context.Context, callerKey string, sub contact.Submission) error {
			limiterCalls++
			if limiterCalls > 1 {
				return &contact.RateLimitedError{APIError: model.NewRateLimitedError()}
			}
			return nil
		},
	}
	router := NewRouter(&RouterDeps{ContactService: svc})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/contact",
			strings.NewReader(`{"name":"a","email":"a@example.com","message":"m"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("request %d status = %d, want %d", i+1, w.Code, want)
		}
	}
}
