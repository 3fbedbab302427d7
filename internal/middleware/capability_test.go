package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/castline/internal/access"
	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/model"
)

// mockResolver はテスト用のProfileResolverモック。
type mockResolver struct {
	reconcileFn func(ctx context.Context, sess identity.Session) (*model.Profile, error)
}

func (m *mockResolver) Reconcile(ctx context.Context, sess identity.Session) (*model.Profile, error) {
	return m.reconcileFn(ctx, sess)
}

var (
	_ ProfileResolver = (*mockResolver)(nil)
	_ ProfileResolver = (*access.Reconciler)(nil)
)

func resolverFor(p *model.Profile, err error) *mockResolver {
	return &mockResolver{
		reconcileFn: func(ctx context.Context, sess identity.Session) (*model.Profile, error) {
			return p, err
		},
	}
}

func TestCapabilityMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		withAuth   bool
		resolver   *mockResolver
		required   access.Capability
		wantStatus int
		wantCode   string
	}{
		{"admin allowed", true, resolverFor(&model.Profile{ID: "s1", Role: model.RoleAdmin}, nil), access.CapAdmin, http.StatusOK, ""},
		{"super admin allowed", true, resolverFor(&model.Profile{ID: "s1", Role: model.RoleSuperAdmin}, nil), access.CapAdmin, http.StatusOK, ""},
		{"talent forbidden", true, resolverFor(&model.Profile{ID: "s1", Role: model.RoleTalent}, nil), access.CapAdmin, http.StatusForbidden, model.ErrCodeForbidden},
		{"admin lacks super admin", true, resolverFor(&model.Profile{ID: "s1", Role: model.RoleAdmin}, nil), access.CapSuperAdmin, http.StatusForbidden, model.ErrCodeForbidden},
		{"password change pending", true, resolverFor(&model.Profile{ID: "s1", Role: model.RoleAdmin, MustChangePassword: true}, nil), access.CapAdmin, http.StatusForbidden, model.ErrCodePasswordChange},
		{"reconcile failed", true, resolverFor(nil, access.ErrReconciliationFailed), access.CapAdmin, http.StatusServiceUnavailable, model.ErrCodeProfileUnavailable},
		{"no session", false, resolverFor(nil, errBoom), access.CapAdmin, http.StatusUnauthorized, model.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *model.Profile
			handler := NewCapabilityMiddleware(tt.resolver, tt.required, access.NewForcedRotationPolicy(""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured, _ = ProfileFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/admin/users/password", nil)
			if tt.withAuth {
				req = req.WithContext(ContextWithSession(req.Context(), identity.Session{SubjectID: "s1"}))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if captured == nil {
					t.Error("profile should be injected into the context")
				}
				return
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}
