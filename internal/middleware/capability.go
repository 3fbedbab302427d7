package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/castline/internal/access"
	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/model"
)

// ProfileResolver はセッションに対応するプロフィールを照合する。
// access.Reconcilerが実装する。
type ProfileResolver interface {
	Reconcile(ctx context.Context, sess identity.Session) (*model.Profile, error)
}

// NewCapabilityMiddleware はプロフィールを照合し、必要な権限を持たないリクエストを拒否する
// ミドルウェアを返す。認証ミドルウェアの後に配置する。
//
// 照合に失敗した場合は503、権限不足は403を返す。
// パスワード変更が必要なプロフィールも403（PASSWORD_CHANGE_REQUIRED）で拒否する。
func NewCapabilityMiddleware(resolver ProfileResolver, required access.Capability, policy access.ForcedRotationPolicy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := SessionFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			profile, err := resolver.Reconcile(r.Context(), session)
			if err != nil {
				WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewProfileUnavailableError())
				return
			}

			if !access.CapabilitiesFor(profile).Has(required) {
				slog.Warn("capability check failed",
					slog.String("subject_id", session.SubjectID),
					slog.String("required", required.String()),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			if policy.Locked(profile) {
				WriteErrorResponse(w, http.StatusForbidden, model.NewPasswordChangeRequiredError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithProfile(r.Context(), profile)))
		})
	}
}
