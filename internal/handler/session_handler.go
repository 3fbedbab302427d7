package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/castline/internal/access"
	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/middleware"
	"github.com/hitoshi/castline/internal/model"
)

// ProfileReconcilerInterface はセッションハンドラーが必要とする照合インターフェース。
type ProfileReconcilerInterface interface {
	Reconcile(ctx context.Context, sess identity.Session) (*model.Profile, error)
}

// SessionHandler は認証済みセッションの状態をUIへ返すHTTPハンドラー。
type SessionHandler struct {
	reconciler ProfileReconcilerInterface
	policy     access.ForcedRotationPolicy
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(reconciler ProfileReconcilerInterface, policy access.ForcedRotationPolicy) *SessionHandler {
	return &SessionHandler{reconciler: reconciler, policy: policy}
}

type profileResponse struct {
	ID                 string    `json:"id"`
	Role               string    `json:"role"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"displayName"`
	MustChangePassword bool      `json:"mustChangePassword"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type sessionResponse struct {
	SubjectID    string          `json:"subjectId"`
	Profile      profileResponse `json:"profile"`
	Capabilities []string        `json:"capabilities"`
	Redirect     string          `json:"redirect,omitempty"`
}

// GetSession はプロフィールを照合し、権限と強制パスワード変更の遷移先を返す。
// GET /api/session?location=/current/path
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.reconciler.Reconcile(r.Context(), session)
	if err != nil {
		// セッションは維持したまま、プロフィール取得不可として返す
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewProfileUnavailableError())
		return
	}

	resp := sessionResponse{
		SubjectID:    session.SubjectID,
		Profile:      toProfileResponse(profile),
		Capabilities: access.CapabilitiesFor(profile).Names(),
	}
	if target, ok := h.policy.RedirectFor(profile, r.URL.Query().Get("location")); ok {
		resp.Redirect = target
	}

	writeJSON(w, http.StatusOK, resp)
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		ID:                 p.ID,
		Role:               string(p.Role),
		Email:              p.Email,
		DisplayName:        p.DisplayName,
		MustChangePassword: p.MustChangePassword,
		UpdatedAt:          p.UpdatedAt,
	}
}
