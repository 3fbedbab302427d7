package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/castline/internal/middleware"
	"github.com/hitoshi/castline/internal/model"
	"github.com/hitoshi/castline/internal/rotation"
)

// RotationServiceInterface はパスワード再発行ハンドラーが必要とするサービスインターフェース。
type RotationServiceInterface interface {
	RotateCredential(ctx context.Context, actorID, targetID, newCredential string) (*rotation.Result, error)
}

// RotationHandler は管理者によるパスワード再発行のHTTPハンドラー。
type RotationHandler struct {
	service RotationServiceInterface
}

// NewRotationHandler はRotationHandlerを生成する。
// serviceがnilの場合、エンドポイントは常にROTATION_DISABLEDを返す。
func NewRotationHandler(service RotationServiceInterface) *RotationHandler {
	return &RotationHandler{service: service}
}

type rotateRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	AdminID  string `json:"adminId"`
}

type rotatedUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type rotateResponse struct {
	Success bool                `json:"success"`
	User    rotatedUserResponse `json:"user"`
}

// RotatePassword は対象ユーザーに一時パスワードを設定する。
// POST /api/admin/users/password
func (h *RotationHandler) RotatePassword(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		slog.Error("credential rotation requested but identity service role key is not configured")
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewRotationDisabledError())
		return
	}

	actorID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの形式が不正です"))
		return
	}

	// adminIdは監査用。指定された場合は認証済みの操作者と一致しなければならない
	if req.AdminID != "" && req.AdminID != actorID {
		slog.Warn("rotation adminId does not match authenticated actor",
			slog.String("subject_id", actorID),
			slog.String("admin_id", req.AdminID),
		)
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	result, err := h.service.RotateCredential(r.Context(), actorID, req.UserID, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := rotateResponse{Success: true}
	if result != nil && result.User != nil {
		resp.User = rotatedUserResponse{ID: result.User.ID, Email: result.User.Email}
	}
	writeJSON(w, http.StatusOK, resp)
}
