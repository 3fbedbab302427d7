package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/castline/internal/contact"
	"github.com/hitoshi/castline/internal/middleware"
	"github.com/hitoshi/castline/internal/model"
)

// maxContactBodyBytes は問い合わせリクエストボディの上限。
const maxContactBodyBytes = 64 << 10

// ContactServiceInterface は問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, callerKey string, sub contact.Submission) error
}

// ContactHandler は公開問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	service     ContactServiceInterface
	trustedHops int
}

// NewContactHandler はContactHandlerを生成する。
// trustedHopsは前段の信頼済みプロキシの段数（middleware.ClientIPを参照）。
func NewContactHandler(service ContactServiceInterface, trustedHops int) *ContactHandler {
	return &ContactHandler{service: service, trustedHops: trustedHops}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Website string `json:"website"`
}

type contactResponse struct {
	OK bool `json:"ok"`
}

// Submit は問い合わせを受け付ける。
// POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBodyBytes)

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの形式が不正です"))
		return
	}

	err := h.service.Submit(r.Context(), middleware.ClientIP(r, h.trustedHops), contact.Submission{
		Name:     req.Name,
		Email:    req.Email,
		Message:  req.Message,
		Honeypot: req.Website,
	})
	if err != nil {
		var limited *contact.RateLimitedError
		if errors.As(err, &limited) {
			middleware.WriteRateLimitResponse(w, limited.RetryAfter, limited.APIError)
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contactResponse{OK: true})
}
