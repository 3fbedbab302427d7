// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, admin, contact, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodePasswordChange     = "PASSWORD_CHANGE_REQUIRED"
	ErrCodeProfileUnavailable = "PROFILE_UNAVAILABLE"
	ErrCodeRotationFailed     = "ROTATION_FAILED"
	ErrCodeRotationDisabled   = "ROTATION_DISABLED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeRelayFailed        = "RELAY_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidRequestError は必須項目の欠落などリクエスト不正のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "必須項目を入力して再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewPasswordChangeRequiredError は一時パスワードの変更が済んでいない場合のエラーを生成する。
func NewPasswordChangeRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordChange,
		Message:  "パスワードの変更が必要です。",
		Category: "auth",
		Action:   "パスワード変更画面で新しいパスワードを設定してください。",
	}
}

// NewProfileUnavailableError はプロフィールの照合に失敗した場合のエラーを生成する。
// セッション自体は維持される。
func NewProfileUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileUnavailable,
		Message:  "プロフィールを取得できませんでした。",
		Category: "auth",
		Action:   "しばらく待ってからページを再読み込みしてください。",
	}
}

// NewRotationFailedError はIdPでのパスワード更新失敗エラーを生成する。
func NewRotationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRotationFailed,
		Message:  fmt.Sprintf("パスワードの更新に失敗しました: %s", reason),
		Category: "admin",
		Action:   "対象ユーザーを確認し、しばらく待ってから再度お試しください。",
	}
}

// NewRotationDisabledError はサービスロールキー未設定時のエラーを生成する。
func NewRotationDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeRotationDisabled,
		Message:  "パスワード再発行機能が構成されていません。",
		Category: "system",
		Action:   "サーバー管理者に連絡してください。",
	}
}

// NewRateLimitedError は送信回数上限エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "送信回数の上限に達しました。",
		Category: "contact",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRelayFailedError はメール中継の失敗エラーを生成する。
func NewRelayFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeRelayFailed,
		Message:  "メッセージの送信に失敗しました。",
		Category: "contact",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
