// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/castline/internal/model"
)

var (
	// ErrNotFound は対象レコードが存在しないことを表す。
	// プロフィール照合ではこのエラーを自己修復のトリガーとして扱う。
	ErrNotFound = errors.New("record not found")

	// ErrConstraint は一意制約などの制約違反を表す。
	// 並行して別の書き込みが先にプロフィールを作成した場合に返る。
	ErrConstraint = errors.New("constraint violation")
)

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はErrNotFoundを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Insert はプロフィールを作成する。同一IDが既に存在する場合はErrConstraintを返す。
	Insert(ctx context.Context, profile *model.Profile) error

	// UpdateMustChangePassword はmust_change_passwordフラグのみを更新する。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdateMustChangePassword(ctx context.Context, id string, mustChange bool) error
}

// AdminLogRepository は管理者操作の監査ログの永続化インターフェース。
// 追記のみで、このアプリケーションからは読み戻さない。
type AdminLogRepository interface {
	// Append は監査ログを1件追記する。created_atはDB側で付与する。
	Append(ctx context.Context, entry *model.AdminLogEntry) error
}
