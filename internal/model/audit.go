package model

import "time"

// ActionSetTempPassword は管理者による一時パスワード設定の監査アクション。
const ActionSetTempPassword = "set_temp_password"

// AdminLogEntry は管理者操作の監査ログ。書き込みのみで読み戻さない。
// CreatedAtはストア側で付与される。
type AdminLogEntry struct {
	ID           string
	AdminID      string
	TargetUserID string
	Action       string
	Details      string
	CreatedAt    time.Time
}
