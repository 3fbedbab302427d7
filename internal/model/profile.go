// Package model はドメインモデルを定義する。
package model

import "time"

// Role はプロフィールに付与されたロールを表す。
type Role string

const (
	// RoleTalent は登録タレントの既定ロール。
	RoleTalent Role = "talent"
	// RoleAdmin は管理画面を利用できるロール。
	RoleAdmin Role = "admin"
	// RoleSuperAdmin は管理者の上位ロール。
	RoleSuperAdmin Role = "super_admin"
)

// Profile はIdPのサブジェクトに1対1で対応するアプリケーション側のユーザー情報。
// IDはIdPが発行するサブジェクト識別子と同一。
type Profile struct {
	ID                 string
	Role               Role
	MustChangePassword bool
	Email              string
	DisplayName        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewDefaultProfile は自己修復時に作成する既定プロフィールを返す。
func NewDefaultProfile(subjectID, email string) *Profile {
	return &Profile{
		ID:                 subjectID,
		Role:               RoleTalent,
		MustChangePassword: false,
		Email:              email,
	}
}
