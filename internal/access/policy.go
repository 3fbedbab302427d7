package access

import (
	"strings"

	"github.com/hitoshi/castline/internal/model"
)

// DefaultRemediationPath はパスワード変更画面の既定パス。
const DefaultRemediationPath = "/change-password"

// ForcedRotationPolicy は一時パスワードを発行されたユーザーを変更画面へ誘導する。
// フラグの解除は変更画面側の責務で、このポリシーはフラグを書き換えない。
type ForcedRotationPolicy struct {
	RemediationPath string
}

// NewForcedRotationPolicy はForcedRotationPolicyを生成する。
func NewForcedRotationPolicy(remediationPath string) ForcedRotationPolicy {
	if remediationPath == "" {
		remediationPath = DefaultRemediationPath
	}
	return ForcedRotationPolicy{RemediationPath: remediationPath}
}

// Locked はプロフィールがパスワード変更を要求されているかどうかを返す。
func (p ForcedRotationPolicy) Locked(profile *model.Profile) bool {
	return profile != nil && profile.MustChangePassword
}

// RedirectFor は現在地locationからの遷移先を返す。
// 遷移が不要な場合は空文字とfalseを返す。変更画面上ではリダイレクトしない。
func (p ForcedRotationPolicy) RedirectFor(profile *model.Profile, location string) (string, bool) {
	if !p.Locked(profile) {
		return "", false
	}
	if p.onRemediation(location) {
		return "", false
	}
	return p.RemediationPath, true
}

func (p ForcedRotationPolicy) onRemediation(location string) bool {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	location = strings.TrimSuffix(location, "/")
	target := strings.TrimSuffix(p.RemediationPath, "/")

	return location == target || strings.HasPrefix(location, target+"/")
}
