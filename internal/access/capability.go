// Package access はセッションとプロフィールの照合、権限判定、パスワード変更の強制を扱う。
package access

import "github.com/hitoshi/castline/internal/model"

// Capability は画面やAPIの利用に必要な権限。
type Capability int

const (
	CapViewer Capability = iota
	CapTalent
	CapAdmin
	CapSuperAdmin
)

// String は権限名を返す。
func (c Capability) String() string {
	switch c {
	case CapViewer:
		return "viewer"
	case CapTalent:
		return "talent"
	case CapAdmin:
		return "admin"
	case CapSuperAdmin:
		return "super_admin"
	default:
		return "unknown"
	}
}

// Capabilities はプロフィールから導出される権限の集合。
type Capabilities struct {
	Viewer     bool
	Talent     bool
	Admin      bool
	SuperAdmin bool
}

// CapabilitiesFor はプロフィールのロールから権限を導出する。
// プロフィールがない場合は閲覧権限のみ。
func CapabilitiesFor(p *model.Profile) Capabilities {
	if p == nil {
		return Capabilities{Viewer: true}
	}

	caps := Capabilities{Viewer: true, Talent: true}
	switch p.Role {
	case model.RoleSuperAdmin:
		caps.Admin = true
		caps.SuperAdmin = true
	case model.RoleAdmin:
		caps.Admin = true
	}
	return caps
}

// Has は権限を持つかどうかを返す。
func (c Capabilities) Has(required Capability) bool {
	switch required {
	case CapViewer:
		return c.Viewer
	case CapTalent:
		return c.Talent
	case CapAdmin:
		return c.Admin
	case CapSuperAdmin:
		return c.SuperAdmin
	default:
		return false
	}
}

// Names は保持している権限名の一覧を返す。
func (c Capabilities) Names() []string {
	names := make([]string, 0, 4)
	for _, k := range []Capability{CapViewer, CapTalent, CapAdmin, CapSuperAdmin} {
		if c.Has(k) {
			names = append(names, k.String())
		}
	}
	return names
}
