// Package identity は外部IdP（認証基盤）とのやり取りを提供する。
// セッションの検証、セッション変更通知のストリーム、管理APIによるパスワード更新を含む。
// セッションの暗号的な実装はIdP側の責務であり、このパッケージは観測のみを行う。
package identity

// Session はIdPが発行した認証済みセッションを表す。
// SubjectIDはプロフィールのIDと同一の安定した識別子。
type Session struct {
	SubjectID string
	Email     string
}

// Event はセッション変更通知を表す。
// Sessionがnilの場合はサインアウト（またはセッション失効）を意味する。
type Event struct {
	Session *Session
}

// SignedIn は有効なセッションを伴うイベントを生成する。
func SignedIn(s Session) Event {
	return Event{Session: &s}
}

// SignedOut はセッション消失のイベントを生成する。
func SignedOut() Event {
	return Event{}
}

// Authenticated はイベントが有効なセッションを伴うかどうかを返す。
func (e Event) Authenticated() bool {
	return e.Session != nil && e.Session.SubjectID != ""
}
