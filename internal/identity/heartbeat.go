package identity

import (
	"context"
	"time"
)

// Heartbeat はintervalごとに現在のセッションをストリームへ再発行する。
// IdPのトークン更新通知に相当し、稼働中のセッションでも定期的に照合を再実行させる。
// currentがnilを返した場合はサインアウトとして発行する。ctxのキャンセルで終了する。
// intervalが0以下の場合は何もせずに戻る。
func Heartbeat(ctx context.Context, stream *Stream, interval time.Duration, current func() *Session) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s := current(); s != nil {
				stream.Publish(SignedIn(*s))
			} else {
				stream.Publish(SignedOut())
			}
		}
	}
}
