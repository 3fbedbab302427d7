package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP はリクエスト元のIPアドレスを返す。
//
// trustedHopsは前段にある信頼済みリバースプロキシの段数。0の場合はRemoteAddrのみを使う。
// 1以上の場合はX-Forwarded-Forの右からtrustedHops番目をクライアントとする。
// 左側の値はクライアントが自由に付与できるため参照しない。
func ClientIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		if hops := forwardedHops(r); len(hops) > 0 {
			i := len(hops) - trustedHops
			if i < 0 {
				i = 0
			}
			return hops[i]
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedHops はX-Forwarded-Forの全エントリを左から順に返す。ヘッダーが複数行でも連結する。
func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(v, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				hops = append(hops, ip)
			}
		}
	}
	return hops
}
