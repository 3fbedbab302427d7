package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はアクセストークンの検証に失敗したことを表す。
var ErrInvalidToken = errors.New("identity: invalid access token")

// sessionClaims はIdPが発行するアクセストークンのクレーム。
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier はIdPが発行したHS256署名のアクセストークンを検証する。
type TokenVerifier struct {
	secret   []byte
	audience string
}

// NewTokenVerifier はTokenVerifierを生成する。
// audienceが空の場合はaudクレームを検証しない。
func NewTokenVerifier(secret, audience string) *TokenVerifier {
	return &TokenVerifier{
		secret:   []byte(secret),
		audience: audience,
	}
}

// Verify はアクセストークンを検証し、セッションを返す。
// "Bearer " プレフィックスは取り除いてから検証する。
func (v *TokenVerifier) Verify(token string) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty sub claim", ErrInvalidToken)
	}

	return &Session{
		SubjectID: claims.Subject,
		Email:     claims.Email,
	}, nil
}
