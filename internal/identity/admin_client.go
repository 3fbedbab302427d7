package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxErrorBodySize はエラーレスポンス本文をエラーメッセージに含める際の上限バイト数。
const maxErrorBodySize = 512

// User はIdP管理APIが返すユーザー情報。
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminClientConfig はIdP管理APIクライアントの設定。
type AdminClientConfig struct {
	BaseURL        string // 例: https://project.example.co
	ServiceRoleKey string // 特権操作用のシークレット

	// テスト用に差し替え可能
	HTTPClient *http.Client
}

// AdminClient はサービスロールキーでIdPの管理APIを呼び出すクライアント。
type AdminClient struct {
	config AdminClientConfig
}

// NewAdminClient はAdminClientを生成する。
// サービスロールキーが空の場合は特権操作を行えないため、呼び出し側で生成しないこと。
func NewAdminClient(config AdminClientConfig) *AdminClient {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &AdminClient{config: config}
}

// updateUserRequest は管理APIのユーザー更新リクエスト。
type updateUserRequest struct {
	Password string `json:"password"`
}

// UpdatePassword は対象ユーザーのパスワードを更新する。
// PUT {BaseURL}/auth/v1/admin/users/{userID}
func (c *AdminClient) UpdatePassword(ctx context.Context, userID, password string) (*User, error) {
	payload, err := json.Marshal(updateUserRequest{Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode update request: %w", err)
	}

	endpoint := c.config.BaseURL + "/auth/v1/admin/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceRoleKey)
	req.Header.Set("apikey", c.config.ServiceRoleKey)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			return nil, fmt.Errorf("password update failed with status %d", resp.StatusCode)
		}
		if len(body) > maxErrorBodySize {
			body = body[:maxErrorBodySize]
		}
		return nil, fmt.Errorf("password update failed with status %d: %s", resp.StatusCode, string(body))
	}

	// 2xxの時点で更新は完了している。本文はユーザー情報の補完にのみ使う
	return parseUpdatedUser(body, userID), nil
}

// parseUpdatedUser は更新レスポンスの本文からユーザー情報を取り出す。
// 本文が空または解釈できない場合はIDのみのUserを返す。
func parseUpdatedUser(body []byte, userID string) *User {
	user := User{ID: userID}
	if len(bytes.TrimSpace(body)) > 0 {
		var parsed User
		if err := json.Unmarshal(body, &parsed); err == nil {
			user = parsed
		}
	}
	if user.ID == "" {
		user.ID = userID
	}
	return &user
}
