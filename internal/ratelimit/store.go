// Package ratelimit は公開フォームを濫用から守る固定ウィンドウ方式のレート制限を提供する。
package ratelimit

import (
	"context"
	"time"
)

// Bucket は呼び出し元キーごとのカウンタ。
// リクエストのたびに上書きされ、コアからは明示的に削除されない。
type Bucket struct {
	Count       int
	WindowStart time.Time
}

// Store はBucketの保存先。
// プロセス内のMemoryStoreと、複数プロセスで共有するRedisStoreがある。
type Store interface {
	// Get はキーに対応するBucketを返す。存在しない場合はfalseを返す。
	Get(ctx context.Context, key string) (Bucket, bool, error)

	// Put はキーに対応するBucketを上書きする。
	Put(ctx context.Context, key string, b Bucket) error
}
