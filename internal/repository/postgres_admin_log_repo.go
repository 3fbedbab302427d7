package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/hitoshi/castline/internal/model"
)

// PostgresAdminLogRepo はPostgreSQLを使用した監査ログリポジトリ。
type PostgresAdminLogRepo struct {
	db *sql.DB
}

// NewPostgresAdminLogRepo はPostgresAdminLogRepoを生成する。
func NewPostgresAdminLogRepo(db *sql.DB) *PostgresAdminLogRepo {
	return &PostgresAdminLogRepo{db: db}
}

// Append は監査ログを1件追記する。IDが空の場合はUUIDを採番する。
// created_atはDBのデフォルト値を使用し、採番結果をentryに書き戻す。
func (r *PostgresAdminLogRepo) Append(ctx context.Context, entry *model.AdminLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO admin_logs (id, admin_id, target_user_id, action, details)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		entry.ID, entry.AdminID, entry.TargetUserID, entry.Action, entry.Details,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return translateWriteError("failed to append admin log", err)
	}
	return nil
}

// compile-time interface check
var _ AdminLogRepository = (*PostgresAdminLogRepo)(nil)
