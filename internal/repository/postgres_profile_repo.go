package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/castline/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はErrNotFoundを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p := &model.Profile{}
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, role, must_change_password, email, display_name, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &role, &p.MustChangePassword, &p.Email, &p.DisplayName, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	p.Role = model.Role(role)
	return p, nil
}

// Insert はプロフィールを作成する。
// ON CONFLICTは使わず、一意制約違反をErrConstraintとして呼び出し元に返す。
func (r *PostgresProfileRepo) Insert(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, role, must_change_password, email, display_name)
		 VALUES ($1, $2, $3, $4, $5)`,
		profile.ID, string(profile.Role), profile.MustChangePassword, profile.Email, profile.DisplayName,
	)
	if err != nil {
		return translateWriteError("failed to insert profile", err)
	}
	return nil
}

// UpdateMustChangePassword はmust_change_passwordフラグを更新する。
func (r *PostgresProfileRepo) UpdateMustChangePassword(ctx context.Context, id string, mustChange bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET must_change_password = $2, updated_at = now() WHERE id = $1`,
		id, mustChange,
	)
	if err != nil {
		return translateWriteError("failed to update must_change_password", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
