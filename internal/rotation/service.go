// Package rotation は管理者によるユーザーのパスワード再発行（一時パスワード設定）を提供する。
package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/model"
)

// 再発行結果のラベル
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// ベストエフォート処理のラベル
const (
	StepAuditLog = "audit_log"
	StepFlag     = "must_change_password"
)

// CredentialUpdater はIdPでのパスワード更新を行う。
type CredentialUpdater interface {
	UpdatePassword(ctx context.Context, userID, password string) (*identity.User, error)
}

// AuditAppender は監査ログを追記する。
type AuditAppender interface {
	Append(ctx context.Context, entry *model.AdminLogEntry) error
}

// FlagWriter はmust_change_passwordフラグを更新する。
type FlagWriter interface {
	UpdateMustChangePassword(ctx context.Context, id string, mustChange bool) error
}

// Recorder は再発行の結果を記録する。
type Recorder interface {
	RecordRotation(outcome string)
	RecordBookkeepingFailure(step string)
	RecordProviderLatency(duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRotation(string) {}
func (nopRecorder) RecordBookkeepingFailure(string) {}
func (nopRecorder) RecordProviderLatency(time.Duration) {}

// Result はRotateCredentialの結果。
// 監査ログとフラグ更新の成否は含まない（ログとメトリクスでのみ確認できる）。
type Result struct {
	User *identity.User
}

// Service はパスワード再発行を行うサービス。
type Service struct {
	updater  CredentialUpdater
	audit    AuditAppender
	flags    FlagWriter
	recorder Recorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(updater CredentialUpdater, audit AuditAppender, flags FlagWriter, recorder Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		updater:  updater,
		audit:    audit,
		flags:    flags,
		recorder: recorder,
		logger:   logger,
	}
}

// RotateCredential は対象ユーザーに一時パスワードを設定する。
//
// IdPでの更新が成功した時点で成功とし、その後の監査ログ追記とフラグ更新は
// ベストエフォートで実行する。いずれかが失敗してもロールバックせず、ログに記録するのみ。
// 3つの書き込みはトランザクションで囲まない。
func (s *Service) RotateCredential(ctx context.Context, actorID, targetID, newCredential string) (*Result, error) {
	if strings.TrimSpace(targetID) == "" || newCredential == "" {
		s.recorder.RecordRotation(OutcomeInvalid)
		return nil, model.NewInvalidRequestError("userId と password は必須です")
	}

	start := time.Now()
	user, err := s.updater.UpdatePassword(ctx, targetID, newCredential)
	s.recorder.RecordProviderLatency(time.Since(start))
	if err != nil {
		s.logger.Error("credential rotation failed",
			slog.String("admin_id", actorID),
			slog.String("target_user_id", targetID),
			slog.String("error", err.Error()),
		)
		s.recorder.RecordRotation(OutcomeFailed)
		return nil, model.NewRotationFailedError("IdPでの更新に失敗しました")
	}

	// IdP側は既に更新済みのため、呼び出し元の切断で後続処理を中断しない
	bg := context.WithoutCancel(ctx)

	entry := &model.AdminLogEntry{
		AdminID:      actorID,
		TargetUserID: targetID,
		Action:       model.ActionSetTempPassword,
		Details:      fmt.Sprintf("temporary password set for user %s", targetID),
	}
	if err := s.audit.Append(bg, entry); err != nil {
		s.logger.Error("admin log append failed after credential rotation",
			slog.String("admin_id", actorID),
			slog.String("target_user_id", targetID),
			slog.String("error", err.Error()),
		)
		s.recorder.RecordBookkeepingFailure(StepAuditLog)
	}

	if err := s.flags.UpdateMustChangePassword(bg, targetID, true); err != nil {
		s.logger.Error("must_change_password update failed after credential rotation",
			slog.String("admin_id", actorID),
			slog.String("target_user_id", targetID),
			slog.String("error", err.Error()),
		)
		s.recorder.RecordBookkeepingFailure(StepFlag)
	}

	s.logger.Info("temporary password set",
		slog.String("admin_id", actorID),
		slog.String("target_user_id", targetID),
	)
	s.recorder.RecordRotation(OutcomeSuccess)

	return &Result{User: user}, nil
}
