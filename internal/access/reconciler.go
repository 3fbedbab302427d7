package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/model"
	"github.com/hitoshi/castline/internal/repository"
)

// ErrReconciliationFailed はプロフィールの照合に失敗したことを表す。
// セッションは維持され、画面には「プロフィールを取得できない」と表示される。
var ErrReconciliationFailed = errors.New("profile reconciliation failed")

// 照合結果のラベル
const (
	OutcomeFound  = "found"
	OutcomeHealed = "healed"
	OutcomeFailed = "failed"
)

// ProfileStore は照合に必要なプロフィールストアの操作。
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	Insert(ctx context.Context, profile *model.Profile) error
}

// ReconcileRecorder は照合結果を記録する。
type ReconcileRecorder interface {
	RecordReconciliation(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordReconciliation(string) {}

// Reconciler はセッションのサブジェクトに対応するプロフィールを取得し、
// 存在しなければ既定値で1回だけ作成する（自己修復）。
type Reconciler struct {
	profiles ProfileStore
	recorder ReconcileRecorder
	logger   *slog.Logger
}

// NewReconciler はReconcilerを生成する。recorderはnilでもよい。
func NewReconciler(profiles ProfileStore, recorder ReconcileRecorder, logger *slog.Logger) *Reconciler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		profiles: profiles,
		recorder: recorder,
		logger:   logger,
	}
}

// Reconcile はセッションに対応するプロフィールを返す。
// 同一サブジェクトへの同時呼び出しは重複排除せず、作成と再取得の間にロックも取らない。
// 並行した作成で一意制約違反になった場合もErrReconciliationFailedを返す。
func (r *Reconciler) Reconcile(ctx context.Context, sess identity.Session) (*model.Profile, error) {
	profile, err := r.profiles.FindByID(ctx, sess.SubjectID)
	if err == nil {
		r.recorder.RecordReconciliation(OutcomeFound)
		return profile, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		r.logger.Error("profile fetch failed",
			slog.String("subject_id", sess.SubjectID),
			slog.String("error", err.Error()),
		)
		r.recorder.RecordReconciliation(OutcomeFailed)
		return nil, fmt.Errorf("%w: fetch: %v", ErrReconciliationFailed, err)
	}

	if err := r.profiles.Insert(ctx, model.NewDefaultProfile(sess.SubjectID, sess.Email)); err != nil {
		r.logger.Error("profile self-heal insert failed",
			slog.String("subject_id", sess.SubjectID),
			slog.String("error", err.Error()),
		)
		r.recorder.RecordReconciliation(OutcomeFailed)
		return nil, fmt.Errorf("%w: insert: %v", ErrReconciliationFailed, err)
	}

	profile, err = r.profiles.FindByID(ctx, sess.SubjectID)
	if err != nil {
		r.logger.Error("profile refetch after self-heal failed",
			slog.String("subject_id", sess.SubjectID),
			slog.String("error", err.Error()),
		)
		r.recorder.RecordReconciliation(OutcomeFailed)
		return nil, fmt.Errorf("%w: refetch: %v", ErrReconciliationFailed, err)
	}

	r.logger.Info("profile created for new subject",
		slog.String("subject_id", sess.SubjectID),
	)
	r.recorder.RecordReconciliation(OutcomeHealed)
	return profile, nil
}
