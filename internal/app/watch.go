package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/castline/internal/access"
	"github.com/hitoshi/castline/internal/config"
	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/model"
	"github.com/hitoshi/castline/internal/repository"
)

// gatePollInterval はwatchでゲートの状態変化を確認する間隔。
const gatePollInterval = time.Second

// runWatch はアクセストークンのセッションをControllerで監視する。
// args[0]はアクセストークン（省略時はWATCH_ACCESS_TOKEN）、args[1]は現在地（省略時は"/"）。
// ハートビートごとにプロフィールを再照合し、ゲートの変化と強制リダイレクトをログに出力する。
func runWatch(cfg *config.Config, args []string) error {
	token := os.Getenv("WATCH_ACCESS_TOKEN")
	if len(args) > 0 {
		token = args[0]
	}
	if token == "" {
		return errors.New("watch requires an access token argument or WATCH_ACCESS_TOKEN")
	}
	location := "/"
	if len(args) > 1 {
		location = args[1]
	}

	verifier := identity.NewTokenVerifier(cfg.IdentityJWTSecret, cfg.IdentityJWTAudience)
	session, err := verifier.Verify(token)
	if err != nil {
		return fmt.Errorf("failed to verify access token: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reconciler := access.NewReconciler(repository.NewPostgresProfileRepo(db), nil, slog.Default())
	policy := access.NewForcedRotationPolicy(cfg.RemediationPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream := identity.NewStream()
	events, err := stream.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe session stream: %w", err)
	}

	controller := access.NewController(reconciler, policy, access.RedirectFunc(func(path string) {
		slog.Info("forced redirect",
			slog.String("subject_id", session.SubjectID),
			slog.String("to", path),
		)
	}), location, slog.Default())

	stream.Publish(identity.SignedIn(*session))
	go identity.Heartbeat(ctx, stream, cfg.SessionHeartbeat, func() *identity.Session {
		return session
	})
	go logGateChanges(ctx, controller, gatePollInterval)

	slog.Info("watching session",
		slog.String("subject_id", session.SubjectID),
		slog.String("location", location),
		slog.Duration("heartbeat", cfg.SessionHeartbeat),
	)

	if err := controller.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("watch stopped")
	return nil
}

// logGateChanges はゲートの状態が変化するたびにログを出力する。
func logGateChanges(ctx context.Context, controller *access.Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var prev *access.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := controller.Gate().Snapshot()
			if prev != nil && !gateChanged(*prev, snap) {
				continue
			}
			prev = &snap
			slog.Info("gate state",
				snapshotAttrs(snap, controller.Location())...,
			)
		}
	}
}

// gateChanged は判定に影響する項目が変化したかどうかを返す。
func gateChanged(prev, next access.Snapshot) bool {
	if prev.State != next.State || prev.Unavailable != next.Unavailable {
		return true
	}
	if prev.Capabilities != next.Capabilities {
		return true
	}
	return mustChange(prev.Profile) != mustChange(next.Profile)
}

func mustChange(p *model.Profile) bool {
	return p != nil && p.MustChangePassword
}

func snapshotAttrs(s access.Snapshot, location string) []any {
	attrs := []any{
		slog.String("admin", s.Decide(access.CapAdmin).String()),
		slog.String("talent", s.Decide(access.CapTalent).String()),
		slog.Bool("unavailable", s.Unavailable),
		slog.String("location", location),
	}
	if s.Profile != nil {
		attrs = append(attrs,
			slog.String("role", string(s.Profile.Role)),
			slog.Bool("must_change_password", s.Profile.MustChangePassword),
		)
	}
	return attrs
}
