package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/castline/internal/identity"
	"github.com/hitoshi/castline/internal/model"
)

// ProfileReconciler はセッションからプロフィールを照合する。
type ProfileReconciler interface {
	Reconcile(ctx context.Context, sess identity.Session) (*model.Profile, error)
}

// Redirector は画面遷移を行う。
// Controllerのイベントループから呼ばれるため、ブロックせず、Navigateを同期的に呼ばないこと。
type Redirector interface {
	Redirect(path string)
}

// RedirectFunc は関数をRedirectorとして扱うアダプタ。
type RedirectFunc func(path string)

// Redirect はf(path)を呼ぶ。
func (f RedirectFunc) Redirect(path string) { f(path) }

type reconcileResult struct {
	subjectID string
	profile   *model.Profile
	err       error
}

// Controller は1つのセッションスコープにおけるセッション変更通知を処理し、
// 照合結果をGateに反映する。
//
// 照合はイベントループとは別のゴルーチンで実行され、結果は到着順に反映される（後着優先）。
// 現在のセッションと異なるサブジェクトの結果は破棄する。照合待ちがある間はGateはUnknownを返す。
type Controller struct {
	reconciler ProfileReconciler
	policy     ForcedRotationPolicy
	redirector Redirector
	gate       *Gate
	logger     *slog.Logger

	results     chan reconcileResult
	navigations chan string

	mu       sync.RWMutex
	location string
}

// NewController はControllerを生成する。initialLocationは現在の画面のパス。
func NewController(reconciler ProfileReconciler, policy ForcedRotationPolicy, redirector Redirector, initialLocation string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		reconciler:  reconciler,
		policy:      policy,
		redirector:  redirector,
		gate:        NewGate(),
		logger:      logger,
		results:     make(chan reconcileResult),
		navigations: make(chan string),
		location:    initialLocation,
	}
}

// Gate はこのスコープのGateを返す。
func (c *Controller) Gate() *Gate {
	return c.gate
}

// Location は現在の画面のパスを返す。
func (c *Controller) Location() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location
}

func (c *Controller) setLocation(path string) {
	c.mu.Lock()
	c.location = path
	c.mu.Unlock()
}

// Navigate は画面遷移を通知する。セッションがあれば照合を再実行する。
func (c *Controller) Navigate(ctx context.Context, path string) {
	select {
	case c.navigations <- path:
	case <-ctx.Done():
	}
}

// Run はイベントループを実行する。
// ctxがキャンセルされるとctx.Err()を、eventsがクローズされるとnilを返す。
// Runが戻ると実行中の照合に渡したctxはキャンセルされ、照合ゴルーチンは終了する。
func (c *Controller) Run(ctx context.Context, events <-chan identity.Event) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		current *identity.Session
		last    *reconcileResult
		pending int
	)

	start := func(sess identity.Session) {
		pending++
		c.gate.setPending()
		go func() {
			p, err := c.reconciler.Reconcile(ctx, sess)
			select {
			case c.results <- reconcileResult{subjectID: sess.SubjectID, profile: p, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.Authenticated() {
				current = nil
				last = nil
				c.gate.setUnauthenticated()
				c.logger.Debug("session cleared")
				continue
			}

			sess := *ev.Session
			if current == nil || current.SubjectID != sess.SubjectID {
				last = nil
			}
			current = &sess
			start(sess)

		case path := <-c.navigations:
			c.setLocation(path)
			if current != nil {
				start(*current)
			}

		case res := <-c.results:
			pending--
			if current != nil && current.SubjectID == res.subjectID {
				r := res
				last = &r
				if res.err == nil {
					c.enforce(res.profile)
				}
			} else {
				c.logger.Debug("stale reconciliation result dropped",
					slog.String("subject_id", res.subjectID),
				)
			}

			if pending == 0 && current != nil && last != nil {
				c.apply(*last)
			}
		}
	}
}

func (c *Controller) apply(res reconcileResult) {
	if res.err != nil {
		c.logger.Warn("profile unavailable",
			slog.String("subject_id", res.subjectID),
			slog.String("error", res.err.Error()),
		)
		c.gate.setUnavailable()
		return
	}
	c.gate.setProfile(res.profile)
}

func (c *Controller) enforce(p *model.Profile) {
	path, ok := c.policy.RedirectFor(p, c.Location())
	if !ok {
		return
	}
	c.logger.Info("password change required, redirecting",
		slog.String("subject_id", p.ID),
		slog.String("to", path),
	)
	c.setLocation(path)
	if c.redirector != nil {
		c.redirector.Redirect(path)
	}
}
