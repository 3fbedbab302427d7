package identity

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadySubscribed はストリームに既に購読者が存在する場合に返る。
var ErrAlreadySubscribed = errors.New("identity: stream already has an active subscriber")

// Stream はセッション変更通知のストリーム。
// 購読者はセッションスコープごとに1つだけ持てる。購読はcontextのキャンセルで解除される。
// 購読者の処理が遅れた場合、未配送の通知は最新のもので上書きされる。
type Stream struct {
	mu      sync.Mutex
	pending *Event
	active  bool
	notify  chan struct{}
}

// NewStream はStreamを生成する。
func NewStream() *Stream {
	return &Stream{
		notify: make(chan struct{}, 1),
	}
}

// Publish は通知を発行する。ブロックしない。
// 購読者がいない間に発行された通知は、最新の1件だけが次の購読者に配送される。
func (s *Stream) Publish(ev Event) {
	s.mu.Lock()
	s.pending = &ev
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Subscribe は通知を受け取るチャネルを返す。
// ctxがキャンセルされるとチャネルはクローズされ、新たな購読が可能になる。
func (s *Stream) Subscribe(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	s.active = true
	s.mu.Unlock()

	out := make(chan Event)
	go s.forward(ctx, out)
	return out, nil
}

func (s *Stream) forward(ctx context.Context, out chan<- Event) {
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}

		s.mu.Lock()
		ev := s.pending
		s.pending = nil
		s.mu.Unlock()

		if ev == nil {
			continue
		}

		select {
		case out <- *ev:
		case <-ctx.Done():
			return
		}
	}
}
