package access

import (
	"sync"

	"github.com/hitoshi/castline/internal/model"
)

// State はゲートの状態。
type State int

const (
	// StateUnknown は照合中。保護された画面は描画しない。
	StateUnknown State = iota
	// StateUnauthenticated はセッションなし。
	StateUnauthenticated
	// StateReady は照合完了。Capabilitiesで判定する。
	StateReady
)

// Decision は保護された画面やAPIに対する判定。
type Decision int

const (
	DecisionUnknown Decision = iota
	DecisionUnauthenticated
	DecisionAuthorized
	DecisionDenied
)

func (d Decision) String() string {
	switch d {
	case DecisionUnknown:
		return "unknown"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionAuthorized:
		return "authorized"
	case DecisionDenied:
		return "denied"
	default:
		return "invalid"
	}
}

// Snapshot はある時点のゲートの状態。
type Snapshot struct {
	State        State
	Profile      *model.Profile
	Capabilities Capabilities
	// Unavailable は照合に失敗し、プロフィールなしで判定していることを表す。
	Unavailable bool
}

// Gate は現在のセッションスコープにおける権限判定を保持する。
// 更新はControllerのイベントループからのみ行われ、読み取りは任意のゴルーチンから行える。
type Gate struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewGate はStateUnknownのGateを生成する。
func NewGate() *Gate {
	return &Gate{snap: Snapshot{State: StateUnknown}}
}

// Snapshot は現在の状態を返す。
func (g *Gate) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}

// Decide は必要な権限に対する判定を返す。
func (g *Gate) Decide(required Capability) Decision {
	return g.Snapshot().Decide(required)
}

// Decide は必要な権限に対する判定を返す。
func (s Snapshot) Decide(required Capability) Decision {
	switch s.State {
	case StateUnknown:
		return DecisionUnknown
	case StateUnauthenticated:
		return DecisionUnauthenticated
	}
	if s.Capabilities.Has(required) {
		return DecisionAuthorized
	}
	return DecisionDenied
}

func (g *Gate) set(s Snapshot) {
	g.mu.Lock()
	g.snap = s
	g.mu.Unlock()
}

func (g *Gate) setPending() {
	g.set(Snapshot{State: StateUnknown})
}

func (g *Gate) setUnauthenticated() {
	g.set(Snapshot{State: StateUnauthenticated})
}

func (g *Gate) setProfile(p *model.Profile) {
	g.set(Snapshot{
		State:        StateReady,
		Profile:      p,
		Capabilities: CapabilitiesFor(p),
	})
}

func (g *Gate) setUnavailable() {
	g.set(Snapshot{
		State:        StateReady,
		Capabilities: CapabilitiesFor(nil),
		Unavailable:  true,
	})
}
