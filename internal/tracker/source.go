package tracker

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPermissionDenied means the location source refused access. The
	// feature is disabled for the caller, not failed.
	ErrPermissionDenied = errors.New("permission_denied")

	// ErrNoFix means the source has no position yet.
	ErrNoFix = errors.New("no_fix")
)

// Source abstracts a device location service: a permission gate, a one-shot
// position and a continuous watch.
type Source interface {
	RequestPermission(ctx context.Context) error
	Current(ctx context.Context) (Fix, error)

	// Watch returns a fix channel and a cancel func. The channel closes
	// when the watch is cancelled.
	Watch(ctx context.Context) (<-chan Fix, func(), error)
}

// PushSource is a Source fed over HTTP: clients post their fixes and the
// tracker consumes them through the Watch channel.
type PushSource struct {
	mu       sync.Mutex
	last     *Fix
	watchers map[int]chan Fix
	nextID   int
}

func NewPushSource() *PushSource {
	return &PushSource{watchers: map[int]chan Fix{}}
}

// RequestPermission always succeeds: a client that can reach the endpoint has
// already granted location access on its side.
func (p *PushSource) RequestPermission(ctx context.Context) error {
	return nil
}

func (p *PushSource) Current(ctx context.Context) (Fix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil {
		return Fix{}, ErrNoFix
	}
	return *p.last, nil
}

func (p *PushSource) Watch(ctx context.Context) (<-chan Fix, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan Fix, 16)
	p.watchers[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if w, ok := p.watchers[id]; ok {
			delete(p.watchers, id)
			close(w)
		}
	}
	return ch, cancel, nil
}

// Push delivers a fix to every active watcher. Slow watchers drop fixes
// instead of blocking the HTTP handler.
func (p *PushSource) Push(fix Fix) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = &fix
	for _, ch := range p.watchers {
		select {
		case ch <- fix:
		default:
		}
	}
}
