package meals

import (
	"context"
	"log"
	"sync"
)

// autosaver coalesces background saves per owner. At most one save per owner
// runs at a time; schedules that arrive while a save is in flight collapse
// into a single follow-up save of the latest state.
type autosaver struct {
	save   func(ctx context.Context, ownerUserID string) error
	logger *log.Logger

	mu       sync.Mutex
	inflight map[string]bool
	dirty    map[string]bool
	wg       sync.WaitGroup
}

func newAutosaver(save func(ctx context.Context, ownerUserID string) error, logger *log.Logger) *autosaver {
	if logger == nil {
		logger = log.Default()
	}
	return &autosaver{
		save:     save,
		logger:   logger,
		inflight: map[string]bool{},
		dirty:    map[string]bool{},
	}
}

// Schedule requests a save for the owner. Safe to call from any goroutine.
func (a *autosaver) Schedule(ownerUserID string) {
	a.mu.Lock()
	if a.inflight[ownerUserID] {
		a.dirty[ownerUserID] = true
		a.mu.Unlock()
		return
	}
	a.inflight[ownerUserID] = true
	a.wg.Add(1)
	a.mu.Unlock()

	go a.run(ownerUserID)
}

func (a *autosaver) run(ownerUserID string) {
	defer a.wg.Done()
	for {
		if err := a.save(context.Background(), ownerUserID); err != nil {
			a.logger.Printf("WARN meals: save for %s failed: %v", ownerUserID, err)
		}

		a.mu.Lock()
		if a.dirty[ownerUserID] {
			delete(a.dirty, ownerUserID)
			a.mu.Unlock()
			continue
		}
		delete(a.inflight, ownerUserID)
		a.mu.Unlock()
		return
	}
}

// Wait blocks until every in-flight save has finished.
func (a *autosaver) Wait() {
	a.wg.Wait()
}
