package enforce

import (
	"sort"
	"sync"

	"labtrail/internal/registry"
)

// HookTable records which entities have enforcement actually attached. Each
// interceptor attachment self-registers here, and the compliance checker
// cross-references the table against the declared policy registry. This is
// how declared-but-unwired drift surfaces without reflection.
type HookTable struct {
	mu    sync.RWMutex
	hooks map[string]registry.Wiring
}

func NewHookTable() *HookTable {
	return &HookTable{hooks: make(map[string]registry.Wiring)}
}

// Register declares an entity as actively enforced.
func (t *HookTable) Register(w registry.Wiring) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks[w.Entity] = w
}

// Unregister removes an entity's wiring record. Exists so tests and
// decommissioning can model a detached hook; the compliance checker then
// reports the drift.
func (t *HookTable) Unregister(entity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hooks, entity)
}

// Wirings implements registry.Inspector.
func (t *HookTable) Wirings() []registry.Wiring {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]registry.Wiring, 0, len(t.hooks))
	for _, w := range t.hooks {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}
