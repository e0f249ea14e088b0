package store

import (
	"sort"
	"sync"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lockTable hands out process-local mutexes by key. Entries are dropped once no
// holder or waiter references them.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

// acquire locks every key in sorted order and returns a function releasing them.
func (t *lockTable) acquire(keys []string) func() {
	sorted := normalizeKeys(keys)

	held := make([]*lockEntry, 0, len(sorted))
	for _, key := range sorted {
		t.mu.Lock()
		e, ok := t.entries[key]
		if !ok {
			e = &lockEntry{}
			t.entries[key] = e
		}
		e.refs++
		t.mu.Unlock()

		e.mu.Lock()
		held = append(held, e)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()

			t.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(t.entries, sorted[i])
			}
			t.mu.Unlock()
		}
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
