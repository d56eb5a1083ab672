package progress

import (
	"math"
	"sort"
	"sync"

	"github.com/goliatone/go-userwizard/pkg/media"
)

// FileInfo describes the file being transferred.
type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
}

// Entry is the progress of a single upload, keyed by the staged display name.
type Entry struct {
	Identifier string
	BytesSent  int64
	BytesTotal int64
	Percentage int
	Source     FileInfo
	Media      media.Staged
}

// Complete reports whether the upload reached 100%.
func (e Entry) Complete() bool {
	return e.Percentage >= 100
}

// Percent converts a byte count into a rounded 0-100 percentage. A zero total
// is treated as one byte so the division is always defined.
func Percent(sent, total int64) int {
	if total <= 0 {
		total = 1
	}
	if sent < 0 {
		sent = 0
	}
	pct := int(math.Round(float64(sent) * 100 / float64(total)))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Listener receives a snapshot after every registry change. Listeners run
// synchronously on the writer's goroutine, one change at a time and in the
// order the changes were applied. They must not call back into the
// registry's mutating methods.
type Listener func([]Entry)

// Registry is a concurrency-safe, insertion-ordered map of upload entries.
type Registry struct {
	// notifyMu orders snapshot delivery across concurrent writers.
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	order     []string
	entries   map[string]Entry
	listeners map[int]Listener
	nextID    int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[string]Entry),
		listeners: make(map[int]Listener),
	}
}

// Update inserts or replaces the entry for e.Identifier. Percentage is
// derived from the byte counts when BytesTotal is known.
func (r *Registry) Update(e Entry) {
	if r == nil || e.Identifier == "" {
		return
	}
	if e.BytesTotal > 0 {
		e.Percentage = Percent(e.BytesSent, e.BytesTotal)
	}
	if e.Percentage < 0 {
		e.Percentage = 0
	}
	if e.Percentage > 100 {
		e.Percentage = 100
	}

	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.mu.Lock()
	if _, ok := r.entries[e.Identifier]; !ok {
		r.order = append(r.order, e.Identifier)
	}
	r.entries[e.Identifier] = e
	snapshot := r.snapshotLocked()
	listeners := r.listenersLocked()
	r.mu.Unlock()

	notify(listeners, snapshot)
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Snapshot returns the entries in insertion order, or nil when empty.
func (r *Registry) Snapshot() []Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Len returns the number of tracked uploads.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear drops every entry and notifies listeners with an empty snapshot.
func (r *Registry) Clear() {
	if r == nil {
		return
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.mu.Lock()
	r.order = nil
	r.entries = make(map[string]Entry)
	listeners := r.listenersLocked()
	r.mu.Unlock()

	notify(listeners, nil)
}

// Subscribe registers fn and returns a function that removes it.
func (r *Registry) Subscribe(fn Listener) (unsubscribe func()) {
	if r == nil || fn == nil {
		return func() {}
	}
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

func (r *Registry) snapshotLocked() []Entry {
	if len(r.order) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

func (r *Registry) listenersLocked() []Listener {
	if len(r.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.listeners[id])
	}
	return out
}

func notify(listeners []Listener, snapshot []Entry) {
	for _, fn := range listeners {
		fn(snapshot)
	}
}
