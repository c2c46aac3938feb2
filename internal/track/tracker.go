package track

import (
	"net/http"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/stack"
)

// Tracker is a concurrent registry of in-flight requests. Request
// goroutines add and remove entries; the watchdog only reads a
// weakly-consistent snapshot, so neither side ever blocks the other.
type Tracker struct {
	requests sync.Map // request ID -> *Request
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Add registers a request. Called from the request's goroutine when the
// operation starts.
func (t *Tracker) Add(r *Request) {
	t.requests.Store(r.ID, r)
}

// Remove marks the request ended and drops it from the registry. The
// ended flag is set first so a concurrent watchdog cycle that already
// holds a reference abandons any pending capture.
func (t *Tracker) Remove(r *Request) {
	r.End()
	t.requests.Delete(r.ID)
}

// Snapshot returns a point-in-time view of the tracked requests.
// Entries added or removed concurrently may or may not appear; that is
// acceptable for the watchdog, which re-checks ended per entry.
func (t *Tracker) Snapshot() []*Request {
	var out []*Request
	t.requests.Range(func(_, v any) bool {
		out = append(out, v.(*Request))
		return true
	})
	return out
}

// Len returns the current number of tracked requests.
func (t *Tracker) Len() int {
	n := 0
	t.requests.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Middleware wraps an HTTP handler so every request is tracked for its
// lifetime. The entry is removed on every exit path, including panics.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := NewRequest(r, stack.CurrentID(), time.Now())
		t.Add(req)
		defer t.Remove(req)

		next.ServeHTTP(w, r)
	})
}
