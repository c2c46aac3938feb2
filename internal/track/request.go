// Package track maintains the registry of in-flight HTTP requests that
// the watchdog observes.
package track

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Request is one tracked in-flight operation.
//
// Ownership is split: the request's own goroutine flips ended on
// completion, while lastCapture and recordPath are written only by the
// watchdog cycle goroutine. Readers can be anyone (the status API lists
// in-flight requests while cycles run), so both fields sit behind mu.
type Request struct {
	ID         string
	Method     string
	URL        string
	RemoteAddr string
	Host       string
	UserAgent  string
	StartTime  time.Time

	// GID is the goroutine serving this request, used to match the
	// request to one entry of a stack dump.
	GID uint64

	ended atomic.Bool

	mu          sync.Mutex
	lastCapture time.Time
	recordPath  string
}

// NewRequest builds a tracked request from an incoming HTTP request.
func NewRequest(r *http.Request, gid uint64, start time.Time) *Request {
	return &Request{
		ID:         uuid.New().String(),
		Method:     r.Method,
		URL:        r.URL.RequestURI(),
		RemoteAddr: r.RemoteAddr,
		Host:       r.Host,
		UserAgent:  r.UserAgent(),
		StartTime:  start,
		GID:        gid,
	}
}

// End marks the request as completed. It is called exactly once, from
// the request's own goroutine, and is monotonic false to true.
func (r *Request) End() {
	r.ended.Store(true)
}

// Ended reports whether the request has completed.
func (r *Request) Ended() bool {
	return r.ended.Load()
}

// LastCapture returns the time of the most recent stack capture, if any.
func (r *Request) LastCapture() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCapture, !r.lastCapture.IsZero()
}

// SetLastCapture records when capture evidence was last gathered for
// this request. Values must be non-decreasing; earlier times are ignored.
func (r *Request) SetLastCapture(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.After(r.lastCapture) {
		r.lastCapture = t
	}
}

// RecordPath returns the diagnostic record assigned to this request, or
// "" if none has been allocated yet.
func (r *Request) RecordPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordPath
}

// SetRecordPath assigns the record file for this request. The first
// assignment wins; the handle is immutable for the request's lifetime.
func (r *Request) SetRecordPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordPath == "" {
		r.recordPath = path
	}
}

// WriteHeader writes the record header identifying this request.
func (r *Request) WriteHeader(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s\nRequestID: %s\nRemoteAddr: %s\nHost: %s\nUserAgent: %s\nStarted: %s\n\n",
		r.Method, r.URL,
		r.ID,
		r.RemoteAddr,
		r.Host,
		r.UserAgent,
		r.StartTime.UTC().Format(time.RFC3339Nano),
	)
	return err
}
