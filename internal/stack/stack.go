// Package stack captures point-in-time snapshots of all goroutine
// execution stacks in the running process.
package stack

import (
	"runtime"
	"time"
)

// Goroutine is one entry in a Dump: a goroutine identity plus its stack
// at the moment the dump was taken. Frames hold the raw trace lines,
// top frame first.
type Goroutine struct {
	ID     uint64
	State  string
	Frames []string
}

// Dump is an immutable snapshot of all goroutine stacks at one instant.
type Dump struct {
	TakenAt    time.Time
	Goroutines []Goroutine
}

// Goroutine returns the entry with the given ID. At most one entry is
// returned even if the dump were to contain duplicates.
func (d *Dump) Goroutine(id uint64) (Goroutine, bool) {
	for _, g := range d.Goroutines {
		if g.ID == id {
			return g, true
		}
	}
	return Goroutine{}, false
}

// Provider produces stack dumps on demand. Implementations must be
// side-effect free; the returned dump is never mutated by callers.
// A remote-agent provider can satisfy this interface as well; the
// watchdog does not care where the dump comes from.
type Provider interface {
	Snapshot() (*Dump, error)
}

// RuntimeProvider captures dumps of the local process via runtime.Stack.
type RuntimeProvider struct {
	// MaxBytes bounds the dump buffer. Zero means the default (64MB).
	MaxBytes int
}

const defaultMaxDumpBytes = 64 << 20

// Snapshot captures the stacks of all live goroutines.
func (p *RuntimeProvider) Snapshot() (*Dump, error) {
	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDumpBytes
	}

	// runtime.Stack truncates silently when the buffer is too small,
	// so grow until the dump fits.
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		if len(buf) >= maxBytes {
			buf = buf[:n]
			break
		}
		buf = make([]byte, len(buf)*2)
	}

	return &Dump{
		TakenAt:    time.Now(),
		Goroutines: Parse(buf),
	}, nil
}
