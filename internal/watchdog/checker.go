// Package watchdog implements the periodic slow-request checker: it
// scans the in-flight request registry, flags requests over the
// slowness threshold, and captures goroutine stack dumps for them into
// a capped record store.
package watchdog

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/stack"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/store"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/track"
)

// Config holds the checker's timing parameters.
type Config struct {
	// Period is the cycle cadence.
	Period time.Duration

	// Threshold is the elapsed time beyond which a request is
	// considered slow. The effective threshold is never tighter than
	// twice Period; sampling at or below the threshold interval would
	// only produce noise.
	Threshold time.Duration

	// RepeatAfter is the minimum spacing between successive captures
	// of the same request.
	RepeatAfter time.Duration

	// Enabled controls whether cycles do any work. It can be flipped
	// at runtime via SetEnabled.
	Enabled bool
}

// DefaultConfig returns the stock timing parameters.
func DefaultConfig() Config {
	return Config{
		Period:      3 * time.Second,
		Threshold:   10 * time.Second,
		RepeatAfter: 15 * time.Second,
		Enabled:     true,
	}
}

// Checker runs the watchdog cycle. All cycles execute sequentially on
// one goroutine; the tracker may be mutated concurrently by request
// goroutines throughout.
type Checker struct {
	cfg      Config
	tracker  *track.Tracker
	provider stack.Provider
	store    *store.FileCap
	logger   *slog.Logger

	enabled atomic.Bool
	now     func() time.Time

	// nameSeq is a monotonic millisecond counter backing record names,
	// so two allocations within the same millisecond still get
	// strictly increasing, collision-free names.
	nameSeq atomic.Int64

	stopCh  chan struct{}
	stopped atomic.Bool
}

// NewChecker creates a checker. Zero timing fields fall back to
// DefaultConfig values.
func NewChecker(cfg Config, tracker *track.Tracker, provider stack.Provider, st *store.FileCap, logger *slog.Logger) *Checker {
	def := DefaultConfig()
	if cfg.Period <= 0 {
		cfg.Period = def.Period
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.RepeatAfter <= 0 {
		cfg.RepeatAfter = def.RepeatAfter
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Checker{
		cfg:      cfg,
		tracker:  tracker,
		provider: provider,
		store:    st,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	c.enabled.Store(cfg.Enabled)
	return c
}

// SetEnabled toggles the checker at runtime without restarting it.
func (c *Checker) SetEnabled(v bool) {
	if c.enabled.Swap(v) != v {
		c.logger.Info("watchdog toggled", "enabled", v)
	}
}

// Enabled reports whether cycles currently do any work.
func (c *Checker) Enabled() bool {
	return c.enabled.Load()
}

// Period returns the configured cycle cadence.
func (c *Checker) Period() time.Duration {
	return c.cfg.Period
}

// Start launches the periodic cycle loop. The loop runs every cycle on
// the same goroutine, so cycles never overlap; if a cycle overruns the
// period, ticks are dropped rather than queued.
func (c *Checker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.cfg.Period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.RunCycle(c.now())
			}
		}
	}()
}

// Stop halts the cycle loop.
func (c *Checker) Stop() {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
}

// RunCycle executes one watchdog pass over the tracked requests.
//
// It never panics out: a failure in one request's capture is logged and
// the remaining requests are still processed, and a snapshot failure
// only abandons the captures of this cycle. Letting anything escape
// here would kill the watchdog for the process lifetime.
func (c *Checker) RunCycle(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("watchdog cycle panicked", "panic", r)
		}
	}()

	if !c.enabled.Load() {
		return
	}

	threshold := c.effectiveThreshold()

	// The dump is fetched lazily and at most once: cycles with no slow
	// requests never pay for it, cycles with many pay exactly once.
	var dump *stack.Dump

	for _, req := range c.tracker.Snapshot() {
		elapsed := now.Sub(req.StartTime)
		if elapsed <= threshold {
			continue
		}
		if last, ok := req.LastCapture(); ok && last.Add(c.cfg.RepeatAfter).After(c.now()) {
			// Already captured recently; re-dumping every cycle would
			// bury the signal in duplicates.
			continue
		}

		if dump == nil {
			d, err := c.provider.Snapshot()
			if err != nil {
				c.logger.Warn("stack snapshot failed, abandoning captures for this cycle", "error", err)
				return
			}
			dump = d
		}

		// Throttling is measured from when the evidence was gathered,
		// not from this cycle's wall-clock time.
		req.SetLastCapture(dump.TakenAt)

		// The request may have finished while the dump was being
		// taken; its goroutine's stack would be unrelated to the
		// slowness we flagged.
		if req.Ended() {
			continue
		}

		g, ok := dump.Goroutine(req.GID)
		if !ok {
			// Goroutine already gone; nothing useful to record.
			continue
		}

		if err := c.writeCapture(req, g, elapsed); err != nil {
			c.logger.Warn("writing slow request record failed",
				"request_id", req.ID,
				"error", err,
			)
			continue
		}
		c.logger.Debug("captured slow request",
			"request_id", req.ID,
			"elapsed", elapsed,
			"record", filepath.Base(req.RecordPath()),
		)
	}
}

func (c *Checker) effectiveThreshold() time.Duration {
	threshold := c.cfg.Threshold
	if floor := 2 * c.cfg.Period; threshold < floor {
		threshold = floor
	}
	return threshold
}
