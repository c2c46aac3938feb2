package watchdog

import (
	"fmt"
	"os"
	"time"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/stack"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/track"
)

// recordNameFormat matches the millisecond timestamps downstream
// tooling expects in record file names.
const recordNameFormat = "20060102-150405.000"

// writeCapture appends one capture entry to the request's record,
// creating the record (and its header) on the first capture.
func (c *Checker) writeCapture(req *track.Request, g stack.Goroutine, elapsed time.Duration) (err error) {
	var f *os.File

	if req.RecordPath() == "" {
		path := c.store.Path(c.nextRecordName())
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) // #nosec G304 -- name is generated, path is inside the store dir
		if err != nil {
			return fmt.Errorf("creating record: %w", err)
		}
		// The handle is assigned exactly once; every later capture for
		// this request appends to the same file.
		req.SetRecordPath(path)

		if aerr := c.store.Add(path); aerr != nil {
			c.logger.Warn("registering record with store failed", "request_id", req.ID, "error", aerr)
		}

		if err := req.WriteHeader(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("writing record header: %w", err)
		}
	} else {
		path := req.RecordPath()

		// The store may have evicted this record from disk while the
		// request is still in flight. The handle is immutable, so the
		// file is recreated in place and re-registered; refusing to
		// would lose every later capture for this request.
		_, statErr := os.Stat(path)
		recreated := os.IsNotExist(statErr)

		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path was generated by this checker
		if err != nil {
			return fmt.Errorf("opening record for append: %w", err)
		}
		if recreated {
			if aerr := c.store.Add(path); aerr != nil {
				c.logger.Warn("re-registering record with store failed", "request_id", req.ID, "error", aerr)
			}
		} else if terr := c.store.Touch(path); terr != nil {
			c.logger.Warn("touching record in store failed", "request_id", req.ID, "error", terr)
		}
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing record: %w", cerr)
		}
	}()

	if _, err := fmt.Fprintf(f, "TimeElapsed: %dms\n", elapsed.Milliseconds()); err != nil {
		return fmt.Errorf("writing capture entry: %w", err)
	}
	for _, frame := range g.Frames {
		if _, err := fmt.Fprintf(f, "    %s\n", frame); err != nil {
			return fmt.Errorf("writing capture entry: %w", err)
		}
	}
	return nil
}

// nextRecordName returns a strictly increasing timestamp-based name.
// The sequence never repeats a millisecond, so two records allocated
// within the same clock tick still sort and never collide.
func (c *Checker) nextRecordName() string {
	ms := c.now().UnixMilli()
	for {
		prev := c.nameSeq.Load()
		next := ms
		if next <= prev {
			next = prev + 1
		}
		if c.nameSeq.CompareAndSwap(prev, next) {
			return time.UnixMilli(next).UTC().Format(recordNameFormat) + ".txt"
		}
	}
}
