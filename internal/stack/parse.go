package stack

import (
	"runtime"
	"strconv"
	"strings"
)

// Parse converts runtime.Stack output into per-goroutine entries.
// Blocks that do not start with a "goroutine N [state]:" header are
// skipped rather than treated as an error.
func Parse(dump []byte) []Goroutine {
	var out []Goroutine

	for _, block := range strings.Split(string(dump), "\n\n") {
		block = strings.TrimRight(block, "\n")
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		id, state, ok := parseHeader(lines[0])
		if !ok {
			continue
		}

		frames := make([]string, 0, len(lines)-1)
		for _, line := range lines[1:] {
			line = strings.TrimRight(strings.ReplaceAll(line, "\t", "  "), " ")
			if line == "" {
				continue
			}
			frames = append(frames, line)
		}

		out = append(out, Goroutine{ID: id, State: state, Frames: frames})
	}

	return out
}

// parseHeader parses "goroutine 123 [running]:".
func parseHeader(line string) (uint64, string, bool) {
	rest, ok := strings.CutPrefix(line, "goroutine ")
	if !ok {
		return 0, "", false
	}
	idStr, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return 0, "", false
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, "", false
	}
	state := strings.TrimSuffix(rest, ":")
	state = strings.TrimPrefix(state, "[")
	state = strings.TrimSuffix(state, "]")
	return id, state, true
}

// CurrentID returns the ID of the calling goroutine.
//
// The runtime does not expose goroutine IDs directly; the stable way to
// obtain one is the header of a single-goroutine stack trace. This runs
// once per tracked request, not on any hot path.
func CurrentID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	id, _, _ := parseHeader(strings.SplitN(string(buf[:n]), "\n", 2)[0])
	return id
}
