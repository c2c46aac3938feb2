package api

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/fsutil"
)

// requestSummary is the wire form of one in-flight request.
type requestSummary struct {
	ID         string `json:"id"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	StartedAt  string `json:"started_at"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Record     string `json:"record,omitempty"`
}

// recordSummary is the wire form of one captured record file.
type recordSummary struct {
	Name    string `json:"name"`
	SizeB   int64  `json:"size_bytes"`
	ModTime string `json:"modified_at"`
}

// handleHealth returns service health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"watchdog_enabled": s.checker.Enabled(),
		"tracked_requests": s.tracker.Len(),
		"stored_records":   s.store.Len(),
	})
}

// handleListRequests returns the requests currently in flight, slowest
// first.
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	reqs := s.tracker.Snapshot()

	summaries := make([]requestSummary, 0, len(reqs))
	for _, req := range reqs {
		if req.Ended() {
			continue
		}
		sum := requestSummary{
			ID:         req.ID,
			Method:     req.Method,
			URL:        req.URL,
			RemoteAddr: req.RemoteAddr,
			StartedAt:  req.StartTime.Format(time.RFC3339Nano),
			ElapsedMS:  now.Sub(req.StartTime).Milliseconds(),
		}
		if p := req.RecordPath(); p != "" {
			sum.Record = filepath.Base(p)
		}
		summaries = append(summaries, sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ElapsedMS > summaries[j].ElapsedMS
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": summaries,
		"count":    len(summaries),
	})
}

// handleListRecords returns the captured records, newest touch first.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	paths := s.store.List()

	summaries := make([]recordSummary, 0, len(paths))
	// List is oldest-first; present the most recently touched on top.
	for i := len(paths) - 1; i >= 0; i-- {
		sum := recordSummary{Name: filepath.Base(paths[i])}
		if info, err := os.Stat(paths[i]); err == nil {
			sum.SizeB = info.Size()
			sum.ModTime = info.ModTime().Format(time.RFC3339Nano)
		}
		summaries = append(summaries, sum)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": summaries,
		"count":   len(summaries),
	})
}

// handleGetRecord streams one record file as plain text.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := fsutil.ReadFileInDir(s.store.Dir(), name)
	if err != nil {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleGetWatchdog reports the watchdog's runtime state.
func (s *Server) handleGetWatchdog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":   s.checker.Enabled(),
		"period_ms": s.checker.Period().Milliseconds(),
	})
}

// handlePutWatchdog toggles the watchdog at runtime.
func (s *Server) handlePutWatchdog(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Enabled == nil {
		respondError(w, http.StatusBadRequest, "body must be {\"enabled\": true|false}")
		return
	}

	s.checker.SetEnabled(*body.Enabled)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": s.checker.Enabled(),
	})
}

// handleDebugSleep holds the request for the given duration so the
// watchdog has something slow to capture.
func (s *Server) handleDebugSleep(w http.ResponseWriter, r *http.Request) {
	d, err := time.ParseDuration(r.URL.Query().Get("duration"))
	if err != nil || d < 0 {
		respondError(w, http.StatusBadRequest, "duration query parameter required, e.g. ?duration=15s")
		return
	}
	if d > 5*time.Minute {
		respondError(w, http.StatusBadRequest, "duration capped at 5m")
		return
	}

	select {
	case <-time.After(d):
	case <-r.Context().Done():
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"slept": d.String(),
	})
}
