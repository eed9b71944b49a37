package ui

import (
	"fmt"
	"time"
)

// StatusTracker accumulates per-post outcomes over a run.
type StatusTracker struct {
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int
	StartTime  time.Time
}

// NewStatusTracker creates a tracker with the clock started.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{StartTime: time.Now()}
}

func (st *StatusTracker) RecordDownloaded(bytes int) {
	st.Downloaded++
	st.Bytes += bytes
}

func (st *StatusTracker) RecordSkipped() {
	st.Skipped++
}

func (st *StatusTracker) RecordFailed() {
	st.Failed++
}

// Total returns the number of posts seen so far.
func (st *StatusTracker) Total() int {
	return st.Downloaded + st.Skipped + st.Failed
}

// Elapsed returns the time since tracking started.
func (st *StatusTracker) Elapsed() time.Duration {
	return time.Since(st.StartTime)
}

// PrintProgress writes a single-line progress update in place.
func (st *StatusTracker) PrintProgress() {
	if quiet {
		return
	}
	fmt.Printf("\r%s downloaded: %d | skipped: %d | failed: %d",
		Green("[FETCH]"), st.Downloaded, st.Skipped, st.Failed)
}

// PrintSummary writes the end-of-run summary.
func (st *StatusTracker) PrintSummary() {
	if quiet {
		return
	}
	fmt.Println()
	PrintInfo("Downloaded", fmt.Sprintf("%d", st.Downloaded))
	PrintInfo("Skipped", fmt.Sprintf("%d", st.Skipped))
	if st.Failed > 0 {
		PrintWarning(fmt.Sprintf("Failed: %d", st.Failed))
	}
	PrintInfo("Elapsed", st.Elapsed().Round(time.Second).String())
}
