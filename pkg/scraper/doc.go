// Package scraper orchestrates a download run end to end.
//
// A run moves through a small set of phases: authenticate, resolve the
// target profile, then iterate the timeline sequentially. For each
// post the run either writes it to disk or skips it because it is
// already there. The run finishes when the timeline is exhausted.
//
// Error handling splits into two classes. Per-post failures (a failed
// write, a transient fetch error) are counted and the run moves on to
// the next post. Terminal failures (an expired session, a denied
// account, rate limiting past the retry budget, cancellation) abort
// the run with an error.
//
// Re-running against the same account is the resume mechanism: posts
// already on disk are detected and skipped, so an interrupted run
// picks up where it stopped without any extra state.
package scraper
