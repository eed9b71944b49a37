package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igfetch/internal/downloader"
	"igfetch/pkg/config"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/feed"
	"igfetch/pkg/logger"
	"igfetch/pkg/models"
	"igfetch/pkg/ratelimit"
	"igfetch/pkg/retry"
	"igfetch/pkg/storage"
	"igfetch/pkg/ui"
)

// State is the phase the run is currently in.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateFetching
	StateWriting
	StateSkipping
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateFetching:
		return "fetching"
	case StateWriting:
		return "writing"
	case StateSkipping:
		return "skipping"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Counts tallies per-post outcomes over a run.
type Counts struct {
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int
}

// Summary is the end-of-run report.
type Summary struct {
	Account models.Account
	Counts  Counts
	Elapsed time.Duration
}

// Scraper drives a complete download run for one account: establish a
// session, resolve the profile, then walk the timeline post by post,
// downloading what is missing and skipping what is already on disk.
// Every platform request goes through one shared pacer, so the run
// never exceeds the configured request rate no matter which component
// issues the request.
type Scraper struct {
	provider SessionProvider
	config   *config.Config
	tracker  *ui.StatusTracker
	notifier *ui.Notifier
	logger   logger.Logger
	state    State
}

// New creates a Scraper. The provider is consulted once per Run.
func New(provider SessionProvider, cfg *config.Config) *Scraper {
	return &Scraper{
		provider: provider,
		config:   cfg,
		tracker:  ui.NewStatusTracker(),
		notifier: ui.NewNotifier(cfg.Notifications.Enabled),
		logger:   logger.GetLogger(),
		state:    StateIdle,
	}
}

// State returns the current run phase.
func (s *Scraper) State() State {
	return s.state
}

func (s *Scraper) setState(state State) {
	if s.state == state {
		return
	}
	s.logger.DebugWithFields("state transition", map[string]interface{}{
		"from": s.state.String(),
		"to":   state.String(),
	})
	s.state = state
}

// Run downloads every missing post of the account. A non-nil error is
// terminal: the session could not be established, the account is not
// accessible, the platform rate-limited the run past the retry budget,
// or the context was cancelled. Per-post failures do not abort the
// run; they are counted in the summary instead.
func (s *Scraper) Run(ctx context.Context, username string) (*Summary, error) {
	start := time.Now()
	s.tracker = ui.NewStatusTracker()

	s.setState(StateAuthenticating)
	session, err := s.provider.Authenticate(ctx)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	s.setState(StateFetching)
	account, err := session.FetchProfile(ctx, username)
	if err != nil {
		s.setState(StateFailed)
		return nil, err
	}

	// The accessibility check comes before any filesystem work, so a
	// denied run leaves no empty account directory behind.
	if !account.Accessible() {
		s.setState(StateFailed)
		return nil, errs.Newf(errs.ErrorTypeAccessDenied,
			"account %s is private and not followed by this session", account.Username)
	}

	s.logger.InfoWithFields("starting run", map[string]interface{}{
		"username":   account.Username,
		"user_id":    account.ID,
		"post_count": account.PostCount,
	})
	ui.PrintInfo("Account", account.Username)
	ui.PrintInfo("Posts", fmt.Sprintf("%d", account.PostCount))

	sink, err := storage.NewSink(s.config.Output.BaseDirectory, account.Username)
	if err != nil {
		s.setState(StateFailed)
		return nil, err
	}

	minDelay, maxDelay := s.config.DelayRange()
	pacer := ratelimit.NewRandomPacer(minDelay, maxDelay)
	retryCfg := s.retryConfig(ctx)

	iterator := feed.NewIterator(session, account.ID, pacer, retryCfg)
	dl := downloader.New(session, sink, pacer, retryCfg, s.logger)
	dl.SetSkipVideos(s.config.Download.SkipVideos)

	if err := s.runLoop(ctx, iterator, dl); err != nil {
		s.setState(StateFailed)
		s.notifyFailure(account.Username, err)
		return nil, err
	}

	s.setState(StateDone)
	summary := &Summary{
		Account: account,
		Counts: Counts{
			Downloaded: s.tracker.Downloaded,
			Skipped:    s.tracker.Skipped,
			Failed:     s.tracker.Failed,
			Bytes:      s.tracker.Bytes,
		},
		Elapsed: time.Since(start),
	}

	s.tracker.PrintSummary()
	s.notifyCompletion(summary)

	s.logger.InfoWithFields("run complete", map[string]interface{}{
		"username":   account.Username,
		"downloaded": summary.Counts.Downloaded,
		"skipped":    summary.Counts.Skipped,
		"failed":     summary.Counts.Failed,
		"elapsed":    summary.Elapsed.String(),
	})
	return summary, nil
}

// runLoop walks the timeline sequentially, one post at a time.
func (s *Scraper) runLoop(ctx context.Context, iterator *feed.Iterator, dl *downloader.PostDownloader) error {
	for iterator.Next(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}

		post := iterator.Post()
		s.setState(StateFetching)

		result := dl.Process(ctx, post)
		switch result.Status {
		case downloader.StatusDownloaded:
			s.setState(StateWriting)
			s.tracker.RecordDownloaded(result.Bytes)
		case downloader.StatusSkipped:
			s.setState(StateSkipping)
			s.tracker.RecordSkipped()
		case downloader.StatusFailed:
			if isTerminal(result.Err) {
				return result.Err
			}
			s.tracker.RecordFailed()
			s.logger.WarnWithFields("post failed, continuing", map[string]interface{}{
				"shortcode": post.Shortcode,
				"error":     result.Err.Error(),
			})
		}
		s.tracker.PrintProgress()
	}

	return iterator.Err()
}

// isTerminal reports whether a per-post error must abort the run. Rate
// limiting at this point has already exhausted its retry budget, and a
// dead session cannot recover mid-run. Write and transient network
// failures affect only the one post.
func isTerminal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch errs.TypeOf(err) {
	case errs.ErrorTypeRateLimited, errs.ErrorTypeAuthExpired, errs.ErrorTypeAccessDenied:
		return true
	}
	return false
}

func (s *Scraper) retryConfig(ctx context.Context) *retry.Config {
	return &retry.Config{
		MaxAttempts: s.config.Retry.MaxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    s.config.Retry.RetryBaseDelay(),
			MaxDelay:     s.config.Retry.RetryMaxDelay(),
			Multiplier:   s.config.Retry.Multiplier,
			JitterFactor: 0.2,
		},
		RetryIf: retry.DefaultRetryIf,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			if errs.Is(err, errs.ErrorTypeRateLimited) {
				ui.PrintWarning(fmt.Sprintf("Rate limited, backing off %s (attempt %d)", delay.Round(time.Second), attempt))
				if s.config.Notifications.OnRateLimit {
					s.notifier.SendNotification("igfetch", "Rate limited, backing off")
				}
			}
		},
		Context: ctx,
		Logger:  s.logger,
	}
}

func (s *Scraper) notifyCompletion(summary *Summary) {
	if !s.config.Notifications.OnComplete {
		return
	}
	s.notifier.SendNotification("igfetch",
		fmt.Sprintf("%s: %d downloaded, %d skipped, %d failed",
			summary.Account.Username, summary.Counts.Downloaded,
			summary.Counts.Skipped, summary.Counts.Failed))
}

func (s *Scraper) notifyFailure(username string, err error) {
	ui.PrintError("Run failed", err)
	if s.config.Notifications.Enabled {
		s.notifier.SendError("igfetch", fmt.Sprintf("%s: %v", username, err))
	}
}
