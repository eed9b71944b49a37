// Package downloader turns one post into files on disk: skip check,
// paced media fetches, then a single atomic save.
package downloader

import (
	"context"
	"fmt"
	"time"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/models"
	"igfetch/pkg/ratelimit"
	"igfetch/pkg/retry"
)

// MediaFetcher downloads one media payload.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, url string) ([]byte, error)
}

// Sink persists posts and answers whether one is already on disk.
type Sink interface {
	HasPost(post models.Post) bool
	SavePost(post models.Post, payloads [][]byte) error
}

// Status classifies the outcome of processing one post.
type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what happened to a single post.
type Result struct {
	Post     models.Post
	Status   Status
	Err      error
	Duration time.Duration
	Bytes    int
}

// PostDownloader processes posts one at a time. Requests share the
// pacer with the feed iterator, so a run never issues two platform
// requests closer together than the configured gap.
type PostDownloader struct {
	fetcher    MediaFetcher
	sink       Sink
	pacer      ratelimit.Pacer
	retryCfg   *retry.Config
	skipVideos bool
	logger     logger.Logger
}

// New creates a downloader. A nil retry config falls back to defaults.
func New(fetcher MediaFetcher, sink Sink, pacer ratelimit.Pacer, retryCfg *retry.Config, log logger.Logger) *PostDownloader {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &PostDownloader{
		fetcher:  fetcher,
		sink:     sink,
		pacer:    pacer,
		retryCfg: retryCfg,
		logger:   log,
	}
}

// SetSkipVideos makes the downloader drop video media items instead of
// fetching them. Posts whose media is all video are skipped entirely.
func (d *PostDownloader) SetSkipVideos(skip bool) {
	d.skipVideos = skip
}

// Process downloads one post. A post already on disk is skipped
// without any network traffic. Fetch failures retry per the configured
// policy; save failures never do.
func (d *PostDownloader) Process(ctx context.Context, post models.Post) Result {
	start := time.Now()

	post = d.filterMedia(post)
	if len(post.Media) == 0 {
		return Result{Post: post, Status: StatusSkipped, Duration: time.Since(start)}
	}

	if d.sink.HasPost(post) {
		d.logger.DebugWithFields("post already downloaded", map[string]interface{}{
			"shortcode": post.Shortcode,
		})
		return Result{Post: post, Status: StatusSkipped, Duration: time.Since(start)}
	}

	payloads := make([][]byte, len(post.Media))
	var total int
	for i, media := range post.Media {
		data, err := d.fetchOne(ctx, media.URL)
		if err != nil {
			d.logger.ErrorWithFields("media download failed", map[string]interface{}{
				"shortcode": post.Shortcode,
				"media":     i,
				"error":     err.Error(),
			})
			return Result{
				Post:     post,
				Status:   StatusFailed,
				Err:      fmt.Errorf("post %s: %w", post.Shortcode, err),
				Duration: time.Since(start),
				Bytes:    total,
			}
		}
		payloads[i] = data
		total += len(data)
	}

	if err := d.sink.SavePost(post, payloads); err != nil {
		d.logger.ErrorWithFields("failed to save post", map[string]interface{}{
			"shortcode": post.Shortcode,
			"error":     err.Error(),
		})
		return Result{
			Post:     post,
			Status:   StatusFailed,
			Err:      err,
			Duration: time.Since(start),
			Bytes:    total,
		}
	}

	d.logger.DebugWithFields("post downloaded", map[string]interface{}{
		"shortcode": post.Shortcode,
		"media":     len(post.Media),
		"bytes":     total,
	})

	return Result{
		Post:     post,
		Status:   StatusDownloaded,
		Duration: time.Since(start),
		Bytes:    total,
	}
}

// fetchOne performs a single paced media request with retries.
func (d *PostDownloader) fetchOne(ctx context.Context, url string) ([]byte, error) {
	var data []byte

	cfg := *d.retryCfg
	cfg.Context = ctx

	err := retry.Do(func() error {
		if d.pacer != nil {
			if err := d.pacer.Wait(ctx); err != nil {
				return err
			}
		}
		var fetchErr error
		data, fetchErr = d.fetcher.FetchMedia(ctx, url)
		return fetchErr
	}, &cfg)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errs.New(errs.ErrorTypeNetwork, "empty media payload")
	}
	return data, nil
}

// filterMedia applies the skip-videos setting.
func (d *PostDownloader) filterMedia(post models.Post) models.Post {
	if !d.skipVideos {
		return post
	}

	var kept []models.Media
	for _, media := range post.Media {
		if media.Kind != models.MediaKindVideo {
			kept = append(kept, media)
		}
	}
	post.Media = kept
	return post
}
