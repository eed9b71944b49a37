// Package feed walks an account's timeline page by page, newest
// first, pacing every page request and retrying transient failures.
package feed

import (
	"context"

	"igfetch/pkg/models"
	"igfetch/pkg/ratelimit"
	"igfetch/pkg/retry"
)

// Lister fetches one page of an account's posts. An empty cursor
// requests the first page.
type Lister interface {
	FetchPosts(ctx context.Context, userID, after string) (models.Page, error)
}

// Iterator yields an account's posts one at a time, fetching further
// pages lazily. Usage follows bufio.Scanner:
//
//	for it.Next(ctx) {
//		post := it.Post()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iterator struct {
	lister   Lister
	pacer    ratelimit.Pacer
	retryCfg *retry.Config

	userID  string
	cursor  string
	hasMore bool

	pending []models.Post
	current models.Post
	err     error
}

// NewIterator creates an iterator over the account's timeline. The
// pacer is shared with media downloads so every platform request
// observes the same spacing.
func NewIterator(lister Lister, userID string, pacer ratelimit.Pacer, retryCfg *retry.Config) *Iterator {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &Iterator{
		lister:   lister,
		pacer:    pacer,
		retryCfg: retryCfg,
		userID:   userID,
		hasMore:  true,
	}
}

// Next advances to the next post. It returns false when the timeline
// is exhausted, the context is cancelled, or a page fetch fails after
// retries; Err distinguishes the failure cases.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}

	for len(it.pending) == 0 {
		if !it.hasMore {
			return false
		}
		if err := ctx.Err(); err != nil {
			it.err = err
			return false
		}
		if !it.fetchPage(ctx) {
			return false
		}
	}

	it.current = it.pending[0]
	it.pending = it.pending[1:]
	return true
}

// Post returns the post Next advanced to.
func (it *Iterator) Post() models.Post {
	return it.current
}

// Err returns the error that stopped iteration, nil on normal
// exhaustion.
func (it *Iterator) Err() error {
	return it.err
}

// fetchPage loads the next page into the pending buffer. One paced
// request per attempt; rate-limit responses back off and retry until
// the attempt budget runs out.
func (it *Iterator) fetchPage(ctx context.Context) bool {
	var page models.Page

	cfg := *it.retryCfg
	cfg.Context = ctx

	err := retry.Do(func() error {
		if it.pacer != nil {
			if err := it.pacer.Wait(ctx); err != nil {
				return err
			}
		}
		var fetchErr error
		page, fetchErr = it.lister.FetchPosts(ctx, it.userID, it.cursor)
		return fetchErr
	}, &cfg)
	if err != nil {
		it.err = err
		return false
	}

	it.pending = append(it.pending, page.Posts...)
	it.cursor = page.EndCursor
	// An empty page ends iteration regardless of the cursor; trusting
	// has_next_page here could loop forever.
	it.hasMore = page.HasMore && len(page.Posts) > 0
	return true
}
