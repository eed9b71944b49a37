// Package models holds the domain types shared across the fetch loop,
// the persistence sink and the orchestrator. Accounts and posts are
// ephemeral, rebuilt from the remote source on every run; only the
// files written by the sink are durable.
package models

import "time"

// MediaKind distinguishes the payload types a post can carry.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Account is a target identity whose posts are downloaded.
type Account struct {
	Username         string
	ID               string
	IsPrivate        bool
	FollowedByViewer bool
	PostCount        int
}

// Accessible reports whether the current session may list the account's
// posts. Public accounts are always accessible; private ones require an
// existing follow relationship.
func (a Account) Accessible() bool {
	return !a.IsPrivate || a.FollowedByViewer
}

// Media is a single downloadable payload belonging to a post.
type Media struct {
	URL  string
	Kind MediaKind
	Ext  string
}

// Post is one unit of published content with one or more media items.
// Post sequences are ordered by publish time, descending.
type Post struct {
	ID        string
	Shortcode string
	TakenAt   time.Time
	Caption   string
	Media     []Media
}

// Page is one batch of a paginated post listing.
type Page struct {
	Posts     []Post
	EndCursor string
	HasMore   bool
}
