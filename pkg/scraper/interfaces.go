package scraper

import (
	"context"

	"igfetch/pkg/models"
)

// Session is an authenticated platform connection. *instagram.Client
// satisfies it; tests substitute fakes.
type Session interface {
	FetchProfile(ctx context.Context, username string) (models.Account, error)
	FetchPosts(ctx context.Context, userID, after string) (models.Page, error)
	FetchMedia(ctx context.Context, url string) ([]byte, error)
}

// SessionProvider establishes a Session, whether from stored cookies
// or an interactive login.
type SessionProvider interface {
	Authenticate(ctx context.Context) (Session, error)
}

// SessionProviderFunc adapts a function to the SessionProvider
// interface.
type SessionProviderFunc func(ctx context.Context) (Session, error)

func (f SessionProviderFunc) Authenticate(ctx context.Context) (Session, error) {
	return f(ctx)
}
