package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads a session from IGFETCH_SESSION_ID and
// IGFETCH_CSRF_TOKEN. It cannot persist anything.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(username string) (*Session, error) {
	sessionID := os.Getenv("IGFETCH_SESSION_ID")
	csrfToken := os.Getenv("IGFETCH_CSRF_TOKEN")
	if sessionID == "" || csrfToken == "" {
		return nil, ErrSessionNotFound
	}

	// The environment does not carry a username.
	if username == "" {
		username = "default"
	}

	return &Session{
		Username:     username,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		UserAgent:    os.Getenv("IGFETCH_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv("IGFETCH_SESSION_ID") != "" && os.Getenv("IGFETCH_CSRF_TOKEN") != ""
}
