// Package auth persists Instagram sessions between runs so the
// downloader can resume without prompting for a password every time.
// Sessions are kept in the system keychain when one is available, in
// an encrypted file otherwise, with environment variables as a
// read-only last resort.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Session holds the cookies that authenticate a stored login.
type Session struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// SessionStore is a single backend for session persistence.
type SessionStore interface {
	Store(session *Session) error
	Retrieve(username string) (*Session, error)
	List() ([]*Session, error)
	Delete(username string) error
	Exists(username string) bool
}

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Manager layers the available stores: keychain, then encrypted file,
// then environment variables.
type Manager struct {
	stores []SessionStore
}

// NewManager builds a manager with every backend that works on this
// system. The encrypted file store is always present.
func NewManager() (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves the session using the first backend that accepts it.
func (m *Manager) Store(session *Session) error {
	if session.Username == "" {
		return errors.New("username is required")
	}
	if session.SessionID == "" {
		return errors.New("session ID is required")
	}
	if session.CSRFToken == "" {
		return errors.New("CSRF token is required")
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve returns the session from the first backend that has it.
func (m *Manager) Retrieve(username string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(username); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w for user %s", ErrSessionNotFound, username)
}

// RetrieveDefault returns the environment session if one is set,
// otherwise the most recently stored session.
func (m *Manager) RetrieveDefault() (*Session, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if session, err := envStore.Retrieve(""); err == nil && session != nil {
			return session, nil
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		newest := sessions[0]
		for _, s := range sessions[1:] {
			if s.LastModified.After(newest.LastModified) {
				newest = s
			}
		}
		return newest, nil
	}

	return nil, ErrSessionNotFound
}

// List merges the sessions of every backend, keeping the most recently
// modified copy when a username appears in more than one.
func (m *Manager) List() ([]*Session, error) {
	byUser := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if existing, ok := byUser[session.Username]; !ok || session.LastModified.After(existing.LastModified) {
				byUser[session.Username] = session
			}
		}
	}

	var result []*Session
	for _, session := range byUser {
		result = append(result, session)
	}
	return result, nil
}

// Delete removes the session from every backend that holds it.
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for user %s", ErrSessionNotFound, username)
	}
	return nil
}

// getConfigDir returns the per-user configuration directory, creating
// it when missing.
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igfetch")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igfetch")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igfetch")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igfetch")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Masked returns a copy safe for printing: cookie values reduced to
// their first and last four characters.
func (s *Session) Masked() *Session {
	if s == nil {
		return nil
	}
	return &Session{
		Username:     s.Username,
		SessionID:    maskString(s.SessionID),
		CSRFToken:    maskString(s.CSRFToken),
		UserAgent:    s.UserAgent,
		LastModified: s.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
