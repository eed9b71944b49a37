package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRoundTrip(t *testing.T) {
	manager, mockStore := NewMockManager()

	session := &Session{
		Username:  "testuser",
		SessionID: "test_session_id_12345",
		CSRFToken: "test_csrf_token_67890",
		UserAgent: "TestAgent/1.0",
	}

	require.NoError(t, manager.Store(session))
	assert.False(t, session.LastModified.IsZero(), "Store should stamp LastModified")

	retrieved, err := manager.Retrieve("testuser")
	require.NoError(t, err)
	assert.Equal(t, session.Username, retrieved.Username)
	assert.Equal(t, session.SessionID, retrieved.SessionID)
	assert.Equal(t, session.CSRFToken, retrieved.CSRFToken)

	sessions, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, manager.Delete("testuser"))
	assert.Equal(t, 0, mockStore.Count())

	_, err = manager.Retrieve("testuser")
	assert.Error(t, err)
}

func TestManagerValidatesSession(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(&Session{SessionID: "s", CSRFToken: "c"}))
	assert.Error(t, manager.Store(&Session{Username: "u", CSRFToken: "c"}))
	assert.Error(t, manager.Store(&Session{Username: "u", SessionID: "s"}))
}

func TestManagerFallsBackOnStoreError(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	session := &Session{Username: "u", SessionID: "s", CSRFToken: "c"}
	require.NoError(t, manager.Store(session))

	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	manager := NewManagerWithStores(older, newer)

	now := time.Now()
	require.NoError(t, older.Store(&Session{Username: "u", SessionID: "old", CSRFToken: "c", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, newer.Store(&Session{Username: "u", SessionID: "new", CSRFToken: "c", LastModified: now}))

	sessions, err := manager.List()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "new", sessions[0].SessionID)
}

func TestMasked(t *testing.T) {
	session := &Session{
		Username:  "testuser",
		SessionID: "very_long_session_identifier",
		CSRFToken: "very_long_csrf_token_value",
	}

	masked := session.Masked()
	assert.Equal(t, "testuser", masked.Username)
	assert.NotEqual(t, session.SessionID, masked.SessionID)
	assert.NotEqual(t, session.CSRFToken, masked.CSRFToken)
	assert.Equal(t, "very...fier", masked.SessionID)

	short := &Session{SessionID: "short"}
	assert.Equal(t, "********", short.Masked().SessionID)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv("IGFETCH_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	session := &Session{
		Username:     "alice",
		SessionID:    "session_value",
		CSRFToken:    "csrf_value",
		LastModified: time.Now(),
	}
	require.NoError(t, store.Store(session))

	// A fresh store instance must decrypt what the first one wrote.
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	retrieved, err := reopened.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "session_value", retrieved.SessionID)
	assert.Equal(t, "csrf_value", retrieved.CSRFToken)

	assert.True(t, reopened.Exists("alice"))
	assert.False(t, reopened.Exists("bob"))

	require.NoError(t, reopened.Delete("alice"))
	_, err = reopened.Retrieve("alice")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")

	t.Setenv("IGFETCH_PASSPHRASE", "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Session{Username: "alice", SessionID: "s", CSRFToken: "c"}))

	t.Setenv("IGFETCH_PASSPHRASE", "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = other.Retrieve("alice")
	assert.Error(t, err)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGFETCH_SESSION_ID", "env_session")
	t.Setenv("IGFETCH_CSRF_TOKEN", "env_csrf")

	store := NewEnvironmentStore()

	session, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "default", session.Username)
	assert.Equal(t, "env_session", session.SessionID)
	assert.Equal(t, "env_csrf", session.CSRFToken)

	assert.ErrorIs(t, store.Store(session), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("default"), ErrStoreUnavailable)
}

func TestEnvironmentStoreMissing(t *testing.T) {
	t.Setenv("IGFETCH_SESSION_ID", "")
	t.Setenv("IGFETCH_CSRF_TOKEN", "")

	store := NewEnvironmentStore()
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, store.Exists(""))
}
