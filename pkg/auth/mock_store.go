package auth

import "sync"

// MockStore is an in-memory SessionStore for tests, with optional
// error injection.
type MockStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]*Session)}
}

func (m *MockStore) Store(session *Session) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session == nil || session.Username == "" {
		return ErrInvalidSession
	}

	cp := *session
	m.sessions[session.Username] = &cp
	return nil
}

func (m *MockStore) Retrieve(username string) (*Session, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if username == "" {
		return nil, ErrInvalidSession
	}

	session, exists := m.sessions[username]
	if !exists {
		return nil, ErrSessionNotFound
	}

	cp := *session
	return &cp, nil
}

func (m *MockStore) List() ([]*Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []*Session
	for _, session := range m.sessions {
		cp := *session
		sessions = append(sessions, &cp)
	}
	return sessions, nil
}

func (m *MockStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" {
		return ErrInvalidSession
	}
	if _, exists := m.sessions[username]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, username)
	return nil
}

func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.sessions[username]
	return exists
}

// Count reports how many sessions the store holds.
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// NewMockManager builds a Manager backed by a single mock store.
func NewMockManager() (*Manager, *MockStore) {
	mockStore := NewMockStore()
	return &Manager{stores: []SessionStore{mockStore}}, mockStore
}

// NewManagerWithStores builds a Manager over an explicit store chain.
func NewManagerWithStores(stores ...SessionStore) *Manager {
	return &Manager{stores: stores}
}
