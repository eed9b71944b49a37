package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// mockPost describes one timeline post the mock platform serves.
type mockPost struct {
	ID        string
	Shortcode string
	IsVideo   bool
	Caption   string
	Payload   []byte
}

// MockPlatform simulates the profile, timeline and CDN endpoints with
// configurable pagination, failures and rate limiting.
type MockPlatform struct {
	server *httptest.Server

	mu           sync.Mutex
	username     string
	userID       string
	isPrivate    bool
	followed     bool
	posts        []mockPost
	pageSize     int
	requireLogin bool

	// rateLimitAfter makes every request past the Nth return 429.
	// Zero disables it.
	rateLimitAfter int32
	requestCount   int32
	mediaRequests  int32
}

// NewMockPlatform starts a mock platform serving one account.
func NewMockPlatform(username, userID string, posts []mockPost) *MockPlatform {
	m := &MockPlatform{
		username: username,
		userID:   userID,
		posts:    posts,
		pageSize: 2,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/web_profile_info/", m.handleProfile)
	mux.HandleFunc("/graphql/query/", m.handleTimeline)
	mux.HandleFunc("/cdn/", m.handleMedia)
	m.server = httptest.NewServer(mux)
	return m
}

func (m *MockPlatform) URL() string   { m.ensureStarted(); return m.server.URL }
func (m *MockPlatform) Close()        { m.server.Close() }
func (m *MockPlatform) Requests() int { return int(atomic.LoadInt32(&m.requestCount)) }
func (m *MockPlatform) MediaRequests() int {
	return int(atomic.LoadInt32(&m.mediaRequests))
}

func (m *MockPlatform) ensureStarted() {
	if m.server == nil {
		panic("mock platform not started")
	}
}

// SetPrivate marks the account private, optionally followed.
func (m *MockPlatform) SetPrivate(followed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isPrivate = true
	m.followed = followed
}

// RateLimitAfter makes every request past the nth return 429.
func (m *MockPlatform) RateLimitAfter(n int) {
	atomic.StoreInt32(&m.rateLimitAfter, int32(n))
}

func (m *MockPlatform) limited() bool {
	limit := atomic.LoadInt32(&m.rateLimitAfter)
	if limit == 0 {
		return false
	}
	return atomic.LoadInt32(&m.requestCount) > limit
}

func (m *MockPlatform) countRequest(w http.ResponseWriter) bool {
	atomic.AddInt32(&m.requestCount, 1)
	if m.limited() {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Please wait a few minutes before you try again.",
			"status":  "fail",
		})
		return false
	}
	return true
}

func (m *MockPlatform) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !m.countRequest(w) {
		return
	}

	if r.URL.Query().Get("username") != m.username {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":   map[string]interface{}{"user": map[string]interface{}{}},
			"status": "ok",
		})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{
			"user": map[string]interface{}{
				"id":                 m.userID,
				"username":           m.username,
				"is_private":         m.isPrivate,
				"followed_by_viewer": m.followed,
				"edge_owner_to_timeline_media": map[string]interface{}{
					"count": len(m.posts),
				},
			},
		},
		"status": "ok",
	})
}

func (m *MockPlatform) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if !m.countRequest(w) {
		return
	}

	if r.URL.Query().Get("query_hash") == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var variables struct {
		ID    string `json:"id"`
		First int    `json:"first"`
		After string `json:"after"`
	}
	if err := json.Unmarshal([]byte(r.URL.Query().Get("variables")), &variables); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	if variables.After != "" {
		fmt.Sscanf(variables.After, "cursor_%d", &start)
	}
	end := start + m.pageSize
	if end > len(m.posts) {
		end = len(m.posts)
	}

	var edges []map[string]interface{}
	for _, p := range m.posts[start:end] {
		node := map[string]interface{}{
			"id":                 p.ID,
			"shortcode":          p.Shortcode,
			"display_url":        m.server.URL + "/cdn/" + p.Shortcode + ".jpg",
			"is_video":           p.IsVideo,
			"taken_at_timestamp": 1700000000,
			"edge_media_to_caption": map[string]interface{}{
				"edges": []map[string]interface{}{
					{"node": map[string]interface{}{"text": p.Caption}},
				},
			},
		}
		if p.IsVideo {
			node["video_url"] = m.server.URL + "/cdn/" + p.Shortcode + ".mp4"
		}
		edges = append(edges, map[string]interface{}{"node": node})
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{
			"user": map[string]interface{}{
				"edge_owner_to_timeline_media": map[string]interface{}{
					"count": len(m.posts),
					"page_info": map[string]interface{}{
						"has_next_page": end < len(m.posts),
						"end_cursor":    fmt.Sprintf("cursor_%d", end),
					},
					"edges": edges,
				},
			},
		},
		"status": "ok",
	})
}

func (m *MockPlatform) handleMedia(w http.ResponseWriter, r *http.Request) {
	if !m.countRequest(w) {
		return
	}
	atomic.AddInt32(&m.mediaRequests, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if r.URL.Path == "/cdn/"+p.Shortcode+".jpg" || r.URL.Path == "/cdn/"+p.Shortcode+".mp4" {
			w.Write(p.Payload)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}
