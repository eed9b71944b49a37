package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfetch/pkg/config"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/instagram"
	"igfetch/pkg/scraper"
	"igfetch/pkg/ui"
)

func TestMain(m *testing.M) {
	ui.SetQuiet(true)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.DelayMin = 0
	cfg.DelayMax = 0
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseDelaySeconds = 0
	cfg.Retry.MaxDelaySeconds = 0
	cfg.Notifications.Enabled = false
	cfg.Notifications.OnComplete = false
	cfg.Notifications.OnRateLimit = false
	return cfg
}

func clientProvider(platform *MockPlatform) scraper.SessionProvider {
	return scraper.SessionProviderFunc(func(ctx context.Context) (scraper.Session, error) {
		client := instagram.NewClient(5*time.Second, nil)
		client.SetBaseURL(platform.URL())
		return client, nil
	})
}

func fivePosts() []mockPost {
	return []mockPost{
		{ID: "1", Shortcode: "AAA", Caption: "first", Payload: []byte("payload-aaa")},
		{ID: "2", Shortcode: "BBB", Payload: []byte("payload-bbb")},
		{ID: "3", Shortcode: "CCC", IsVideo: true, Payload: []byte("payload-ccc")},
		{ID: "4", Shortcode: "DDD", Payload: []byte("payload-ddd")},
		{ID: "5", Shortcode: "EEE", Payload: []byte("payload-eee")},
	}
}

func TestEndToEndDownload(t *testing.T) {
	platform := NewMockPlatform("alice", "123456", fivePosts())
	defer platform.Close()
	cfg := testConfig(t)

	s := scraper.New(clientProvider(platform), cfg)
	summary, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Counts.Downloaded)
	assert.Equal(t, 0, summary.Counts.Skipped)
	assert.Equal(t, 0, summary.Counts.Failed)

	dir := filepath.Join(cfg.Output.BaseDirectory, "alice")
	for _, name := range []string{"AAA.jpg", "BBB.jpg", "CCC.mp4", "DDD.jpg", "EEE.jpg"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	// Metadata sidecar carries the caption and the media file list.
	metaJSON, err := os.ReadFile(filepath.Join(dir, "AAA.json"))
	require.NoError(t, err)
	var meta struct {
		Shortcode  string   `json:"shortcode"`
		Caption    string   `json:"caption"`
		MediaFiles []string `json:"media_files"`
	}
	require.NoError(t, json.Unmarshal(metaJSON, &meta))
	assert.Equal(t, "AAA", meta.Shortcode)
	assert.Equal(t, "first", meta.Caption)
	assert.Equal(t, []string{"AAA.jpg"}, meta.MediaFiles)
}

func TestEndToEndResume(t *testing.T) {
	platform := NewMockPlatform("alice", "123456", fivePosts())
	defer platform.Close()
	cfg := testConfig(t)

	s := scraper.New(clientProvider(platform), cfg)
	_, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)

	mediaAfterFirst := platform.MediaRequests()

	// Simulate an interrupted download: one media file missing, one
	// truncated to zero bytes.
	dir := filepath.Join(cfg.Output.BaseDirectory, "alice")
	require.NoError(t, os.Remove(filepath.Join(dir, "BBB.jpg")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DDD.jpg"), nil, 0644))

	summary, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Counts.Downloaded, "only the missing and the truncated post refetch")
	assert.Equal(t, 3, summary.Counts.Skipped)
	assert.Equal(t, mediaAfterFirst+2, platform.MediaRequests())

	data, err := os.ReadFile(filepath.Join(dir, "DDD.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-ddd"), data)
}

func TestEndToEndPrivateAccount(t *testing.T) {
	platform := NewMockPlatform("alice", "123456", fivePosts())
	defer platform.Close()
	platform.SetPrivate(false)
	cfg := testConfig(t)

	s := scraper.New(clientProvider(platform), cfg)
	_, err := s.Run(context.Background(), "alice")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAccessDenied))

	_, statErr := os.Stat(filepath.Join(cfg.Output.BaseDirectory, "alice"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 0, platform.MediaRequests())
}

func TestEndToEndPrivateFollowedAccount(t *testing.T) {
	platform := NewMockPlatform("alice", "123456", fivePosts())
	defer platform.Close()
	platform.SetPrivate(true)
	cfg := testConfig(t)

	s := scraper.New(clientProvider(platform), cfg)
	summary, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Counts.Downloaded)
}

func TestEndToEndRateLimitThenResume(t *testing.T) {
	platform := NewMockPlatform("alice", "123456", fivePosts())
	defer platform.Close()
	cfg := testConfig(t)

	// Let the profile, the first page and the first two media requests
	// through, then throttle everything.
	platform.RateLimitAfter(4)

	s := scraper.New(clientProvider(platform), cfg)
	_, err := s.Run(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeRateLimited))

	dir := filepath.Join(cfg.Output.BaseDirectory, "alice")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "posts completed before the limit stay on disk")

	// Once the platform recovers, a re-run finishes the rest.
	platform.RateLimitAfter(0)
	summary, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Counts.Downloaded+summary.Counts.Skipped)
	assert.Equal(t, 0, summary.Counts.Failed)
}

func TestEndToEndUnknownAccount(t *testing.T) {
	platform := NewMockPlatform("alice", "123456", nil)
	defer platform.Close()
	cfg := testConfig(t)

	s := scraper.New(clientProvider(platform), cfg)
	_, err := s.Run(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
}
