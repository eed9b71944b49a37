package scraper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfetch/pkg/config"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/models"
	"igfetch/pkg/ui"
)

func TestMain(m *testing.M) {
	ui.SetQuiet(true)
	os.Exit(m.Run())
}

// fakeSession serves a scripted account and timeline.
type fakeSession struct {
	account models.Account
	posts   []models.Post

	profileErr error
	postsErr   error
	mediaErrs  map[string]error

	mediaCalls []string
}

func (f *fakeSession) FetchProfile(ctx context.Context, username string) (models.Account, error) {
	if f.profileErr != nil {
		return models.Account{}, f.profileErr
	}
	return f.account, nil
}

func (f *fakeSession) FetchPosts(ctx context.Context, userID, after string) (models.Page, error) {
	if f.postsErr != nil {
		return models.Page{}, f.postsErr
	}
	// Everything in one page keeps the scripts simple.
	return models.Page{Posts: f.posts}, nil
}

func (f *fakeSession) FetchMedia(ctx context.Context, url string) ([]byte, error) {
	f.mediaCalls = append(f.mediaCalls, url)
	if err, ok := f.mediaErrs[url]; ok {
		return nil, err
	}
	return []byte("media bytes"), nil
}

func provider(session Session, err error) SessionProvider {
	return SessionProviderFunc(func(ctx context.Context) (Session, error) {
		if err != nil {
			return nil, err
		}
		return session, nil
	})
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	// No pacing or backoff delays in tests.
	cfg.DelayMin = 0
	cfg.DelayMax = 0
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseDelaySeconds = 0
	cfg.Retry.MaxDelaySeconds = 0
	cfg.Notifications.Enabled = false
	return cfg
}

func publicAccount(posts int) models.Account {
	return models.Account{
		Username:  "alice",
		ID:        "123456",
		IsPrivate: false,
		PostCount: posts,
	}
}

func timelinePost(shortcode string) models.Post {
	return models.Post{
		ID:        "id_" + shortcode,
		Shortcode: shortcode,
		Media: []models.Media{
			{URL: "https://cdn.example/" + shortcode + ".jpg", Kind: models.MediaKindImage, Ext: "jpg"},
		},
	}
}

func TestRunDownloadsAllPosts(t *testing.T) {
	session := &fakeSession{
		account: publicAccount(3),
		posts:   []models.Post{timelinePost("A"), timelinePost("B"), timelinePost("C")},
	}
	cfg := testConfig(t)

	s := New(provider(session, nil), cfg)
	summary, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Counts.Downloaded)
	assert.Equal(t, 0, summary.Counts.Skipped)
	assert.Equal(t, 0, summary.Counts.Failed)
	assert.Equal(t, StateDone, s.State())

	for _, shortcode := range []string{"A", "B", "C"} {
		path := filepath.Join(cfg.Output.BaseDirectory, "alice", shortcode+".jpg")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("media bytes"), data)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	session := &fakeSession{
		account: publicAccount(3),
		posts:   []models.Post{timelinePost("A"), timelinePost("B"), timelinePost("C")},
	}
	cfg := testConfig(t)

	s := New(provider(session, nil), cfg)
	_, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)

	firstRunCalls := len(session.mediaCalls)

	summary, err := s.Run(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Counts.Downloaded)
	assert.Equal(t, 3, summary.Counts.Skipped)
	assert.Len(t, session.mediaCalls, firstRunCalls, "a re-run must not refetch media already on disk")
}

func TestRunContinuesPastWriteFailure(t *testing.T) {
	// A read-only account directory makes every save fail while
	// fetches still succeed.
	session := &fakeSession{
		account: publicAccount(2),
		posts:   []models.Post{timelinePost("A"), timelinePost("B")},
	}
	cfg := testConfig(t)
	dir := filepath.Join(cfg.Output.BaseDirectory, "alice")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	s := New(provider(session, nil), cfg)
	summary, err := s.Run(context.Background(), "alice")
	require.NoError(t, err, "write failures are per-post, not terminal")

	assert.Equal(t, 0, summary.Counts.Downloaded)
	assert.Equal(t, 2, summary.Counts.Failed)
}

func TestRunDeniedAccountLeavesNoDirectory(t *testing.T) {
	session := &fakeSession{
		account: models.Account{
			Username:  "private_account",
			ID:        "999",
			IsPrivate: true,
		},
	}
	cfg := testConfig(t)

	s := New(provider(session, nil), cfg)
	_, err := s.Run(context.Background(), "private_account")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAccessDenied))
	assert.Equal(t, StateFailed, s.State())

	_, statErr := os.Stat(filepath.Join(cfg.Output.BaseDirectory, "private_account"))
	assert.True(t, os.IsNotExist(statErr), "a denied run must not create the account directory")
}

func TestRunPrivateButFollowedAccount(t *testing.T) {
	session := &fakeSession{
		account: models.Account{
			Username:         "friend",
			ID:               "77",
			IsPrivate:        true,
			FollowedByViewer: true,
		},
		posts: []models.Post{timelinePost("A")},
	}
	cfg := testConfig(t)

	s := New(provider(session, nil), cfg)
	summary, err := s.Run(context.Background(), "friend")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Counts.Downloaded)
}

func TestRunRateLimitIsTerminal(t *testing.T) {
	rateLimited := errs.New(errs.ErrorTypeRateLimited, "slow down")
	session := &fakeSession{
		account: publicAccount(2),
		posts:   []models.Post{timelinePost("A"), timelinePost("B")},
		mediaErrs: map[string]error{
			"https://cdn.example/B.jpg": rateLimited,
		},
	}
	cfg := testConfig(t)

	s := New(provider(session, nil), cfg)
	_, err := s.Run(context.Background(), "alice")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeRateLimited))
	assert.Equal(t, StateFailed, s.State())

	// Post A completed before the limit hit; the re-run will skip it.
	_, statErr := os.Stat(filepath.Join(cfg.Output.BaseDirectory, "alice", "A.jpg"))
	assert.NoError(t, statErr)
}

func TestRunAuthFailure(t *testing.T) {
	authErr := errs.New(errs.ErrorTypeAuthExpired, "session expired")

	s := New(provider(nil, authErr), testConfig(t))
	_, err := s.Run(context.Background(), "alice")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAuthExpired))
	assert.Equal(t, StateFailed, s.State())
}

func TestRunProfileNotFound(t *testing.T) {
	session := &fakeSession{
		profileErr: errs.New(errs.ErrorTypeNotFound, "no such profile"),
	}

	s := New(provider(session, nil), testConfig(t))
	_, err := s.Run(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
}

func TestRunHonorsCancellation(t *testing.T) {
	session := &fakeSession{
		account: publicAccount(1),
		posts:   []models.Post{timelinePost("A")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(provider(session, nil), testConfig(t))
	_, err := s.Run(ctx, "alice")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
}
