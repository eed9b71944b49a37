package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/models"
)

// Sink writes one account's posts under <baseDir>/<username>/.
type Sink struct {
	dir        string
	downloaded map[string]bool
	mu         sync.RWMutex
}

// postMetadata is the sidecar written next to a post's media files.
type postMetadata struct {
	ID         string    `json:"id"`
	Shortcode  string    `json:"shortcode"`
	TakenAt    time.Time `json:"taken_at"`
	Caption    string    `json:"caption,omitempty"`
	MediaFiles []string  `json:"media_files"`
	SavedAt    time.Time `json:"saved_at"`
}

// NewSink creates the account directory and scans it so presence
// checks on already-downloaded posts stay cheap.
func NewSink(baseDir, username string) (*Sink, error) {
	dir := filepath.Join(baseDir, username)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeWrite, err, "failed to create output directory")
	}

	sink := &Sink{
		dir:        dir,
		downloaded: make(map[string]bool),
	}
	if err := sink.scanExisting(); err != nil {
		return nil, err
	}
	return sink, nil
}

// scanExisting records the shortcodes whose metadata sidecar is
// already on disk.
func (s *Sink) scanExisting() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeWrite, err, "failed to read output directory")
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		shortcode := entry.Name()[:len(entry.Name())-len(".json")]
		s.downloaded[shortcode] = true
	}
	return nil
}

// MediaFilename returns the on-disk name of one media item of a post.
// The first item is <shortcode>.<ext>; carousel extras append _1, _2
// and so on.
func MediaFilename(post models.Post, index int) string {
	ext := post.Media[index].Ext
	if index == 0 {
		return fmt.Sprintf("%s.%s", post.Shortcode, ext)
	}
	return fmt.Sprintf("%s_%d.%s", post.Shortcode, index, ext)
}

// HasPost reports whether every media file of the post already exists
// with a non-zero size. A missing or empty file means the post must be
// downloaded again. The disk is the source of truth; the cache only
// skips repeat stat calls within a run.
func (s *Sink) HasPost(post models.Post) bool {
	for i := range post.Media {
		info, err := os.Stat(filepath.Join(s.dir, MediaFilename(post, i)))
		if err != nil || info.Size() == 0 {
			return false
		}
	}

	s.mu.Lock()
	s.downloaded[post.Shortcode] = true
	s.mu.Unlock()
	return true
}

// SavePost writes the post's media payloads and its metadata sidecar.
// payloads must be index-aligned with post.Media. Every file goes
// through a temp file and a rename so readers never see partial data.
func (s *Sink) SavePost(post models.Post, payloads [][]byte) error {
	if len(payloads) != len(post.Media) {
		return errs.Newf(errs.ErrorTypeWrite, "post %s: got %d payloads for %d media items",
			post.Shortcode, len(payloads), len(post.Media))
	}

	names := make([]string, len(payloads))
	for i, payload := range payloads {
		name := MediaFilename(post, i)
		if err := s.writeFile(name, payload); err != nil {
			return err
		}
		names[i] = name
	}

	meta := postMetadata{
		ID:         post.ID,
		Shortcode:  post.Shortcode,
		TakenAt:    post.TakenAt,
		Caption:    post.Caption,
		MediaFiles: names,
		SavedAt:    time.Now().UTC(),
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeWrite, err, "failed to marshal post metadata")
	}
	if err := s.writeFile(post.Shortcode+".json", metaJSON); err != nil {
		return err
	}

	s.mu.Lock()
	s.downloaded[post.Shortcode] = true
	s.mu.Unlock()
	return nil
}

// writeFile writes data atomically via a temp file and rename.
func (s *Sink) writeFile(name string, data []byte) error {
	final := filepath.Join(s.dir, name)
	temp := final + ".tmp"

	if err := os.WriteFile(temp, data, 0644); err != nil {
		os.Remove(temp)
		return errs.Wrap(errs.ErrorTypeWrite, err, fmt.Sprintf("failed to write %s", name))
	}
	if err := os.Rename(temp, final); err != nil {
		os.Remove(temp)
		return errs.Wrap(errs.ErrorTypeWrite, err, fmt.Sprintf("failed to finalize %s", name))
	}
	return nil
}

// Dir returns the account's output directory.
func (s *Sink) Dir() string {
	return s.dir
}

// DownloadedCount returns how many posts the sink knows to be on disk.
func (s *Sink) DownloadedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.downloaded)
}
