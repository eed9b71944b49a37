// Package storage persists downloaded posts to the local filesystem.
//
// Each account gets its own directory under the configured base
// directory. A post's media files are named after its shortcode, with
// a numeric suffix for the extra items of a carousel, and every saved
// post gets a JSON metadata sidecar next to its media.
//
// Writes go through a temporary file and an atomic rename, so a
// partially written file never counts as downloaded. Presence checks
// require every media file of the post to exist with a non-zero size,
// which is what makes interrupted runs resumable.
package storage
