// Package blob stores note media. Objects are addressed by slash separated
// paths and served back by URL.
package blob

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
)

type Storage interface {
	// Upload stores r at p and returns the URL it is served from.
	Upload(ctx context.Context, p string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, p string) error
	// PathFromURL maps a URL returned by Upload back to its path.
	PathFromURL(url string) (string, bool)
}

// ContentType guesses a MIME type from a file name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// CleanPath normalizes p and rejects paths escaping the storage root.
func CleanPath(p string) (string, bool) {
	c := path.Clean("/" + strings.TrimSpace(p))
	c = strings.TrimPrefix(c, "/")
	if c == "" || c == "." || strings.HasPrefix(c, "../") {
		return "", false
	}
	return c, true
}
