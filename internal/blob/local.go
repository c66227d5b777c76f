package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Local keeps objects under <baseDir>/uploads on an afero filesystem and
// serves them from urlPrefix.
type Local struct {
	fs        afero.Fs
	baseDir   string
	urlPrefix string
}

var _ Storage = (*Local)(nil)

// NewLocal returns storage on the OS filesystem.
func NewLocal(baseDir, urlPrefix string) (*Local, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(filepath.Join(baseDir, "uploads"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return NewLocalFs(fs, baseDir, urlPrefix), nil
}

// NewLocalFs returns storage on fs, typically afero.NewMemMapFs in tests.
func NewLocalFs(fs afero.Fs, baseDir, urlPrefix string) *Local {
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &Local{
		fs:        fs,
		baseDir:   baseDir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}
}

// Fs returns the underlying filesystem.
func (l *Local) Fs() afero.Fs { return l.fs }

// UploadsDir returns the directory objects are stored in.
func (l *Local) UploadsDir() string { return filepath.Join(l.baseDir, "uploads") }

func (l *Local) Upload(ctx context.Context, p string, r io.Reader, _ string) (string, error) {
	clean, ok := CleanPath(p)
	if !ok {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(l.UploadsDir(), filepath.FromSlash(clean))
	if err := l.fs.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	dst, err := l.fs.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return l.urlPrefix + "/" + clean, nil
}

func (l *Local) Delete(_ context.Context, p string) error {
	clean, ok := CleanPath(p)
	if !ok {
		return fmt.Errorf("invalid object path %q", p)
	}
	err := l.fs.Remove(filepath.Join(l.UploadsDir(), filepath.FromSlash(clean)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *Local) PathFromURL(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, l.urlPrefix+"/")
	if !ok {
		return "", false
	}
	return CleanPath(rest)
}
