// Package backup archives the data directory and ships it to remote targets.
package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Archiver builds and restores tar.gz archives holding the database file and
// the uploads directory.
type Archiver struct {
	fs      afero.Fs
	dataDir string
	dbFile  string
	// checkpoint flushes the database to its main file before it is read.
	checkpoint func(ctx context.Context) error
}

type ArchiverOption func(*Archiver)

// WithCheckpoint runs fn before the database file is archived.
func WithCheckpoint(fn func(ctx context.Context) error) ArchiverOption {
	return func(a *Archiver) { a.checkpoint = fn }
}

func NewArchiver(fs afero.Fs, dataDir, dbFile string, opts ...ArchiverOption) *Archiver {
	a := &Archiver{fs: fs, dataDir: dataDir, dbFile: dbFile}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Create returns a tar.gz archive containing database and uploads
func (a *Archiver) Create(ctx context.Context) (*bytes.Buffer, error) {
	if a.checkpoint != nil {
		if err := a.checkpoint(ctx); err != nil {
			return nil, fmt.Errorf("checkpoint database: %w", err)
		}
	}

	buf := new(bytes.Buffer)
	gzWriter := gzip.NewWriter(buf)
	tarWriter := tar.NewWriter(gzWriter)

	addFile := func(path, name string) error {
		info, err := a.fs.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}
		header.Name = filepath.ToSlash(name)
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}
		if info.IsDir() {
			return nil
		}

		file, err := a.fs.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()
		if _, err := io.Copy(tarWriter, file); err != nil {
			return fmt.Errorf("failed to copy file data: %w", err)
		}
		return nil
	}

	if a.dbFile != "" {
		dbPath := filepath.Join(a.dataDir, a.dbFile)
		if ok, _ := afero.Exists(a.fs, dbPath); ok {
			if err := addFile(dbPath, a.dbFile); err != nil {
				return nil, err
			}
		}
	}

	uploadsDir := filepath.Join(a.dataDir, "uploads")
	if ok, _ := afero.DirExists(a.fs, uploadsDir); ok {
		err := afero.Walk(a.fs, uploadsDir, func(path string, _ os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(a.dataDir, path)
			if err != nil {
				return err
			}
			return addFile(path, rel)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add uploads directory: %w", err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return nil, err
	}
	if err := gzWriter.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// Extract unpacks an archive into the data directory. Entries that would
// land outside it are rejected.
func (a *Archiver) Extract(data []byte) error {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target, err := a.within(header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := a.fs.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := a.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			file, err := a.fs.Create(target)
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			if _, err := io.Copy(file, tarReader); err != nil {
				file.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
		}
	}
}

// Verify checks that data is a readable archive and returns its entry names.
func Verify(data []byte) ([]string, error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a gzip archive: %w", err)
	}
	defer gzReader.Close()

	var names []string
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("corrupt archive: %w", err)
		}
		if _, err := io.Copy(io.Discard, tarReader); err != nil {
			return nil, fmt.Errorf("corrupt archive: %w", err)
		}
		names = append(names, header.Name)
	}
}

func (a *Archiver) within(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the data directory", name)
	}
	return filepath.Join(a.dataDir, clean), nil
}
