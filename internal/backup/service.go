package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	archivePrefix = "noteflow_backup_"
	archiveSuffix = ".tar.gz"
	stampLayout   = "20060102_150405"
)

func archiveName(t time.Time) string {
	return archivePrefix + t.UTC().Format(stampLayout) + archiveSuffix
}

func isArchiveName(name string) bool {
	return strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, archiveSuffix)
}

// Service creates archives and keeps the newest Keep copies on every target.
type Service struct {
	archiver *Archiver
	targets  []Target
	keep     int
	log      *zap.Logger
	now      func() time.Time

	mu sync.Mutex
}

func NewService(archiver *Archiver, targets []Target, keep int, log *zap.Logger) *Service {
	return &Service{
		archiver: archiver,
		targets:  targets,
		keep:     keep,
		log:      log.Named("backup"),
		now:      time.Now,
	}
}

// Targets returns the configured target names.
func (s *Service) Targets() []string {
	names := make([]string, 0, len(s.targets))
	for _, t := range s.targets {
		names = append(names, t.Name())
	}
	return names
}

// RunNow archives the data directory and uploads it to every target. It
// returns the archive name; the error joins every target that failed.
func (s *Service) RunNow(ctx context.Context) (string, error) {
	if len(s.targets) == 0 {
		return "", errors.New("no backup target configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	archive, err := s.archiver.Create(ctx)
	if err != nil {
		s.log.Error("failed to create backup", zap.Error(err))
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	name := archiveName(start)

	var errs []error
	for _, t := range s.targets {
		if err := t.Put(ctx, name, archive.Bytes()); err != nil {
			s.log.Error("backup upload failed", zap.String("target", t.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			continue
		}
		s.log.Info("backup uploaded",
			zap.String("target", t.Name()),
			zap.String("file", name),
			zap.Int("bytes", archive.Len()),
		)
		s.prune(ctx, t)
	}
	return name, errors.Join(errs...)
}

// prune deletes all but the newest keep archives on t.
func (s *Service) prune(ctx context.Context, t Target) {
	if s.keep <= 0 {
		return
	}
	names, err := t.List(ctx)
	if err != nil {
		s.log.Warn("backup list failed", zap.String("target", t.Name()), zap.Error(err))
		return
	}
	if len(names) <= s.keep {
		return
	}
	for _, old := range names[:len(names)-s.keep] {
		if err := t.Delete(ctx, old); err != nil {
			s.log.Warn("old backup delete failed", zap.String("target", t.Name()), zap.String("file", old), zap.Error(err))
			continue
		}
		s.log.Info("old backup removed", zap.String("target", t.Name()), zap.String("file", old))
	}
}

// List returns "<target>/<archive>" for every archive on every target.
func (s *Service) List(ctx context.Context) ([]string, error) {
	var out []string
	var errs []error
	for _, t := range s.targets {
		names, err := t.List(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			continue
		}
		for _, n := range names {
			out = append(out, t.Name()+"/"+n)
		}
	}
	return out, errors.Join(errs...)
}

func (s *Service) target(name string) (Target, error) {
	for _, t := range s.targets {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown backup target %q", name)
}

// Restore downloads an archive and unpacks it over the data directory. The
// current data is first saved next to it as a pre-restore archive. The store
// must not be open while this runs.
func (s *Service) Restore(ctx context.Context, targetName, name string) error {
	t, err := s.target(targetName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := t.Get(ctx, name)
	if err != nil {
		return err
	}
	if _, err := Verify(data); err != nil {
		return err
	}

	if current, err := s.archiver.Create(ctx); err == nil {
		keep := filepath.Join(s.archiver.dataDir, "noteflow_pre_restore_"+s.now().UTC().Format(stampLayout)+archiveSuffix)
		if err := afero.WriteFile(s.archiver.fs, keep, current.Bytes(), 0644); err != nil {
			s.log.Warn("pre-restore archive not saved", zap.Error(err))
		}
	}

	if err := s.archiver.Extract(data); err != nil {
		return fmt.Errorf("failed to extract backup: %w", err)
	}
	s.log.Info("backup restored", zap.String("target", targetName), zap.String("file", name))
	return nil
}
