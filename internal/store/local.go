package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Local stores uploads and batches under a temporary root created at
// startup. The root lives only as long as the process: Close removes it
// entirely, and Sweep reclaims stale entries while the service runs.
type Local struct {
	root    string
	uploads string
	batches string
	log     *slog.Logger
}

// NewLocal creates a fresh temporary root (dicomslicer_*) with uploads/ and
// batches/ beneath it.
func NewLocal(log *slog.Logger) (*Local, error) {
	root, err := os.MkdirTemp("", "dicomslicer_")
	if err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}

	s := &Local{
		root:    root,
		uploads: filepath.Join(root, "uploads"),
		batches: filepath.Join(root, "batches"),
		log:     log,
	}
	for _, dir := range []string{s.uploads, s.batches} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root returns the temporary root directory, mainly for logging.
func (s *Local) Root() string { return s.root }

func (s *Local) SaveUpload(_ context.Context, name string, r io.Reader, _ int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(s.uploads, name))
	if err != nil {
		return fmt.Errorf("create upload %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write upload %s: %w", name, err)
	}
	return nil
}

func (s *Local) OpenUpload(_ context.Context, name string) (io.ReadCloser, int64, error) {
	if err := checkName(name); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(filepath.Join(s.uploads, name))
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

func (s *Local) RemoveUpload(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.uploads, name))
}

func (s *Local) Put(_ context.Context, batch, name string, r io.Reader, _ int64) error {
	if err := checkName(batch); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	dir := filepath.Join(s.batches, batch)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create batch %s: %w", batch, err)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", batch, name, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s/%s: %w", batch, name, err)
	}
	return nil
}

func (s *Local) Open(_ context.Context, batch, name string) (io.ReadCloser, error) {
	if err := checkName(batch); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.batches, batch, name))
}

func (s *Local) List(_ context.Context, batch string) ([]string, error) {
	if err := checkName(batch); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.batches, batch))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Local) RemoveBatch(_ context.Context, batch string) error {
	if err := checkName(batch); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.batches, batch))
}

// Sweep removes uploads and batch directories whose modification time is
// older than maxAge.
func (s *Local) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, dir := range []string{s.uploads, s.batches} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		for _, e := range entries {
			fi, err := e.Info()
			if err != nil {
				continue
			}
			if fi.ModTime().After(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				s.logger().Warn("sweep failed", "entry", e.Name(), "err", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger().Info("swept stale storage", "removed", removed, "max_age", maxAge)
	}
	return removed, nil
}

// Close deletes the temporary root and everything under it.
func (s *Local) Close() error {
	return os.RemoveAll(s.root)
}

func (s *Local) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}
