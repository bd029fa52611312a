// Package metadata reads and writes the date, caption and GPS position
// stored in JPEG EXIF segments. Writes are atomic and a one-time backup of
// each file is taken before its first modification.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/dates"
	"github.com/electronjoe/photometa/internal/photo"
)

// BackupSuffix is appended to a photo's path to name its backup.
const BackupSuffix = ".backup"

// BackupPath returns the backup location for path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// Store serializes reads and writes per file and delegates tag encoding to
// a Codec.
type Store struct {
	codec  Codec
	logger *zap.Logger
	locks  pathLocks

	// replace moves the finished temp file over the original.
	replace func(oldpath, newpath string) error
}

// New creates a Store. A nil logger disables logging.
func New(codec Codec, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		codec:   codec,
		logger:  logger,
		replace: os.Rename,
	}
}

// EnsureBackup copies path to its backup location unless a backup already
// exists. An existing backup is never touched.
func (s *Store) EnsureBackup(path string) error {
	unlock := s.locks.lock(path)
	defer unlock()
	_, err := s.ensureBackup(path)
	return err
}

func (s *Store) ensureBackup(path string) (created bool, err error) {
	backup := BackupPath(path)
	if _, err := os.Lstat(backup); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, ioError("backup", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, ioError("backup", path, err)
	}
	tmp, err := copyToTemp(path, ".backup-*")
	if err != nil {
		return false, ioError("backup", path, err)
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		os.Remove(tmp)
		return false, ioError("backup", path, err)
	}
	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmp)
		return false, ioError("backup", path, err)
	}
	if err := os.Rename(tmp, backup); err != nil {
		os.Remove(tmp)
		return false, ioError("backup", path, err)
	}
	s.logger.Info("backup created", zap.String("path", path), zap.String("backup", backup))
	return true, nil
}

// Write applies u to the file at path. Fields u leaves nil keep their
// on-disk values, and a new date keeps the existing time of day. On any
// failure the original file is left byte-identical.
func (s *Store) Write(ctx context.Context, path string, u photo.Update) error {
	if u.Location != nil && !u.Location.Valid() {
		return &Error{
			Op:   "write",
			Path: path,
			Kind: ErrInvalidCoordinate,
			Err:  fmt.Errorf("%.6f, %.6f", u.Location.Latitude, u.Location.Longitude),
		}
	}
	if u.IsEmpty() {
		return nil
	}

	unlock := s.locks.lock(path)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	current, err := s.Read(path)
	if err != nil {
		return err
	}

	created, err := s.ensureBackup(path)
	if err != nil {
		return err
	}
	if err := s.rewrite(ctx, path, changesFor(current, u)); err != nil {
		if created {
			// The original is unchanged, so the fresh backup is redundant.
			os.Remove(BackupPath(path))
		}
		return err
	}
	s.logger.Debug("metadata written", zap.String("path", path))
	return nil
}

func changesFor(current photo.Record, u photo.Update) Changes {
	var c Changes
	if u.Date != nil {
		v := dates.FormatWithClock(*u.Date, current.Clock)
		c.DateTime = &v
	}
	if u.Caption != nil {
		v := *u.Caption
		c.Caption = &v
	}
	if u.Location != nil {
		g := NewGPS(*u.Location)
		c.Location = &g
	} else if u.ClearLocation {
		c.ClearLocation = true
	}
	return c
}

// rewrite edits a temp copy of path and renames it over the original.
func (s *Store) rewrite(ctx context.Context, path string, c Changes) error {
	info, err := os.Stat(path)
	if err != nil {
		return ioError("write", path, err)
	}
	tmp, err := copyToTemp(path, ".*"+filepath.Ext(path))
	if err != nil {
		return ioError("write", path, err)
	}
	done := false
	defer func() {
		if !done {
			os.Remove(tmp)
		}
	}()

	if err := s.codec.Apply(ctx, tmp, c); err != nil {
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, errNotJPEG), errors.Is(err, errBadExif):
			return formatError("write", path, err)
		default:
			return ioError("write", path, err)
		}
	}
	if err := syncFile(tmp); err != nil {
		return ioError("write", path, err)
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		return ioError("write", path, err)
	}
	if err := s.replace(tmp, path); err != nil {
		return ioError("write", path, err)
	}
	done = true
	return nil
}

// copyToTemp copies path into a hidden temp file in the same directory and
// returns the temp file's name. suffix is a CreateTemp pattern tail.
func copyToTemp(path, suffix string) (name string, err error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			dst.Close()
			os.Remove(dst.Name())
		}
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy: %w", err)
	}
	if err = dst.Sync(); err != nil {
		return "", fmt.Errorf("sync: %w", err)
	}
	if err = dst.Close(); err != nil {
		return "", fmt.Errorf("close temp: %w", err)
	}
	return dst.Name(), nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
