// Package photo finds JPEG files in album folders and carries the metadata
// records the editor works on.
package photo

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// minPhotoSize filters out truncated files and stray thumbnails.
const minPhotoSize = 1024

// Reader extracts the metadata record of one photo.
type Reader interface {
	Read(path string) (Record, error)
}

// ScanOptions controls Scan.
type ScanOptions struct {
	Recursive bool
	// Workers bounds concurrent metadata reads; <= 0 means GOMAXPROCS.
	Workers int
	// CachePath names the JSON metadata cache. Empty disables caching.
	CachePath string
	Logger    *zap.Logger
}

// Scan walks each album directory and returns its JPEG photos with their
// metadata, sorted by file name.
func Scan(ctx context.Context, albumDirs []string, reader Reader, opts ScanOptions) ([]Photo, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var found []Photo
	for _, albumDir := range albumDirs {
		err := filepath.WalkDir(albumDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
				// Skip this file/dir but keep walking
				return nil
			}
			if d.IsDir() {
				if !opts.Recursive && path != albumDir {
					return filepath.SkipDir
				}
				return nil
			}
			if !IsJPEG(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				logger.Warn("stat failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			if info.Size() < minPhotoSize {
				return nil
			}
			found = append(found, Photo{FilePath: path, Size: info.Size(), ModTime: info.ModTime()})
			return nil
		})
		if err != nil {
			// one bad directory shouldn't break the entire load
			logger.Warn("error walking directory", zap.String("dir", albumDir), zap.Error(err))
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := SortKey(found[i].FilePath), SortKey(found[j].FilePath)
		if a != b {
			return a < b
		}
		return found[i].FilePath < found[j].FilePath
	})

	cache := newMetadataCache()
	if opts.CachePath != "" {
		loaded, err := loadMetadataCache(opts.CachePath)
		if err != nil {
			logger.Warn("ignoring metadata cache", zap.String("path", opts.CachePath), zap.Error(err))
		} else {
			cache = loaded
		}
	}

	ok, err := readAll(ctx, found, reader, cache, opts.Workers, logger)
	if err != nil {
		return nil, err
	}

	photos := make([]Photo, 0, len(found))
	valid := make(map[string]struct{}, len(found))
	for i, p := range found {
		if ok[i] {
			photos = append(photos, p)
			valid[p.FilePath] = struct{}{}
		}
	}

	if opts.CachePath != "" {
		cache.prune(valid)
		if err := saveMetadataCache(opts.CachePath, cache); err != nil {
			logger.Warn("could not save metadata cache", zap.String("path", opts.CachePath), zap.Error(err))
		}
	}
	return photos, nil
}

// readAll fills in the metadata of every photo, from the cache when the file
// is unchanged. ok[i] is false for photos whose metadata could not be read.
func readAll(ctx context.Context, photos []Photo, reader Reader, cache *metadataCache, workers int, logger *zap.Logger) ([]bool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ok := make([]bool, len(photos))
	fresh := make([]bool, len(photos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range photos {
		i := i
		p := &photos[i]
		if rec, hit := cache.get(p.FilePath, p.ModTime); hit {
			p.Metadata = rec
			ok[i] = true
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := reader.Read(p.FilePath)
			if err != nil {
				// Not critical; just log a warning and skip this file
				logger.Warn("could not read metadata", zap.String("path", p.FilePath), zap.Error(err))
				return nil
			}
			p.Metadata = rec
			ok[i] = true
			fresh[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan photos: %w", err)
	}

	for i, p := range photos {
		if fresh[i] {
			cache.set(p.FilePath, p.ModTime, p.Metadata)
		}
	}
	return ok, nil
}

// SortKey orders photos by case-folded file name, ignoring folders.
func SortKey(path string) string {
	return strings.ToLower(filepath.Base(path))
}

// IsJPEG checks for JPEG file extensions. Hidden files such as macOS "._"
// resource forks and in-flight temp files are excluded.
func IsJPEG(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}
