// Package editor walks a folder of photos and turns text edits into
// debounced metadata writes.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/autosave"
	"github.com/electronjoe/photometa/internal/dates"
	"github.com/electronjoe/photometa/internal/geocode"
	"github.com/electronjoe/photometa/internal/history"
	"github.com/electronjoe/photometa/internal/photo"
)

var (
	// ErrNoPhotos is returned by edits when no photo is selected.
	ErrNoPhotos = errors.New("no photos loaded")
	// ErrNoPrevious is returned by CopyFromPrevious before any navigation.
	ErrNoPrevious = errors.New("no previous photo metadata")
	// ErrInvalidLocation is returned for coordinates out of range.
	ErrInvalidLocation = errors.New("location out of range")
)

// Store reads records and persists updates.
type Store interface {
	photo.Reader
	autosave.Writer
}

// Recents records entered values.
type Recents interface {
	Add(ctx context.Context, kind history.Kind, value string) error
	List(ctx context.Context, kind history.Kind) ([]string, error)
}

// Namer names coordinates.
type Namer interface {
	Reverse(ctx context.Context, lat, lon float64) (geocode.Place, error)
}

// Options configures a Session. Recents and Namer are optional.
type Options struct {
	Logger        *zap.Logger
	Recents       Recents
	Namer         Namer
	Recursive     bool
	Workers       int
	CachePath     string
	AutosaveDelay time.Duration
	OnSaved       func(path string, err error)
}

// Session holds the photo list, the selected photo and the metadata last
// seen on the photo navigated away from.
type Session struct {
	store  Store
	saver  *autosave.Saver
	opts   Options
	logger *zap.Logger

	dirs   []string
	photos []photo.Photo
	index  int
	labels map[string]string

	previous      *photo.Record
	previousLabel string
}

// New creates an empty session. Call Open to load photos.
func New(store Store, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{
		store:  store,
		saver:  autosave.New(store, opts.AutosaveDelay, opts.Logger, opts.OnSaved),
		opts:   opts,
		logger: opts.Logger,
		labels: make(map[string]string),
	}
}

// Open scans dirs and selects the first photo.
func (s *Session) Open(ctx context.Context, dirs []string) error {
	s.dirs = append([]string(nil), dirs...)
	photos, err := s.scan(ctx)
	if err != nil {
		return err
	}
	s.photos = photos
	s.index = 0
	s.logger.Info("photos loaded", zap.Int("count", len(photos)))
	return nil
}

func (s *Session) scan(ctx context.Context) ([]photo.Photo, error) {
	photos, err := photo.Scan(ctx, s.dirs, s.store, photo.ScanOptions{
		Recursive: s.opts.Recursive,
		Workers:   s.opts.Workers,
		CachePath: s.opts.CachePath,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return photos, nil
}

// Rescan reloads the photo list. The selected photo stays selected while it
// exists; edits not yet on disk are kept.
func (s *Session) Rescan(ctx context.Context) error {
	var selected string
	if p, ok := s.Current(); ok {
		selected = p.FilePath
		s.saver.Flush(selected)
	}
	// Records with writes outstanding may be stale on disk.
	unsaved := make(map[string]photo.Record)
	for _, p := range s.photos {
		if s.saver.Pending(p.FilePath) {
			unsaved[p.FilePath] = p.Metadata
		}
	}
	photos, err := s.scan(ctx)
	if err != nil {
		return err
	}

	s.index = 0
	found := false
	for i := range photos {
		path := photos[i].FilePath
		if rec, ok := unsaved[path]; ok {
			photos[i].Metadata = rec
		}
		if path == selected {
			s.index, found = i, true
		}
	}
	if !found && selected != "" && len(photos) > 0 {
		// The selected photo is gone; stay at its old position.
		s.index = min(indexBefore(photos, selected), len(photos)-1)
	}
	s.photos = photos
	return nil
}

// indexBefore returns how many photos sort before path.
func indexBefore(photos []photo.Photo, path string) int {
	key := photo.SortKey(path)
	n := 0
	for _, p := range photos {
		if photo.SortKey(p.FilePath) < key {
			n++
		}
	}
	return n
}

// Contains reports whether path is in the photo list.
func (s *Session) Contains(path string) bool {
	for _, p := range s.photos {
		if p.FilePath == path {
			return true
		}
	}
	return false
}

// Len returns the number of photos.
func (s *Session) Len() int { return len(s.photos) }

// Index returns the position of the selected photo.
func (s *Session) Index() int { return s.index }

// Current returns the selected photo with any unsaved edits applied.
func (s *Session) Current() (photo.Photo, bool) {
	if len(s.photos) == 0 {
		return photo.Photo{}, false
	}
	return s.photos[s.index], true
}

// Pending reports whether the selected photo has edits not yet written.
func (s *Session) Pending() bool {
	p, ok := s.Current()
	return ok && s.saver.Pending(p.FilePath)
}

// Next selects the following photo. It returns false at the last photo.
func (s *Session) Next() bool {
	if s.index >= len(s.photos)-1 {
		return false
	}
	s.leave()
	s.index++
	return true
}

// Prev selects the preceding photo. It returns false at the first photo.
func (s *Session) Prev() bool {
	if s.index <= 0 || len(s.photos) == 0 {
		return false
	}
	s.leave()
	s.index--
	return true
}

// leave starts writing pending edits of the selected photo and remembers
// its metadata for CopyFromPrevious.
func (s *Session) leave() {
	p := s.photos[s.index]
	s.saver.Flush(p.FilePath)
	rec := p.Metadata
	s.previous = &rec
	s.previousLabel = s.labels[p.FilePath]
}

func (s *Session) apply(u photo.Update) error {
	if len(s.photos) == 0 {
		return ErrNoPhotos
	}
	p := &s.photos[s.index]
	if err := s.saver.Schedule(p.FilePath, u); err != nil {
		return fmt.Errorf("schedule save: %w", err)
	}
	p.Metadata = p.Metadata.Apply(u)
	return nil
}

// SetDate parses text and schedules the date. Unparseable text schedules
// nothing and returns an error wrapping dates.ErrParse.
func (s *Session) SetDate(ctx context.Context, text string) (dates.Date, error) {
	if len(s.photos) == 0 {
		return dates.Date{}, ErrNoPhotos
	}
	d, err := dates.Parse(text)
	if err != nil {
		return dates.Date{}, err
	}
	if err := s.apply(photo.Update{Date: &d}); err != nil {
		return dates.Date{}, err
	}
	s.remember(ctx, history.KindDate, d.String())
	return d, nil
}

// SetCaption schedules the trimmed caption.
func (s *Session) SetCaption(text string) error {
	caption := strings.TrimSpace(text)
	return s.apply(photo.Update{Caption: &caption})
}

// SetLocation schedules the position of place and records its name.
func (s *Session) SetLocation(ctx context.Context, place geocode.Place) error {
	c := place.Coordinate()
	if !c.Valid() {
		return fmt.Errorf("set location %s: %w", geocode.FormatCoordinate(c), ErrInvalidLocation)
	}
	if err := s.apply(photo.Update{Location: &c}); err != nil {
		return err
	}
	label := place.Name
	if label == "" {
		label = geocode.FormatCoordinate(c)
	}
	s.labels[s.photos[s.index].FilePath] = label
	s.remember(ctx, history.KindLocation, label)
	return nil
}

// ClearLocation schedules removal of the GPS position.
func (s *Session) ClearLocation() error {
	if err := s.apply(photo.Update{ClearLocation: true}); err != nil {
		return err
	}
	delete(s.labels, s.photos[s.index].FilePath)
	return nil
}

// CopyFromPrevious applies the date, caption and location of the photo
// last navigated away from. Fields it did not have are left alone.
func (s *Session) CopyFromPrevious() (photo.Update, error) {
	if len(s.photos) == 0 {
		return photo.Update{}, ErrNoPhotos
	}
	if s.previous == nil {
		return photo.Update{}, ErrNoPrevious
	}
	u := photo.Update{
		Date:     s.previous.Date,
		Caption:  s.previous.Caption,
		Location: s.previous.Location,
	}
	if u.IsEmpty() {
		return u, nil
	}
	if err := s.apply(u); err != nil {
		return photo.Update{}, err
	}
	if u.Location != nil && s.previousLabel != "" {
		s.labels[s.photos[s.index].FilePath] = s.previousLabel
	}
	return u, nil
}

// LocationLabel names the selected photo's position: the place chosen in
// this session, else a reverse lookup, else the coordinates.
func (s *Session) LocationLabel(ctx context.Context) string {
	p, ok := s.Current()
	if !ok || p.Metadata.Location == nil {
		return ""
	}
	if label, ok := s.labels[p.FilePath]; ok {
		return label
	}
	loc := *p.Metadata.Location
	label := geocode.FormatCoordinate(loc)
	if s.opts.Namer != nil {
		place, err := s.opts.Namer.Reverse(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			s.logger.Debug("reverse geocoding failed", zap.String("path", p.FilePath), zap.Error(err))
			return label
		}
		label = place.Name
	}
	s.labels[p.FilePath] = label
	return label
}

// Recent returns the recorded values of kind, most recent last.
func (s *Session) Recent(ctx context.Context, kind history.Kind) []string {
	if s.opts.Recents == nil {
		return nil
	}
	values, err := s.opts.Recents.List(ctx, kind)
	if err != nil {
		s.logger.Warn("recent values unavailable", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	return values
}

func (s *Session) remember(ctx context.Context, kind history.Kind, value string) {
	if s.opts.Recents == nil {
		return
	}
	if err := s.opts.Recents.Add(ctx, kind, value); err != nil {
		s.logger.Warn("failed to record recent value", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// Close writes all pending edits.
func (s *Session) Close(ctx context.Context) error {
	return s.saver.Close(ctx)
}
