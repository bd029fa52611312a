// Package autosave debounces metadata edits and writes them in the
// background.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/photo"
)

// DefaultDelay is how long edits to one photo settle before being written.
const DefaultDelay = time.Second

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("autosave closed")

// Writer persists an update to one file.
type Writer interface {
	Write(ctx context.Context, path string, u photo.Update) error
}

// Saver batches updates per path. Each path has at most one write in
// flight; updates that arrive meanwhile are merged and written afterwards.
type Saver struct {
	writer  Writer
	delay   time.Duration
	logger  *zap.Logger
	onSaved func(path string, err error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

type entry struct {
	pending    photo.Update
	hasPending bool
	timer      *time.Timer
	gen        int
	writing    bool
}

// New creates a Saver. delay <= 0 selects DefaultDelay. onSaved, if not
// nil, is called after every write attempt from the writing goroutine.
func New(w Writer, delay time.Duration, logger *zap.Logger, onSaved func(path string, err error)) *Saver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if onSaved == nil {
		onSaved = func(string, error) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Saver{
		writer:  w,
		delay:   delay,
		logger:  logger,
		onSaved: onSaved,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
}

// Schedule merges u into the pending update for path and restarts its
// timer.
func (s *Saver) Schedule(path string, u photo.Update) error {
	if u.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.entries[path]
	if !ok {
		e = &entry{}
		s.entries[path] = e
	}
	e.pending = e.pending.Merge(u)
	e.hasPending = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(s.delay, func() { s.fire(path, gen) })
	return nil
}

// Flush starts the pending write for path now. It does not wait for the
// write to finish.
func (s *Saver) Flush(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[path]; ok && e.hasPending {
		s.startLocked(path, e)
	}
}

// Pending reports whether path has edits that are not yet on disk.
func (s *Saver) Pending(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[path]
	return ok && (e.hasPending || e.writing)
}

// Close flushes every pending update and waits for all writes. If ctx ends
// first, in-flight writes are cancelled and ctx's error is returned.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for path, e := range s.entries {
			if e.hasPending {
				s.startLocked(path, e)
			}
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// fire runs when a debounce timer expires. Timers superseded by a later
// Schedule are ignored.
func (s *Saver) fire(path string, gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[path]
	if !ok || e.gen != gen || e.timer == nil {
		return
	}
	e.timer = nil
	if e.hasPending {
		s.startLocked(path, e)
	}
}

// startLocked hands the pending update to a writer goroutine unless one is
// already running for path; that goroutine picks it up when done.
func (s *Saver) startLocked(path string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.writing {
		return
	}
	u := e.pending
	e.pending = photo.Update{}
	e.hasPending = false
	e.writing = true

	s.wg.Add(1)
	go s.run(path, u)
}

func (s *Saver) run(path string, u photo.Update) {
	defer s.wg.Done()

	err := s.writer.Write(s.ctx, path, u)
	if err != nil {
		s.logger.Warn("autosave failed", zap.String("path", path), zap.Error(err))
	} else {
		s.logger.Debug("autosaved", zap.String("path", path))
	}
	s.onSaved(path, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[path]
	e.writing = false
	switch {
	case e.hasPending && e.timer == nil:
		s.startLocked(path, e)
	case !e.hasPending:
		delete(s.entries, path)
	}
}
