package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/editor"
	"github.com/electronjoe/photometa/internal/geocode"
	"github.com/electronjoe/photometa/internal/history"
	"github.com/electronjoe/photometa/internal/photo"
)

const editHelp = `commands:
  n, next            next photo (saves pending edits)
  p, prev            previous photo
  d, date TEXT       set the date
  c, caption TEXT    set the caption
  l, location TEXT   look up places; then "pick N"
  pick N             use suggestion N
  clear              remove the location
  copy               copy date, caption and location from the previous photo
  recent             recently used dates and locations
  show               show the current photo
  q, quit            save and exit
`

// syncWriter serializes output from the editor loop and save callbacks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Printf(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, format, args...)
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	recursive := fs.Bool("r", a.cfg.Recursive, "include sub-folders")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = a.cfg.Folders
	}
	if len(dirs) == 0 {
		return errors.New("edit: no folders given")
	}

	store, err := a.metadataStore()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := &syncWriter{w: a.stdout}
	opts := editor.Options{
		Logger:        a.logger,
		Namer:         a.geocodeClient(),
		Recursive:     *recursive,
		Workers:       a.cfg.ScanWorkers,
		CachePath:     a.cfg.CachePath,
		AutosaveDelay: a.cfg.AutosaveDelay(),
		OnSaved: func(path string, err error) {
			if err != nil {
				out.Printf("save failed for %s: %v\n", baseName(path), err)
			}
		},
	}
	if h, err := a.history(); err == nil {
		opts.Recents = h
	} else {
		a.logger.Warn("recent values disabled", zap.Error(err))
	}

	s := editor.New(store, opts)
	if err := s.Open(ctx, dirs); err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			a.logger.Warn("pending edits not saved", zap.Error(err))
		}
	}()

	events, err := photo.Watch(ctx, dirs, *recursive, a.logger)
	if err != nil {
		a.logger.Warn("folder watch disabled", zap.Error(err))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	l := &editLoop{ctx: ctx, s: s, geo: a.geocodeClient(), out: out}
	l.showCurrent()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Kind == photo.PhotoAdded && s.Contains(ev.Path) {
				// Saves replace files, which reads as a new file.
				continue
			}
			a.logger.Debug("folder changed", zap.String("path", ev.Path))
			if err := s.Rescan(ctx); err != nil {
				out.Printf("rescan failed: %v\n", err)
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := l.handle(line); quit {
				return nil
			}
		}
	}
}

type editLoop struct {
	ctx         context.Context
	s           *editor.Session
	geo         *geocode.Client
	out         *syncWriter
	suggestions []geocode.Place
}

// handle runs one command line and reports whether to quit.
func (l *editLoop) handle(line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "":
	case "q", "quit", "exit":
		return true
	case "h", "help", "?":
		l.out.Printf("%s", editHelp)
	case "n", "next":
		if !l.s.Next() {
			l.out.Printf("already at last photo\n")
			return false
		}
		l.showCurrent()
	case "p", "prev":
		if !l.s.Prev() {
			l.out.Printf("already at first photo\n")
			return false
		}
		l.showCurrent()
	case "show":
		l.showCurrent()
	case "d", "date":
		d, err := l.s.SetDate(l.ctx, arg)
		if err != nil {
			l.out.Printf("%v\n", err)
			return false
		}
		l.out.Printf("date: %s\n", d)
	case "c", "caption":
		if err := l.s.SetCaption(arg); err != nil {
			l.out.Printf("%v\n", err)
		}
	case "l", "location":
		l.suggestions = l.geo.Suggest(l.ctx, arg)
		if len(l.suggestions) == 0 {
			l.out.Printf("no places found\n")
			return false
		}
		for i, p := range l.suggestions {
			l.out.Printf("%d. %s\n", i+1, p.Name)
		}
	case "pick":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(l.suggestions) {
			l.out.Printf("pick a number from the last location list\n")
			return false
		}
		if err := l.s.SetLocation(l.ctx, l.suggestions[n-1]); err != nil {
			l.out.Printf("%v\n", err)
			return false
		}
		l.out.Printf("location: %s\n", l.suggestions[n-1].Name)
		l.suggestions = nil
	case "clear":
		if err := l.s.ClearLocation(); err != nil {
			l.out.Printf("%v\n", err)
		}
	case "copy":
		u, err := l.s.CopyFromPrevious()
		if err != nil {
			l.out.Printf("%v\n", err)
			return false
		}
		l.out.Printf("copied %s\n", copiedFields(u))
	case "recent":
		for _, kind := range []history.Kind{history.KindDate, history.KindLocation} {
			l.out.Printf("%s: %s\n", kind, strings.Join(l.s.Recent(l.ctx, kind), " | "))
		}
	default:
		l.out.Printf("unknown command %q, try help\n", cmd)
	}
	return false
}

func (l *editLoop) showCurrent() {
	p, ok := l.s.Current()
	if !ok {
		l.out.Printf("no photos\n")
		return
	}
	loc := l.s.LocationLabel(l.ctx)
	if loc == "" {
		loc = "-"
	}
	l.out.Printf("[%d/%d] %s\n  date:     %s\n  caption:  %s\n  location: %s\n",
		l.s.Index()+1, l.s.Len(), baseName(p.FilePath),
		dateText(p.Metadata), captionText(p.Metadata), loc)
}

func copiedFields(u photo.Update) string {
	var fields []string
	if u.Date != nil {
		fields = append(fields, "date")
	}
	if u.Caption != nil {
		fields = append(fields, "caption")
	}
	if u.Location != nil {
		fields = append(fields, "location")
	}
	if len(fields) == 0 {
		return "nothing"
	}
	return strings.Join(fields, ", ")
}
