package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/config"
	"github.com/electronjoe/photometa/internal/dates"
	"github.com/electronjoe/photometa/internal/geocode"
	"github.com/electronjoe/photometa/internal/history"
	"github.com/electronjoe/photometa/internal/metadata"
	"github.com/electronjoe/photometa/internal/photo"
)

const usage = `usage: photometa [-config FILE] COMMAND [ARGS]

commands:
  list [-r] DIR...         print date, caption and location of every photo
  show FILE                print the metadata of one photo
  set FILE [-date TEXT] [-caption TEXT] [-lat F -lon F | -place TEXT | -clear-location]
                           change metadata; the original is kept as FILE.backup
  parse TEXT               show how a date text is understood
  geocode TEXT             look up places by name
  recent                   print recently used dates and locations
  edit [-r] DIR...         edit photos one by one

Dates may be written as "2001", "5/11/01", "May 11, 2001", "11 May 2001",
"2001-05-11" and similar. Two-digit years below %d are in the 2000s, the
rest in the 1900s.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type app struct {
	cfg    config.Config
	logger *zap.Logger
	stdin  io.Reader
	stdout io.Writer

	store      *metadata.Store
	closeCodec func() error
	recents    *history.Store
	geocoder   *geocode.Client
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("photometa", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintf(stderr, usage, dates.CenturyPivot) }
	configPath := fs.String("config", "", "config file (default ~/"+config.DefaultConfigPath+")")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	// 1. Read config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "photometa: %v\n", err)
		return 1
	}

	// 2. Build logger
	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "photometa: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// 3. Dispatch
	a := &app{cfg: cfg, logger: logger, stdin: stdin, stdout: stdout}
	defer a.close()
	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "photometa: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Read()
	}
	return config.Load(path)
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "set":
		return a.set(ctx, args)
	case "parse":
		return a.parse(args)
	case "geocode":
		return a.geocode(ctx, args)
	case "recent":
		return a.recent(ctx)
	case "edit":
		return a.edit(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// metadataStore opens the configured codec on first use.
func (a *app) metadataStore() (*metadata.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	var codec metadata.Codec = metadata.NewNativeCodec()
	if a.cfg.Codec == "exiftool" {
		et, err := metadata.NewExiftoolCodec(a.cfg.ExiftoolPath)
		if err != nil {
			return nil, err
		}
		codec = et
		a.closeCodec = et.Close
	}
	a.store = metadata.New(codec, a.logger)
	return a.store, nil
}

func (a *app) history() (*history.Store, error) {
	if a.recents != nil {
		return a.recents, nil
	}
	h, err := history.Open(a.cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	a.recents = h
	return h, nil
}

func (a *app) geocodeClient() *geocode.Client {
	if a.geocoder == nil {
		a.geocoder = geocode.New(geocode.Config{
			BaseURL:   a.cfg.Geocoder.BaseURL,
			UserAgent: a.cfg.Geocoder.UserAgent,
			Limit:     a.cfg.Geocoder.Limit,
			Timeout:   a.cfg.GeocoderTimeout(),
		}, a.logger)
	}
	return a.geocoder
}

func (a *app) close() {
	if a.closeCodec != nil {
		if err := a.closeCodec(); err != nil {
			a.logger.Warn("failed to stop exiftool", zap.Error(err))
		}
	}
	if a.recents != nil {
		a.recents.Close()
	}
}

// remember records a recent value; failures only cost the suggestion.
func (a *app) remember(ctx context.Context, kind history.Kind, value string) {
	h, err := a.history()
	if err == nil {
		err = h.Add(ctx, kind, value)
	}
	if err != nil {
		a.logger.Warn("failed to record recent value", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	recursive := fs.Bool("r", a.cfg.Recursive, "include sub-folders")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = a.cfg.Folders
	}
	if len(dirs) == 0 {
		return errors.New("list: no folders given")
	}

	store, err := a.metadataStore()
	if err != nil {
		return err
	}
	photos, err := photo.Scan(ctx, dirs, store, photo.ScanOptions{
		Recursive: *recursive,
		Workers:   a.cfg.ScanWorkers,
		CachePath: a.cfg.CachePath,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	for _, p := range photos {
		fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\n", p.FilePath, dateText(p.Metadata), captionText(p.Metadata), locationText(p.Metadata))
	}
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("show: expected one file")
	}
	store, err := a.metadataStore()
	if err != nil {
		return err
	}
	rec, err := store.Read(args[0])
	if err != nil {
		return err
	}
	a.printRecord(rec)
	return nil
}

func (a *app) printRecord(rec photo.Record) {
	fmt.Fprintf(a.stdout, "file:     %s\n", rec.Path)
	fmt.Fprintf(a.stdout, "date:     %s\n", dateText(rec))
	fmt.Fprintf(a.stdout, "caption:  %s\n", captionText(rec))
	fmt.Fprintf(a.stdout, "location: %s\n", locationText(rec))
}

func (a *app) set(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	dateFlag := fs.String("date", "", "date text")
	caption := fs.String("caption", "", "caption")
	lat := fs.Float64("lat", 0, "latitude in decimal degrees")
	lon := fs.Float64("lon", 0, "longitude in decimal degrees")
	place := fs.String("place", "", "place name to look up")
	clearLoc := fs.Bool("clear-location", false, "remove the GPS position")

	// FILE may come before or after the flags.
	var file string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		file, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if file == "" && fs.NArg() > 0 {
		file = fs.Arg(0)
	}
	if file == "" {
		return errors.New("set: expected a file")
	}
	given := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { given[f.Name] = true })

	var u photo.Update
	var dateLabel, placeLabel string
	if given["date"] {
		d, err := dates.Parse(*dateFlag)
		if err != nil {
			return err
		}
		u.Date = &d
		dateLabel = d.String()
	}
	if given["caption"] {
		c := strings.TrimSpace(*caption)
		u.Caption = &c
	}

	locationFlags := 0
	if given["lat"] || given["lon"] {
		if !given["lat"] || !given["lon"] {
			return errors.New("set: -lat and -lon go together")
		}
		locationFlags++
		u.Location = &photo.GeoCoordinate{Latitude: *lat, Longitude: *lon}
		placeLabel = geocode.FormatCoordinate(*u.Location)
	}
	if given["place"] {
		locationFlags++
		places, err := a.geocodeClient().Search(ctx, *place)
		if err != nil {
			return err
		}
		if len(places) == 0 {
			return fmt.Errorf("set: place %q is too short to look up", *place)
		}
		c := places[0].Coordinate()
		u.Location = &c
		placeLabel = places[0].Name
		fmt.Fprintf(a.stdout, "using %s\n", places[0].Name)
	}
	if *clearLoc {
		locationFlags++
		u.ClearLocation = true
	}
	if locationFlags > 1 {
		return errors.New("set: use only one of -lat/-lon, -place and -clear-location")
	}
	if u.IsEmpty() {
		return errors.New("set: nothing to change")
	}

	store, err := a.metadataStore()
	if err != nil {
		return err
	}
	if err := store.Write(ctx, file, u); err != nil {
		return err
	}
	if dateLabel != "" {
		a.remember(ctx, history.KindDate, dateLabel)
	}
	if placeLabel != "" {
		a.remember(ctx, history.KindLocation, placeLabel)
	}

	rec, err := store.Read(file)
	if err != nil {
		return err
	}
	a.printRecord(rec)
	return nil
}

func (a *app) parse(args []string) error {
	text := strings.Join(args, " ")
	d, err := dates.Parse(text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%s\n", d, dates.Format(d))
	return nil
}

func (a *app) geocode(ctx context.Context, args []string) error {
	places, err := a.geocodeClient().Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, p := range places {
		fmt.Fprintf(a.stdout, "%s\t%s\n", geocode.FormatCoordinate(p.Coordinate()), p.Name)
	}
	return nil
}

func (a *app) recent(ctx context.Context) error {
	h, err := a.history()
	if err != nil {
		return err
	}
	for _, kind := range []history.Kind{history.KindDate, history.KindLocation} {
		values, err := h.List(ctx, kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s:\n", kind)
		for _, v := range values {
			fmt.Fprintf(a.stdout, "  %s\n", v)
		}
	}
	return nil
}

func dateText(rec photo.Record) string {
	if rec.Date == nil {
		return "-"
	}
	return rec.Date.String()
}

func captionText(rec photo.Record) string {
	if rec.Caption == nil || *rec.Caption == "" {
		return "-"
	}
	return *rec.Caption
}

func locationText(rec photo.Record) string {
	if rec.Location == nil {
		return "-"
	}
	return geocode.FormatCoordinate(*rec.Location)
}

func baseName(path string) string {
	return filepath.Base(path)
}
