package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/config"
	"github.com/electronjoe/photometa/internal/geocode"
	"github.com/electronjoe/photometa/internal/metadata"
	"github.com/electronjoe/photometa/internal/photo"
)

// LocationsFile is written into every processed sub-directory.
const LocationsFile = "locations.json"

// ImageLocation holds the position of one image.
type ImageLocation struct {
	// FriendlyLocation is a human-friendly geographic name (e.g. "Zion National Park")
	FriendlyLocation string  `json:"friendly_location"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// Reader reads photo metadata.
type Reader interface {
	Read(path string) (photo.Record, error)
}

// Namer names coordinates.
type Namer interface {
	Reverse(ctx context.Context, lat, lon float64) (geocode.Place, error)
}

func main() {
	// Parse command-line flags
	rootDir := flag.String("root", "", "Root directory containing sub-directories with images")
	configPath := flag.String("config", "", "config file (default ~/"+config.DefaultConfigPath+")")
	delay := flag.Duration("delay", time.Second, "pause between lookups; public Nominatim allows one per second")
	flag.Parse()

	if *rootDir == "" {
		fmt.Fprintln(os.Stderr, "Please provide a root directory using the -root flag")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := metadata.New(metadata.NewNativeCodec(), logger)
	namer := geocode.New(geocode.Config{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Limit:     cfg.Geocoder.Limit,
		Timeout:   cfg.GeocoderTimeout(),
	}, logger)

	if err := processRoot(ctx, *rootDir, store, namer, *delay, logger); err != nil {
		logger.Error("geocoding failed", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Read()
	}
	return config.Load(path)
}

// processRoot handles every sub-directory of root.
func processRoot(ctx context.Context, root string, r Reader, n Namer, delay time.Duration, logger *zap.Logger) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read root directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		subDirPath := filepath.Join(root, entry.Name())
		logger.Info("processing sub-directory", zap.String("dir", subDirPath))
		if err := processSubDir(ctx, subDirPath, r, n, delay, logger); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("skipping sub-directory", zap.String("dir", subDirPath), zap.Error(err))
		}
	}
	return nil
}

// processSubDir reads the GPS position of every JPEG in dir and writes a
// locations.json mapping file names to named places. Images without a
// position are left out.
func processSubDir(ctx context.Context, dir string, r Reader, n Namer, delay time.Duration, logger *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	locations := make(map[string]ImageLocation)
	lookups := 0
	for _, entry := range entries {
		if entry.IsDir() || !photo.IsJPEG(entry.Name()) {
			continue
		}
		filePath := filepath.Join(dir, entry.Name())
		rec, err := r.Read(filePath)
		if err != nil {
			logger.Warn("unreadable image", zap.String("path", filePath), zap.Error(err))
			continue
		}
		if rec.Location == nil {
			continue
		}

		if lookups > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lookups++
		locations[entry.Name()] = ImageLocation{
			FriendlyLocation: friendlyName(ctx, n, *rec.Location, logger),
			Latitude:         rec.Location.Latitude,
			Longitude:        rec.Location.Longitude,
		}
	}
	if len(locations) == 0 {
		logger.Info("no geotagged images", zap.String("dir", dir))
		return nil
	}

	jsonData, err := json.MarshalIndent(locations, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal locations: %w", err)
	}
	jsonPath := filepath.Join(dir, LocationsFile)
	if err := os.WriteFile(jsonPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}
	logger.Info("wrote locations", zap.String("path", jsonPath), zap.Int("images", len(locations)))
	return nil
}

// friendlyName falls back to the coordinates when no place is known.
func friendlyName(ctx context.Context, n Namer, c photo.GeoCoordinate, logger *zap.Logger) string {
	place, err := n.Reverse(ctx, c.Latitude, c.Longitude)
	if err != nil {
		if !errors.Is(err, geocode.ErrNoMatch) {
			logger.Warn("reverse geocoding failed", zap.Error(err))
		}
		return geocode.FormatCoordinate(c)
	}
	return place.Name
}
