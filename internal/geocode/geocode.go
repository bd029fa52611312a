// Package geocode resolves place names to coordinates and back through a
// Nominatim server.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/electronjoe/photometa/internal/photo"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "photometa"
	DefaultLimit     = 5
	DefaultTimeout   = 5 * time.Second

	// MinQueryLength is the shortest text worth sending to the server.
	MinQueryLength = 2
)

// ErrNoMatch is returned when the server knows no place for a query.
var ErrNoMatch = errors.New("no matching place")

// Place is a named position.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinate returns the position of p.
func (p Place) Coordinate() photo.GeoCoordinate {
	return photo.GeoCoordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// FormatCoordinate renders c as "lat, lon", the label used when no place
// name is known.
func FormatCoordinate(c photo.GeoCoordinate) string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// Config selects the server and request limits. Zero fields take the
// package defaults.
type Config struct {
	BaseURL   string
	UserAgent string
	Limit     int
	Timeout   time.Duration
}

// Client talks to Nominatim. Repeated transport or server failures open a
// circuit breaker so an unreachable server does not stall the editor.
type Client struct {
	cfg    Config
	http   *http.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// New creates a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nominatim",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("geocoder breaker state changed",
				zap.String("name", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoMatch) || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cb:     cb,
		logger: logger,
	}
}

type result struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (r result) place() (Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}
	return Place{Name: r.DisplayName, Latitude: lat, Longitude: lon}, nil
}

// Search looks up places matching text, best match first. Texts shorter
// than MinQueryLength yield no places without a request.
func (c *Client) Search(ctx context.Context, text string) ([]Place, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinQueryLength {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", text)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(c.cfg.Limit))

	var results []result
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return nil, fmt.Errorf("search %q: %w", text, err)
	}
	var places []Place
	for _, r := range results {
		p, err := r.place()
		if err != nil {
			c.logger.Debug("skipping malformed result", zap.String("query", text), zap.Error(err))
			continue
		}
		places = append(places, p)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("search %q: %w", text, ErrNoMatch)
	}
	return places, nil
}

// Reverse names the place at a coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	var r result
	if err := c.get(ctx, "/reverse", q, &r); err != nil {
		return Place{}, fmt.Errorf("reverse %.6f,%.6f: %w", lat, lon, err)
	}
	if r.Error != "" || r.DisplayName == "" {
		return Place{}, fmt.Errorf("reverse %.6f,%.6f: %w", lat, lon, ErrNoMatch)
	}
	p, err := r.place()
	if err != nil {
		return Place{}, fmt.Errorf("reverse %.6f,%.6f: %w", lat, lon, err)
	}
	return p, nil
}

// Suggest is Search for interactive completion: failures are logged and
// produce an empty list.
func (c *Client) Suggest(ctx context.Context, text string) []Place {
	places, err := c.Search(ctx, text)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			c.logger.Debug("no suggestions", zap.String("query", text))
		} else {
			c.logger.Warn("geocoding failed", zap.String("query", text), zap.Error(err))
		}
		return nil
	}
	return places
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("nominatim %s: %s", path, resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, nil
	})
	return err
}
