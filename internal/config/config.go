package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath = ".photometa/config.json"
	// DotEnvFile is read from the working directory when present.
	DotEnvFile = ".env"
	EnvPrefix  = "PHOTOMETA_"
)

// Geocoder configures the Nominatim client.
type Geocoder struct {
	BaseURL        string `json:"baseURL" validate:"required,url"`
	UserAgent      string `json:"userAgent" validate:"required"`
	Limit          int    `json:"limit" validate:"min=1,max=50"`
	TimeoutSeconds int    `json:"timeoutSeconds" validate:"min=1,max=120"`
}

// Config represents the JSON config structure.
type Config struct {
	Folders         []string `json:"folders"`
	Recursive       bool     `json:"recursive"`
	AutosaveDelayMs int      `json:"autosaveDelayMs" validate:"min=0,max=60000"`
	Codec           string   `json:"codec" validate:"oneof=native exiftool"`
	ExiftoolPath    string   `json:"exiftoolPath"`
	HistoryPath     string   `json:"historyPath" validate:"required"`
	CachePath       string   `json:"cachePath"`
	ScanWorkers     int      `json:"scanWorkers" validate:"min=1,max=64"`
	Geocoder        Geocoder `json:"geocoder"`
	LogLevel        string   `json:"logLevel" validate:"oneof=debug info warn error"`
	Development     bool     `json:"development"`
}

// AutosaveDelay returns the debounce delay for edits.
func (c Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMs) * time.Millisecond
}

// GeocoderTimeout returns the HTTP timeout for geocoding requests.
func (c Config) GeocoderTimeout() time.Duration {
	return time.Duration(c.Geocoder.TimeoutSeconds) * time.Second
}

// Default returns the configuration used when no file exists. State files
// live in dir.
func Default(dir string) Config {
	return Config{
		AutosaveDelayMs: 1000,
		Codec:           "native",
		HistoryPath:     filepath.Join(dir, "history.db"),
		CachePath:       filepath.Join(dir, "cache.json"),
		ScanWorkers:     4,
		Geocoder: Geocoder{
			BaseURL:        "https://nominatim.openstreetmap.org",
			UserAgent:      "photometa",
			Limit:          5,
			TimeoutSeconds: 5,
		},
		LogLevel: "info",
	}
}

// Path returns ~/.photometa/config.json.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultConfigPath), nil
}

// Read retrieves the config from ~/.photometa/config.json.
func Read() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	return Load(path)
}

// Load reads the JSON config at path over the defaults, then applies .env
// and PHOTOMETA_* environment overrides and validates the result. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default(filepath.Dir(path))

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file at %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	for i, f := range cfg.Folders {
		cfg.Folders[i] = expandHome(f)
	}
	cfg.HistoryPath = expandHome(cfg.HistoryPath)
	cfg.CachePath = expandHome(cfg.CachePath)
	cfg.ExiftoolPath = expandHome(cfg.ExiftoolPath)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv exports the variables of file without overriding ones already
// set.
func loadDotEnv(file string) error {
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("failed to load %s: %w", file, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"CODEC":               &cfg.Codec,
		"EXIFTOOL_PATH":       &cfg.ExiftoolPath,
		"HISTORY_PATH":        &cfg.HistoryPath,
		"CACHE_PATH":          &cfg.CachePath,
		"GEOCODER_URL":        &cfg.Geocoder.BaseURL,
		"GEOCODER_USER_AGENT": &cfg.Geocoder.UserAgent,
		"LOG_LEVEL":           &cfg.LogLevel,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"AUTOSAVE_DELAY_MS": &cfg.AutosaveDelayMs,
		"SCAN_WORKERS":      &cfg.ScanWorkers,
		"GEOCODER_LIMIT":    &cfg.Geocoder.Limit,
		"GEOCODER_TIMEOUT":  &cfg.Geocoder.TimeoutSeconds,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"RECURSIVE":   &cfg.Recursive,
		"DEVELOPMENT": &cfg.Development,
	}
	for name, dst := range bools {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "FOLDERS"); ok {
		cfg.Folders = nil
		for _, f := range filepath.SplitList(v) {
			if f = strings.TrimSpace(f); f != "" {
				cfg.Folders = append(cfg.Folders, f)
			}
		}
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, e.Tag(), e.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", field, e.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
