package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "docgrind.yaml"

type Config struct {
	DataPath      string              `yaml:"-"`
	DBPath        string              `yaml:"-"`
	Tracker       TrackerConfig       `yaml:"tracker"`
	Storage       StorageConfig       `yaml:"storage"`
	Logging       LoggingConfig       `yaml:"logging"`
	Accessibility AccessibilityConfig `yaml:"accessibility"`
}

type TrackerConfig struct {
	ContainerSelector   string        `yaml:"container_selector"`
	ContentSelectors    []string      `yaml:"content_selectors"`
	Thresholds          []float64     `yaml:"intersection_thresholds"`
	ScrollDebounce      time.Duration `yaml:"scroll_debounce"`
	DedupWindow         time.Duration `yaml:"dedup_window"`
	AutoSaveInterval    time.Duration `yaml:"auto_save_interval"`
	AverageReadingSpeed float64       `yaml:"average_reading_speed"`
	ActivityFactor      float64       `yaml:"activity_factor"`
	ActivityInterval    time.Duration `yaml:"activity_interval"`
	MinActiveTime       time.Duration `yaml:"min_active_time"`
	EnableBookmarks     bool          `yaml:"enable_bookmarks"`
	EnableAccessibility bool          `yaml:"enable_accessibility"`
	Difficulty          string        `yaml:"difficulty"`
	ViewportHeight      float64       `yaml:"viewport_height"`
}

type StorageConfig struct {
	KeyPrefix    string        `yaml:"key_prefix"`
	MaxSizeBytes int64         `yaml:"max_size_bytes"`
	Compression  bool          `yaml:"compression"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AccessibilityConfig struct {
	AnnounceProgress       bool `yaml:"announce_progress"`
	AnnounceBookmarks      bool `yaml:"announce_bookmarks"`
	AnnounceChapterChanges bool `yaml:"announce_chapter_changes"`
	AnnounceTimeEstimates  bool `yaml:"announce_time_estimates"`
}

// ConfigError names the field that failed validation.
type ConfigError struct {
	Field string
	Msg   string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

func DefaultContentSelectors() []string {
	return []string{"h1", "h2", "h3", "h4", "h5", "h6", "p", "div", "section", "article", "pre", "code", "blockquote", "ul", "ol", "li", "table"}
}

func DefaultThresholds() []float64 {
	return []float64{0, 0.1, 0.25, 0.5, 0.75, 1}
}

func Defaults() Config {
	return Config{
		Tracker: TrackerConfig{
			ContainerSelector:   "body",
			ContentSelectors:    DefaultContentSelectors(),
			Thresholds:          DefaultThresholds(),
			ScrollDebounce:      100 * time.Millisecond,
			DedupWindow:         100 * time.Millisecond,
			AutoSaveInterval:    5 * time.Second,
			AverageReadingSpeed: 200,
			ActivityFactor:      0.7,
			ActivityInterval:    time.Second,
			MinActiveTime:       3 * time.Second,
			EnableBookmarks:     true,
			EnableAccessibility: true,
			Difficulty:          "default",
			ViewportHeight:      800,
		},
		Storage: StorageConfig{
			KeyPrefix:    "reading-progress",
			MaxSizeBytes: 5 * 1024 * 1024,
			Compression:  true,
			MaxRetries:   3,
			RetryDelay:   time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Accessibility: AccessibilityConfig{
			AnnounceProgress:       true,
			AnnounceBookmarks:      true,
			AnnounceChapterChanges: true,
		},
	}
}

func New(dataPath string) (Config, error) {
	if dataPath == "" {
		return Config{}, fmt.Errorf("data path is required")
	}
	cfg := Defaults()
	cfg.DataPath = dataPath
	cfg.DBPath = filepath.Join(dataPath, ".docgrind", "docgrind.db")
	return cfg, nil
}

// Load builds defaults for dataPath, merges file over them when it exists
// (file defaults to <data>/docgrind.yaml), then applies env overrides.
func Load(dataPath, file string) (Config, error) {
	if env := os.Getenv("DOCGRIND_DATA"); env != "" && dataPath == "" {
		dataPath = env
	}
	cfg, err := New(dataPath)
	if err != nil {
		return Config{}, err
	}
	explicit := file != ""
	if file == "" {
		file = filepath.Join(dataPath, FileName)
	}
	raw, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", file, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DOCGRIND_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCGRIND_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DOCGRIND_MAX_STORAGE"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return ConfigError{Field: "DOCGRIND_MAX_STORAGE", Msg: "must be an integer byte count"}
		}
		cfg.Storage.MaxSizeBytes = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.Tracker.AverageReadingSpeed <= 0 {
		return ConfigError{Field: "tracker.average_reading_speed", Msg: "must be positive"}
	}
	if c.Tracker.ActivityFactor <= 0 || c.Tracker.ActivityFactor > 1 {
		return ConfigError{Field: "tracker.activity_factor", Msg: "must be in (0, 1]"}
	}
	for _, th := range c.Tracker.Thresholds {
		if th < 0 || th > 1 {
			return ConfigError{Field: "tracker.intersection_thresholds", Msg: "values must be within [0, 1]"}
		}
	}
	if c.Tracker.ViewportHeight <= 0 {
		return ConfigError{Field: "tracker.viewport_height", Msg: "must be positive"}
	}
	if strings.TrimSpace(c.Storage.KeyPrefix) == "" {
		return ConfigError{Field: "storage.key_prefix", Msg: "is required"}
	}
	if c.Storage.MaxSizeBytes <= 0 {
		return ConfigError{Field: "storage.max_size_bytes", Msg: "must be positive"}
	}
	if c.Storage.MaxRetries < 0 {
		return ConfigError{Field: "storage.max_retries", Msg: "must not be negative"}
	}
	return nil
}
