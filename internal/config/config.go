package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/validation"
)

const (
	appName   = "roundnews"
	envPrefix = "ROUNDNEWS"
	// LegacyKeyEnv is the variable the key was historically supplied through.
	LegacyKeyEnv = "NEWS_API_KEY"
)

type Config struct {
	API     APIConfig     `mapstructure:"api" toml:"api"`
	Search  SearchConfig  `mapstructure:"search" toml:"search"`
	UI      UIConfig      `mapstructure:"ui" toml:"ui"`
	Media   MediaConfig   `mapstructure:"media" toml:"media"`
	Log     LogConfig     `mapstructure:"log" toml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
	Keys    KeyConfig     `mapstructure:"keys" toml:"keys"`
}

type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Key         string        `mapstructure:"key"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
}

type SearchConfig struct {
	PageSize          int    `mapstructure:"page_size" toml:"page_size"`
	SortBy            string `mapstructure:"sort_by" toml:"sort_by"`
	InitialQuery      string `mapstructure:"initial_query" toml:"initial_query"`
	LoadMoreThreshold int    `mapstructure:"load_more_threshold" toml:"load_more_threshold"`
	Language          string `mapstructure:"language" toml:"language"`
	FindLimit         int    `mapstructure:"find_limit" toml:"find_limit"`
}

type UIConfig struct {
	Colors  UIColors      `mapstructure:"colors" toml:"colors"`
	Article ArticleConfig `mapstructure:"article" toml:"article"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary" toml:"primary"`
	Secondary  string `mapstructure:"secondary" toml:"secondary"`
	Accent     string `mapstructure:"accent" toml:"accent"`
	Background string `mapstructure:"background" toml:"background"`
	Surface    string `mapstructure:"surface" toml:"surface"`
	Text       string `mapstructure:"text" toml:"text"`
	Muted      string `mapstructure:"muted" toml:"muted"`
	Error      string `mapstructure:"error" toml:"error"`
	Success    string `mapstructure:"success" toml:"success"`
}

type ArticleConfig struct {
	MaxDescriptionLength int `mapstructure:"max_description_length" toml:"max_description_length"`
	WordWrapMaxWidth     int `mapstructure:"word_wrap_max_width" toml:"word_wrap_max_width"`
	WordWrapMinWidth     int `mapstructure:"word_wrap_min_width" toml:"word_wrap_min_width"`
}

type MediaConfig struct {
	Darwin        MediaOpeners `mapstructure:"darwin" toml:"darwin"`
	Linux         MediaOpeners `mapstructure:"linux" toml:"linux"`
	Windows       MediaOpeners `mapstructure:"windows" toml:"windows"`
	DefaultOpener string       `mapstructure:"default_opener" toml:"default_opener"`
}

// MediaOpeners lists candidate commands per content kind, in order of
// preference.
type MediaOpeners struct {
	Browser []string `mapstructure:"browser" toml:"browser"`
	Image   []string `mapstructure:"image" toml:"image"`
}

type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
	File  string `mapstructure:"file" toml:"file"`
}

type MetricsConfig struct {
	// Listen is the address of the /metrics endpoint; empty disables it.
	Listen string `mapstructure:"listen" toml:"listen"`
}

type KeyConfig struct {
	Bindings KeyBindings `mapstructure:"bindings" toml:"bindings"`
}

type KeyBindings struct {
	Quit           string `mapstructure:"quit" toml:"quit"`
	Query          string `mapstructure:"query" toml:"query"`
	Find           string `mapstructure:"find" toml:"find"`
	Open           string `mapstructure:"open" toml:"open"`
	OpenImage      string `mapstructure:"open_image" toml:"open_image"`
	ClearError     string `mapstructure:"clear_error" toml:"clear_error"`
	NextCategory   string `mapstructure:"next_category" toml:"next_category"`
	PrevCategory   string `mapstructure:"prev_category" toml:"prev_category"`
	ToggleCategory string `mapstructure:"toggle_category" toml:"toggle_category"`
	CycleSort      string `mapstructure:"cycle_sort" toml:"cycle_sort"`
	Back           string `mapstructure:"back" toml:"back"`
	Help           string `mapstructure:"help" toml:"help"`
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     newsapi.DefaultBaseURL,
			HTTPTimeout: 30 * time.Second,
			UserAgent:   newsapi.DefaultUserAgent,
		},
		Search: SearchConfig{
			PageSize:          newsapi.DefaultPageSize,
			SortBy:            string(newsapi.SortPublishedAt),
			InitialQuery:      "Android",
			LoadMoreThreshold: 5,
			FindLimit:         50,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Article: ArticleConfig{
				MaxDescriptionLength: 150,
				WordWrapMaxWidth:     120,
				WordWrapMinWidth:     40,
			},
		},
		Media: MediaConfig{
			Darwin: MediaOpeners{
				Browser: []string{"open"},
				Image:   []string{"preview", "open"},
			},
			Linux: MediaOpeners{
				Browser: []string{"xdg-open", "sensible-browser", "firefox"},
				Image:   []string{"feh", "eog", "xdg-open"},
			},
			Windows: MediaOpeners{
				Browser: []string{"start"},
				Image:   []string{"start"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Log: LogConfig{
			Level: "off",
		},
		Keys: KeyConfig{
			Bindings: KeyBindings{
				Quit:           "q",
				Query:          "/",
				Find:           "f",
				Open:           "o",
				OpenImage:      "i",
				ClearError:     "e",
				NextCategory:   "tab",
				PrevCategory:   "shift+tab",
				ToggleCategory: "c",
				CycleSort:      "s",
				Back:           "esc",
				Help:           "?",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// DefaultPath returns ~/.config/roundnews/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", appName, "config.toml")
}

// document is the TOML layout of cfg, with durations as strings.
func document(cfg *Config) map[string]any {
	return map[string]any{
		"api": map[string]any{
			"base_url":     cfg.API.BaseURL,
			"key":          cfg.API.Key,
			"http_timeout": cfg.API.HTTPTimeout.String(),
			"user_agent":   cfg.API.UserAgent,
			"rate_limit":   cfg.API.RateLimit,
		},
		"search":  cfg.Search,
		"ui":      cfg.UI,
		"media":   cfg.Media,
		"log":     cfg.Log,
		"metrics": cfg.Metrics,
		"keys":    cfg.Keys,
	}
}

// setDefaults loads cfg as the base config layer so that a file only has
// to carry the keys it changes.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := toml.Marshal(document(cfg))
	if err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("loading defaults: %w", err)
	}
	return nil
}

// Load reads configuration from configPath, or from the default locations
// when it is empty. Values from the environment (ROUNDNEWS_*) and from .env
// files next to the config or in the working directory override the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v, defaultConfig()); err != nil {
		return nil, err
	}

	dotenvDirs := []string{"."}
	if configPath != "" {
		v.SetConfigFile(configPath)
		dotenvDirs = append(dotenvDirs, filepath.Dir(configPath))
	} else {
		configDir := filepath.Dir(DefaultPath())
		v.SetConfigName("config")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		dotenvDirs = append(dotenvDirs, configDir)
	}
	if err := loadDotEnv(dotenvDirs...); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.key", envPrefix+"_API_KEY", LegacyKeyEnv); err != nil {
		return nil, fmt.Errorf("binding api key env: %w", err)
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.Log.File = expandPath(config.Log.File)
	return &config, nil
}

// loadDotEnv loads the first .env file found in each dir. Existing
// environment variables win.
func loadDotEnv(dirs ...string) error {
	seen := map[string]bool{}
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if seen[path] {
			continue
		}
		seen[path] = true

		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	var errs []error

	if c.Search.PageSize < 1 || c.Search.PageSize > newsapi.MaxPageSize {
		errs = append(errs, fmt.Errorf("search.page_size must be between 1 and %d, got %d", newsapi.MaxPageSize, c.Search.PageSize))
	}
	if _, err := newsapi.ParseSortBy(c.Search.SortBy); err != nil {
		errs = append(errs, fmt.Errorf("search.sort_by: %w", err))
	}
	if c.Search.LoadMoreThreshold < 1 {
		errs = append(errs, fmt.Errorf("search.load_more_threshold must be at least 1, got %d", c.Search.LoadMoreThreshold))
	}
	if c.API.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("api.http_timeout must be positive, got %s", c.API.HTTPTimeout))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("api.rate_limit must not be negative, got %v", c.API.RateLimit))
	}
	if _, err := validation.NewEndpointValidator().ValidateAndNormalize(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	}
	if c.Log.File != "" {
		if _, err := validation.NewFilePathValidator().ValidateFile(c.Log.File); err != nil {
			errs = append(errs, fmt.Errorf("log.file: %w", err))
		}
	}

	return errors.Join(errs...)
}

// SortBy returns the configured sort order, falling back to publishedAt.
func (c *Config) SortBy() newsapi.SortBy {
	s, err := newsapi.ParseSortBy(c.Search.SortBy)
	if err != nil {
		return newsapi.SortPublishedAt
	}
	return s
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func Save(config *Config, path string) error {
	v := viper.New()
	for section, value := range document(config) {
		v.Set(section, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
