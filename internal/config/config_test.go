package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pders01/roundnews/internal/newsapi"
)

// clearKeyEnv unsets both key variables for the duration of the test.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{envPrefix + "_API_KEY", LegacyKeyEnv} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "start",
	}

	opener := getDefaultOpener()

	if want, ok := expected[runtime.GOOS]; ok {
		if opener != want {
			t.Errorf("getDefaultOpener() = %s, want %s for %s", opener, want, runtime.GOOS)
		}
	} else if opener != "open" {
		t.Errorf("getDefaultOpener() = %s, want 'open' for unknown OS", opener)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.API.BaseURL != newsapi.DefaultBaseURL {
		t.Errorf("API.BaseURL = %s, want %s", cfg.API.BaseURL, newsapi.DefaultBaseURL)
	}
	if cfg.API.HTTPTimeout != 30*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 30s", cfg.API.HTTPTimeout)
	}
	if cfg.Search.PageSize != 20 {
		t.Errorf("Search.PageSize = %d, want 20", cfg.Search.PageSize)
	}
	if cfg.Search.InitialQuery != "Android" {
		t.Errorf("Search.InitialQuery = %q, want Android", cfg.Search.InitialQuery)
	}
	if cfg.Search.LoadMoreThreshold != 5 {
		t.Errorf("Search.LoadMoreThreshold = %d, want 5", cfg.Search.LoadMoreThreshold)
	}
	if cfg.SortBy() != newsapi.SortPublishedAt {
		t.Errorf("SortBy() = %s, want publishedAt", cfg.SortBy())
	}
	if cfg.Log.Level != "off" {
		t.Errorf("Log.Level = %s, want off", cfg.Log.Level)
	}
	if cfg.Keys.Bindings.Quit != "q" || cfg.Keys.Bindings.ClearError != "e" {
		t.Errorf("unexpected key bindings %+v", cfg.Keys.Bindings)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Search.PageSize != newsapi.DefaultPageSize {
		t.Errorf("Search.PageSize = %d, want %d", cfg.Search.PageSize, newsapi.DefaultPageSize)
	}
	if cfg.API.HTTPTimeout != 30*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 30s", cfg.API.HTTPTimeout)
	}
	if cfg.API.Key != "" {
		t.Errorf("API.Key = %q, want empty", cfg.API.Key)
	}
	if len(cfg.Media.Linux.Image) == 0 {
		t.Error("Media.Linux.Image should carry defaults")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearKeyEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, configPath, `
[api]
key = "file-key"
http_timeout = "10s"
rate_limit = 2.5

[search]
page_size = 50
sort_by = "popularity"

[ui.colors]
primary = "#FF0000"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Key != "file-key" {
		t.Errorf("API.Key = %q, want file-key", cfg.API.Key)
	}
	if cfg.API.HTTPTimeout != 10*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 10s", cfg.API.HTTPTimeout)
	}
	if cfg.API.RateLimit != 2.5 {
		t.Errorf("API.RateLimit = %v, want 2.5", cfg.API.RateLimit)
	}
	if cfg.Search.PageSize != 50 {
		t.Errorf("Search.PageSize = %d, want 50", cfg.Search.PageSize)
	}
	if cfg.SortBy() != newsapi.SortPopularity {
		t.Errorf("SortBy() = %s, want popularity", cfg.SortBy())
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want #FF0000", cfg.UI.Colors.Primary)
	}

	// untouched keys keep their defaults
	if cfg.UI.Colors.Secondary != defaultConfig().UI.Colors.Secondary {
		t.Errorf("UI.Colors.Secondary = %s, want default", cfg.UI.Colors.Secondary)
	}
	if cfg.API.BaseURL != newsapi.DefaultBaseURL {
		t.Errorf("API.BaseURL = %s, want default", cfg.API.BaseURL)
	}
	if cfg.Search.InitialQuery != "Android" {
		t.Errorf("Search.InitialQuery = %q, want Android", cfg.Search.InitialQuery)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearKeyEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search.PageSize != newsapi.DefaultPageSize {
		t.Errorf("Search.PageSize = %d, want default", cfg.Search.PageSize)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	clearKeyEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, configPath, "[api\nkey = ")

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "prefixed", env: map[string]string{"ROUNDNEWS_API_KEY": "prefixed-key"}, want: "prefixed-key"},
		{name: "legacy", env: map[string]string{"NEWS_API_KEY": "legacy-key"}, want: "legacy-key"},
		{
			name: "prefixed wins",
			env:  map[string]string{"ROUNDNEWS_API_KEY": "prefixed-key", "NEWS_API_KEY": "legacy-key"},
			want: "prefixed-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearKeyEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			configPath := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, configPath, "[api]\nkey = \"file-key\"\n")

			cfg, err := Load(configPath)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.API.Key != tt.want {
				t.Errorf("API.Key = %q, want %q", cfg.API.Key, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverridesNestedKeys(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("ROUNDNEWS_SEARCH_PAGE_SIZE", "42")
	t.Setenv("ROUNDNEWS_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Search.PageSize != 42 {
		t.Errorf("Search.PageSize = %d, want 42", cfg.Search.PageSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "NEWS_API_KEY=dotenv-key\n")

	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Key != "dotenv-key" {
		t.Errorf("API.Key = %q, want dotenv-key", cfg.API.Key)
	}
}

func TestLoad_DotEnvDoesNotOverrideEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("NEWS_API_KEY", "shell-key")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "NEWS_API_KEY=dotenv-key\n")

	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Key != "shell-key" {
		t.Errorf("API.Key = %q, want shell-key", cfg.API.Key)
	}
}

func TestLoad_ExpandsLogFile(t *testing.T) {
	clearKeyEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, configPath, "[log]\nfile = \"~/.roundnews/debug.log\"\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join(home, ".roundnews", "debug.log"); cfg.Log.File != want {
		t.Errorf("Log.File = %s, want %s", cfg.Log.File, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{name: "page size zero", modify: func(c *Config) { c.Search.PageSize = 0 }, want: "search.page_size"},
		{name: "page size too large", modify: func(c *Config) { c.Search.PageSize = 101 }, want: "search.page_size"},
		{name: "unknown sort", modify: func(c *Config) { c.Search.SortBy = "newest" }, want: "search.sort_by"},
		{name: "threshold", modify: func(c *Config) { c.Search.LoadMoreThreshold = 0 }, want: "load_more_threshold"},
		{name: "timeout", modify: func(c *Config) { c.API.HTTPTimeout = 0 }, want: "api.http_timeout"},
		{name: "rate limit", modify: func(c *Config) { c.API.RateLimit = -1 }, want: "api.rate_limit"},
		{name: "base url", modify: func(c *Config) { c.API.BaseURL = "ftp://newsapi.org" }, want: "api.base_url"},
		{name: "log file", modify: func(c *Config) { c.Log.File = "/tmp/../etc/roundnews.log" }, want: "log.file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Search.PageSize = 0
	cfg.API.HTTPTimeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"search.page_size", "api.http_timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestSave(t *testing.T) {
	clearKeyEnv(t)
	cfg := defaultConfig()
	cfg.API.Key = "saved-key"
	cfg.API.HTTPTimeout = 45 * time.Second
	cfg.Search.PageSize = 30
	cfg.Search.InitialQuery = "Linux"
	cfg.UI.Colors.Primary = "#00FF00"
	cfg.Media.Linux.Image = []string{"imv"}
	cfg.Keys.Bindings.Quit = "x"

	savePath := filepath.Join(t.TempDir(), "nested", "saved-config.toml")
	if err := Save(cfg, savePath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(savePath)
	if err != nil {
		t.Fatalf("Save() did not create config file: %v", err)
	}
	if !strings.Contains(string(data), "page_size") {
		t.Errorf("saved config should use snake_case keys:\n%s", data)
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.API.Key != "saved-key" {
		t.Errorf("API.Key = %q, want saved-key", loaded.API.Key)
	}
	if loaded.API.HTTPTimeout != 45*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 45s", loaded.API.HTTPTimeout)
	}
	if loaded.Search.PageSize != 30 || loaded.Search.InitialQuery != "Linux" {
		t.Errorf("Search = %+v", loaded.Search)
	}
	if loaded.UI.Colors.Primary != "#00FF00" {
		t.Errorf("UI.Colors.Primary = %s, want #00FF00", loaded.UI.Colors.Primary)
	}
	if len(loaded.Media.Linux.Image) != 1 || loaded.Media.Linux.Image[0] != "imv" {
		t.Errorf("Media.Linux.Image = %v, want [imv]", loaded.Media.Linux.Image)
	}
	if loaded.Keys.Bindings.Quit != "x" {
		t.Errorf("Keys.Bindings.Quit = %s, want x", loaded.Keys.Bindings.Quit)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	clearKeyEnv(t)
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if err := GenerateDefaultConfig(configPath); err != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}
	if cfg.Keys.Bindings.Query != "/" {
		t.Errorf("Keys.Bindings.Query = %s, want /", cfg.Keys.Bindings.Query)
	}
	if cfg.Search.LoadMoreThreshold != 5 {
		t.Errorf("Search.LoadMoreThreshold = %d, want 5", cfg.Search.LoadMoreThreshold)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg.API.Key != "test-key" {
		t.Errorf("TestConfig API.Key = %s, want test-key", cfg.API.Key)
	}
	if cfg.API.UserAgent != "roundnews-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s, want roundnews-test/1.0", cfg.API.UserAgent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("TestConfig does not validate: %v", err)
	}
}
