package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.API = APIConfig{
		BaseURL:     "http://127.0.0.1/v2/",
		Key:         "test-key",
		HTTPTimeout: 5 * time.Second,
		UserAgent:   "roundnews-test/1.0",
	}
	cfg.Search.InitialQuery = ""
	cfg.Media.DefaultOpener = "true"
	return cfg
}
