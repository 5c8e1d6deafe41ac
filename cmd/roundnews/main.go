package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/roundnews/internal/config"
	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/media"
	"github.com/pders01/roundnews/internal/metrics"
	"github.com/pders01/roundnews/internal/newsapi"
	"github.com/pders01/roundnews/internal/pagedsearch"
	"github.com/pders01/roundnews/internal/tui"
	"github.com/pders01/roundnews/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath   string
	quiet        bool
	initialQuery string
	forceConfig  bool
)

var rootCmd = &cobra.Command{
	Use:           "roundnews",
	Short:         "Search the news from your terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("roundnews %s\n", Version)
		fmt.Println("News search for the terminal")
		fmt.Println("github.com/pders01/roundnews")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := validation.NewPermissivePathHandler().ConfigPath(configPath)
		if err != nil {
			fatalf("Invalid config path: %v", err)
		}
		if _, err := os.Stat(path); err == nil && !forceConfig {
			fatalf("Config file already exists at %s (use --force to overwrite)", path)
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", path)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Skip startup banner")
	rootCmd.Flags().StringVarP(&initialQuery, "query", "q", "", "Search for this on startup (overrides config)")

	configGenCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configGenCmd)

	rootCmd.AddCommand(versionCmd, configCmd, searchCmd, sourcesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadConfig reads and validates the configuration and starts logging.
// The returned func closes the log.
func loadConfig() (*config.Config, func(), error) {
	path := configPath
	if path != "" {
		var err error
		if path, err = validation.NewPermissivePathHandler().ConfigPath(path); err != nil {
			return nil, nil, fmt.Errorf("invalid config path: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := setupLogging(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, func() { _ = debuglog.Close() }, nil
}

func setupLogging(cfg *config.Config) error {
	level := debuglog.ParseLogLevel(cfg.Log.Level)
	if level == debuglog.LevelOff {
		return debuglog.Setup(debuglog.LevelOff)
	}

	path, err := validation.NewSecurePathHandler().LogPath(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("invalid log file: %w", err)
	}
	if err := debuglog.Setup(level, path); err != nil {
		return err
	}
	debuglog.Infof("roundnews %s starting, log level %s", Version, level)
	return nil
}

func newClient(cfg *config.Config) (*newsapi.Client, error) {
	if cfg.API.Key == "" {
		return nil, fmt.Errorf("%w: set %s_API_KEY or %s, or api.key in the config file",
			newsapi.ErrMissingAPIKey, "ROUNDNEWS", config.LegacyKeyEnv)
	}
	return newsapi.NewClient(cfg.API.Key,
		newsapi.WithBaseURL(cfg.API.BaseURL),
		newsapi.WithTimeout(cfg.API.HTTPTimeout),
		newsapi.WithUserAgent(cfg.API.UserAgent),
		newsapi.WithRateLimit(cfg.API.RateLimit),
	), nil
}

// startMetrics serves /metrics in the background when an address is
// configured.
func startMetrics(ctx context.Context, cfg *config.Config) {
	addr := cfg.Metrics.Listen
	if addr == "" {
		return
	}
	go func() {
		debuglog.Infof("metrics: listening on %s", addr)
		if err := metrics.Serve(ctx, addr); err != nil {
			debuglog.Errorf("metrics: %v", err)
		}
	}()
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	if cmd.Flags().Changed("query") {
		cfg.Search.InitialQuery = initialQuery
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	startMetrics(ctx, cfg)

	if !quiet {
		tui.ShowBanner(os.Stdout, Version)
	}

	ctrl := pagedsearch.New(client, pagedsearch.WithPageSize(cfg.Search.PageSize))
	defer ctrl.Close()

	app := tui.NewApp(cfg, ctrl, media.NewLauncher(cfg))
	defer app.Close()

	p := tea.NewProgram(app, tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
