package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/api"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/config"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/logging"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/stack"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/store"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/track"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/watchdog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the watchdog and its status API server",
	Long: `Start the slow-request watchdog together with the HTTP status API.

The watchdog scans in-flight requests on a fixed cadence and writes
stack-dump records for requests that stay slow. The status API exposes
the in-flight requests, the captured records, and a runtime toggle.

Examples:
  # Start with defaults (localhost:8080)
  slowwatch serve

  # Start on custom host and port
  slowwatch serve --host 0.0.0.0 --port 3000

  # Disable CORS (for production behind a reverse proxy)
  slowwatch serve --no-cors`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
	serveDebug  bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "localhost",
		"Host address to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080,
		"Port to listen on")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false,
		"Disable CORS headers")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Enable /debug endpoints with artificially slow handlers")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: os.Stdout,
	})

	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Flags override the config file when set explicitly.
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if serveNoCORS {
		cfg.Server.EnableCORS = false
	}
	if serveDebug {
		cfg.Server.Debug = true
	}

	wdCfg, err := watchdogConfig(cfg.Watchdog)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store.Dir, cfg.Store.MaxFiles)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	logger.Info("record store ready",
		slog.String("dir", st.Dir()),
		slog.Int("existing_records", st.Len()),
	)

	tracker := track.NewTracker()
	checker := watchdog.NewChecker(wdCfg, tracker, &stack.RuntimeProvider{}, st, logger.WithComponent("watchdog").Logger)

	server := api.NewServer(tracker, checker, st,
		api.WithLogger(logger.WithComponent("api").Logger),
		api.WithCORS(cfg.Server.EnableCORS),
		api.WithDebugEndpoints(cfg.Server.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker.Start(ctx)
	defer checker.Stop()

	// When a config file is in play, watch it so the watchdog can be
	// toggled without a restart.
	if path := loader.ConfigFile(); path != "" {
		watcher, err := config.NewWatcher(path, func(c *config.Config) {
			checker.SetEnabled(c.Watchdog.Enabled)
		}, logger.WithComponent("config").Logger)
		if err != nil {
			logger.Warn("config watcher unavailable", slog.String("error", err.Error()))
		} else {
			watcher.Start(ctx)
			logger.Info("watching config for changes", slog.String("path", path))
		}
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	logger.Info("watchdog running",
		slog.Bool("enabled", checker.Enabled()),
		slog.Duration("period", wdCfg.Period),
		slog.Duration("threshold", wdCfg.Threshold),
		slog.Duration("repeat_after", wdCfg.RepeatAfter),
		slog.Bool("cors", cfg.Server.EnableCORS),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// watchdogConfig converts the string durations from the config file into
// the checker's typed form.
func watchdogConfig(c config.WatchdogConfig) (watchdog.Config, error) {
	period, err := c.PeriodDuration()
	if err != nil {
		return watchdog.Config{}, fmt.Errorf("watchdog.period: %w", err)
	}
	threshold, err := c.ThresholdDuration()
	if err != nil {
		return watchdog.Config{}, fmt.Errorf("watchdog.threshold: %w", err)
	}
	repeatAfter, err := c.RepeatAfterDuration()
	if err != nil {
		return watchdog.Config{}, fmt.Errorf("watchdog.repeat_after: %w", err)
	}

	return watchdog.Config{
		Period:      period,
		Threshold:   threshold,
		RepeatAfter: repeatAfter,
		Enabled:     c.Enabled,
	}, nil
}
