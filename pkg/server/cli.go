package server

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/multizone/pkg/config"
	"github.com/multizone/pkg/logger"
	"github.com/multizone/pkg/metrics"
	"github.com/multizone/pkg/pages"
	"github.com/multizone/pkg/zone"
)

// Options are the command line settings shared by both binaries. Flags win
// over the config file and MULTIZONE_SERVER_* variables.
type Options struct {
	ConfigFile string
	Listen     string
	LogLevel   string
}

// ParseFlags parses args into Options
func ParseFlags(name string, args []string, output io.Writer) (Options, error) {
	var opts Options
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.Listen, "listen", "", "Address to listen on (overrides config)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level: error, warn, info, debug (overrides config)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// LoadConfig loads the configuration for opts on top of defaults
func LoadConfig(opts Options, defaults *config.Config, env zone.Env) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile, defaults, env)
	if err != nil {
		return nil, err
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.LogLevel != "" {
		if _, err := logger.ParseLevel(opts.LogLevel); err != nil {
			return nil, fmt.Errorf("%w: -log-level: %v", config.ErrInvalidConfig, err)
		}
		cfg.Server.LogLevel = opts.LogLevel
	}
	return cfg, nil
}

// Main runs an app of kind until SIGINT or SIGTERM and returns the process
// exit code.
func Main(kind pages.Kind, defaults *config.Config, args []string, stderr io.Writer) int {
	opts, err := ParseFlags(defaults.Server.Name, args, stderr)
	if err != nil {
		return 2
	}

	env := zone.OSEnv()
	cfg, err := LoadConfig(opts, defaults, env)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	l := logger.NewWithOutput(cfg.Server.Name, cfg.Level(), stderr)
	l.Info("Starting %s", cfg.Server.Name)

	metrics.InitMetrics()

	app, err := New(kind, cfg, env, l)
	if err != nil {
		l.Error("Failed to initialize: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		l.Error("Server error: %v", err)
		return 1
	}
	l.Info("Stopped")
	return 0
}
