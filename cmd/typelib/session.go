package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"typelib/internal/config"
	"typelib/internal/layout"
	"typelib/internal/observ"
	"typelib/internal/snapshot"
	"typelib/internal/trace"
	"typelib/internal/types"
	"typelib/internal/ui"
)

// session is the state shared by one command invocation: configuration,
// logging, tracing, timings and the snapshot cache.
type session struct {
	ctx    context.Context
	cfg    config.Config
	logger *zap.Logger
	tracer trace.Tracer
	timer  *observ.Timer
	cache  *snapshot.DiskCache
	// progress receives input loading events when the progress UI runs.
	progress ui.ProgressSink

	out    io.Writer
	errOut io.Writer

	quiet       bool
	showTimings bool
	ui          uiMode

	byteOrder  string
	countWidth int

	closeTrace func()
}

func openSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Root().PersistentFlags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := flags.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	byteOrder, err := flags.GetString("byte-order")
	if err != nil {
		return nil, fmt.Errorf("failed to get byte-order flag: %w", err)
	}
	countWidth, err := flags.GetInt("count-width")
	if err != nil {
		return nil, fmt.Errorf("failed to get count-width flag: %w", err)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return nil, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return nil, err
	}

	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return nil, fmt.Errorf("invalid color mode %q (expected: auto|on|off)", colorFlag)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := config.Discover(configPath, wd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return nil, err
	}
	types.SetLogger(logger)

	s := &session{
		ctx:         cmd.Context(),
		cfg:         cfg,
		logger:      logger,
		timer:       observ.NewTimer(),
		out:         cmd.OutOrStdout(),
		errOut:      cmd.ErrOrStderr(),
		quiet:       quiet,
		showTimings: showTimings,
		ui:          mode,
		byteOrder:   byteOrder,
		countWidth:  countWidth,
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if cfg.Path != "" {
		logger.Debug("configuration loaded", zap.String("path", cfg.Path))
	}

	tracer, closeTrace, err := setupTracing(cmd, cfg)
	if err != nil {
		return nil, err
	}
	s.tracer, s.closeTrace = tracer, closeTrace
	s.ctx = trace.WithTracer(s.ctx, tracer)

	if cfg.Cache.Enabled && !noCache {
		var cache *snapshot.DiskCache
		if cfg.Cache.Dir != "" {
			cache, err = snapshot.NewDiskCache(cfg.Cache.Dir)
		} else {
			cache, err = snapshot.OpenDiskCache("typelib")
		}
		if err != nil {
			logger.Warn("snapshot cache disabled", zap.Error(err))
		} else {
			cache.SetLogger(logger.Named("cache"))
			s.cache = cache
		}
	}
	return s, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// close prints the timings and releases the tracer.
func (s *session) close() {
	if s.showTimings {
		fmt.Fprint(s.errOut, s.timer.Summary())
	}
	if s.closeTrace != nil {
		s.closeTrace()
	}
	_ = s.logger.Sync()
	types.SetLogger(nil)
}

// engine builds a layout engine from [layout] and the command-line overrides.
func (s *session) engine() (*layout.Engine, error) {
	opts, err := s.cfg.LayoutOptions()
	if err != nil {
		return nil, err
	}
	if s.byteOrder != "" {
		order, err := layout.ParseByteOrder(s.byteOrder)
		if err != nil {
			return nil, err
		}
		opts.ByteOrder = order
		for model, enc := range opts.Encodings {
			if cp, ok := enc.(layout.CountPrefixed); ok {
				cp.Order = order
				opts.Encodings[model] = cp
			}
		}
	}
	if s.countWidth != 0 {
		opts.CountWidth = s.countWidth
	}
	opts.Tracer = s.tracer
	return layout.New(opts)
}

// printf writes non-essential output, silenced by --quiet.
func (s *session) printf(format string, args ...any) {
	if s.quiet {
		return
	}
	fmt.Fprintf(s.errOut, format, args...)
}
