package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"typelib/internal/config"
	"typelib/internal/trace"
)

// setupTracing builds the tracer from [trace], with the trace flags taking
// precedence when given. It returns the tracer and its cleanup function.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, func(), error) {
	flags := cmd.Root().PersistentFlags()
	settings := cfg.Trace

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"trace", &settings.Output},
		{"trace-level", &settings.Level},
		{"trace-mode", &settings.Mode},
		{"trace-format", &settings.Format},
	}
	for _, o := range overrides {
		v, err := flags.GetString(o.flag)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get %s flag: %w", o.flag, err)
		}
		if v != "" {
			*o.dst = v
		}
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	// an output without a level means "trace everything the driver does"
	outputGiven := flags.Changed("trace")
	if outputGiven && !flags.Changed("trace-level") && (settings.Level == "" || settings.Level == "off") {
		settings.Level = "driver"
	}

	cfg.Trace = settings
	tc, err := cfg.TracerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace settings: %w", err)
	}
	tc.RingSize = ringSize
	if tc.Level == trace.LevelOff {
		return trace.Nop, func() {}, nil
	}

	tracer, err := trace.New(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cleanup := func() {
		if multi, ok := tracer.(*trace.MultiTracer); ok {
			if ring, ok := multi.Ring(); ok && tc.OutputPath != "" && tc.OutputPath != "-" {
				// the stream went to a file; keep the tail visible on stderr
				if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
				}
			}
		}
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := ring.Dump(cmd.ErrOrStderr(), tc.Format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
