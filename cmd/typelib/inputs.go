package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"typelib/internal/config"
	"typelib/internal/declfile"
	"typelib/internal/snapshot"
	"typelib/internal/trace"
	"typelib/internal/types"
	"typelib/internal/ui"
)

type inputKind uint8

const (
	inputDecl inputKind = iota + 1
	inputSnapshot
)

func classifyInput(path string) (inputKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return inputDecl, nil
	case ".tlb":
		return inputSnapshot, nil
	default:
		return 0, fmt.Errorf("%s: unsupported input (expected .toml or .tlb)", path)
	}
}

// inputPaths returns the --input files followed by extra, falling back to
// [inputs] files when neither names anything.
func (s *session) inputPaths(cmd *cobra.Command, extra ...string) ([]string, error) {
	paths, err := cmd.Root().PersistentFlags().GetStringSlice("input")
	if err != nil {
		return nil, fmt.Errorf("failed to get input flag: %w", err)
	}
	paths = append(paths, extra...)
	if len(paths) == 0 {
		paths = append(paths, s.cfg.Inputs.Files...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no inputs: pass --input or list [inputs] files in %s", config.FileName)
	}
	return paths, nil
}

// newRegistry returns an empty registry wired to the session tracer, with
// the configured container models declared.
func (s *session) newRegistry() (*types.Registry, error) {
	r := types.NewRegistry()
	r.SetTracer(s.tracer)
	if err := s.cfg.RegisterContainers(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *session) emit(ev ui.Event) {
	if s.progress != nil {
		s.progress.OnEvent(ev)
	}
}

// loadInputs reads every path into its own registry concurrently, then
// merges them in order into one registry.
func (s *session) loadInputs(paths []string) (*types.Registry, error) {
	for _, path := range paths {
		s.emit(ui.Event{Input: path, Status: ui.StatusQueued})
	}
	span := trace.Begin(s.tracer, trace.ScopeDriver, "load", trace.CurrentSpan(s.ctx).SpanID).
		WithExtra("inputs", strconv.Itoa(len(paths)))
	defer span.End("")

	loaded := make([]*types.Registry, len(paths))
	g, gctx := errgroup.WithContext(s.ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			done := s.timer.Track("load " + path)
			r, note, err := s.loadInput(path)
			done(note)
			if err != nil {
				s.emit(ui.Event{Input: path, Status: ui.StatusError, Err: err})
				return err
			}
			s.emit(ui.Event{Input: path, Stage: ui.StageMerge, Status: ui.StatusQueued, Note: note})
			loaded[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	done := s.timer.Track("merge")
	merged, err := s.newRegistry()
	if err != nil {
		done("")
		return nil, err
	}
	for i, r := range loaded {
		s.emit(ui.Event{Input: paths[i], Stage: ui.StageMerge, Status: ui.StatusWorking})
		if err := merged.Merge(r); err != nil {
			done("")
			s.emit(ui.Event{Input: paths[i], Status: ui.StatusError, Err: err})
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}
		s.emit(ui.Event{Input: paths[i], Status: ui.StatusDone, Note: fmt.Sprintf("%d types", r.Len())})
	}
	done(fmt.Sprintf("%d types", merged.Len()))
	return merged, nil
}

// loadInput reads one file. note tells how it was obtained, for --timings.
func (s *session) loadInput(path string) (r *types.Registry, note string, err error) {
	kind, err := classifyInput(path)
	if err != nil {
		return nil, "", err
	}
	s.emit(ui.Event{Input: path, Stage: ui.StageRead, Status: ui.StatusWorking})
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	if kind == inputSnapshot {
		s.emit(ui.Event{Input: path, Stage: ui.StageRestore, Status: ui.StatusWorking})
		r, err := snapshot.Unmarshal(data)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		r.SetTracer(s.tracer)
		return r, "snapshot", nil
	}

	key := snapshot.KeyFor(data, s.cfg.Fingerprint()...)
	if s.cache != nil {
		s.emit(ui.Event{Input: path, Stage: ui.StageCache, Status: ui.StatusWorking})
	}
	if cached, ok, err := s.cache.Get(key); err != nil {
		s.logger.Warn("snapshot cache read failed", zap.String("input", path), zap.Error(err))
	} else if ok {
		cached.SetTracer(s.tracer)
		return cached, "cached", nil
	}

	s.emit(ui.Event{Input: path, Stage: ui.StageParse, Status: ui.StatusWorking})
	f, err := declfile.Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	r, err = s.newRegistry()
	if err != nil {
		return nil, "", err
	}
	if err := f.Apply(r); err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	if err := s.cache.Put(key, r); err != nil {
		s.logger.Warn("snapshot cache write failed", zap.String("input", path), zap.Error(err))
	}
	return r, "parsed", nil
}
